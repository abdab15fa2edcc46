package orders

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ashendes/storefront-checkout/internal/models"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Handler exposes the order service over HTTP
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the order endpoints
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/api/orders", h.addOrder)
	r.GET("/api/orders", h.listOrders)
	r.GET("/api/orders/:orderId", h.getOrder)
}

// addOrder handles POST /api/orders
func (h *Handler) addOrder(c *gin.Context) {
	var req models.OrderSnapshot
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	order, err := h.service.Place(c.Request.Context(), &req)
	if errors.Is(err, ErrDuplicatePayment) {
		c.JSON(http.StatusConflict, gin.H{
			"error":      "Order already recorded for this payment",
			"payment_id": req.PaymentID,
		})
		return
	}
	if err != nil {
		log.WithField("payment_id", req.PaymentID).WithError(err).Error("Failed to place order")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store order"})
		return
	}

	c.JSON(http.StatusCreated, order)
}

// getOrder handles GET /api/orders/:orderId
func (h *Handler) getOrder(c *gin.Context) {
	orderID := c.Param("orderId")

	order, err := h.service.Get(c.Request.Context(), orderID)
	if errors.Is(err, ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":    "Order not found",
			"order_id": orderID,
		})
		return
	}
	if err != nil {
		log.WithField("order_id", orderID).WithError(err).Error("Failed to load order")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load order"})
		return
	}

	c.JSON(http.StatusOK, order)
}

// listOrders handles GET /api/orders?email= (account order history)
func (h *Handler) listOrders(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email query parameter is required"})
		return
	}

	orders, err := h.service.History(c.Request.Context(), email)
	if err != nil {
		log.WithField("email", email).WithError(err).Error("Failed to list orders")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}
