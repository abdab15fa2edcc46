package razorpay

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ashendes/storefront-checkout/internal/metrics"
	"github.com/ashendes/storefront-checkout/internal/models"
	"github.com/ashendes/storefront-checkout/internal/pricing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Handler serves the order-intent and verification endpoints
type Handler struct {
	gateway   Gateway
	keySecret string
	currency  string
	mode      string
	issued    map[string]*models.GatewayOrder
	mutex     sync.RWMutex
}

// NewHandler creates the payment endpoints. mode is reported by the status
// endpoint ("live" or "sandbox").
func NewHandler(gateway Gateway, keySecret, mode string) *Handler {
	return &Handler{
		gateway:   gateway,
		keySecret: keySecret,
		currency:  pricing.DefaultCurrency,
		mode:      mode,
		issued:    make(map[string]*models.GatewayOrder),
	}
}

// RegisterRoutes mounts the payment endpoints
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/api/razorpay/order", h.createOrder)
	r.GET("/api/razorpay/order/:orderId", h.getOrder)
	r.POST("/api/razorpay/verify", h.verifyPayment)
	r.GET("/api/razorpay/status", h.getStatus)
}

// createOrder handles POST /api/razorpay/order. The amount arrives in rupees
// and is sent to the gateway in paise.
func (h *Handler) createOrder(c *gin.Context) {
	var req models.CreateGatewayOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.GatewayOrdersTotal.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency != h.currency {
		metrics.GatewayOrdersTotal.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Unsupported currency",
			"currency": req.Currency,
		})
		return
	}

	amount := decimal.NewFromFloat(req.Amount)
	receipt := req.Receipt
	if receipt == "" {
		receipt = "rcpt_" + uuid.New().String()[:8]
	}

	order, err := h.gateway.CreateOrder(c.Request.Context(), pricing.ToMinorUnits(amount), currency, receipt)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, ErrGatewayRejected) {
			status = http.StatusUnprocessableEntity
		}
		metrics.GatewayOrdersTotal.WithLabelValues("failed").Inc()
		log.WithFields(log.Fields{
			"amount":  amount.String(),
			"receipt": receipt,
		}).WithError(err).Error("Failed to create gateway order")
		c.JSON(status, gin.H{"error": "Failed to create payment order: " + err.Error()})
		return
	}

	h.mutex.Lock()
	h.issued[order.ID] = order
	h.mutex.Unlock()

	metrics.GatewayOrdersTotal.WithLabelValues("created").Inc()
	metrics.PaymentAmount.Observe(amount.InexactFloat64())

	log.WithFields(log.Fields{
		"gateway_order_id": order.ID,
		"amount_minor":     order.Amount,
		"currency":         order.Currency,
	}).Info("Gateway order created")

	c.JSON(http.StatusOK, order)
}

// getOrder returns a gateway order issued by this service
func (h *Handler) getOrder(c *gin.Context) {
	orderID := c.Param("orderId")

	h.mutex.RLock()
	order, exists := h.issued[orderID]
	h.mutex.RUnlock()

	if !exists {
		c.JSON(http.StatusNotFound, gin.H{
			"error":    "Gateway order not found",
			"order_id": orderID,
		})
		return
	}
	c.JSON(http.StatusOK, order)
}

// verifyPayment handles POST /api/razorpay/verify. A bad signature is a
// "failure" status, not an HTTP error.
func (h *Handler) verifyPayment(c *gin.Context) {
	var req models.PaymentConfirmation
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.SignatureVerificationsTotal.WithLabelValues(models.VerifyStatusFailure).Inc()
		c.JSON(http.StatusBadRequest, models.VerifyResponse{
			Status:  models.VerifyStatusFailure,
			Message: "Invalid request: " + err.Error(),
		})
		return
	}

	entry := log.WithFields(log.Fields{
		"gateway_order_id": req.OrderID,
		"payment_id":       req.PaymentID,
	})

	if !VerifySignature(req.OrderID, req.PaymentID, req.Signature, h.keySecret) {
		metrics.SignatureVerificationsTotal.WithLabelValues(models.VerifyStatusFailure).Inc()
		entry.Warn("Payment signature mismatch")
		c.JSON(http.StatusOK, models.VerifyResponse{
			Status:  models.VerifyStatusFailure,
			Message: "Signature mismatch",
		})
		return
	}

	metrics.SignatureVerificationsTotal.WithLabelValues(models.VerifyStatusSuccess).Inc()
	entry.Info("Payment signature verified")
	c.JSON(http.StatusOK, models.VerifyResponse{Status: models.VerifyStatusSuccess})
}

func (h *Handler) getStatus(c *gin.Context) {
	h.mutex.RLock()
	issued := len(h.issued)
	h.mutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"service":        "payment-service",
		"status":         "healthy",
		"mode":           h.mode,
		"orders_issued":  issued,
		"signing_secret": h.keySecret != "",
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}
