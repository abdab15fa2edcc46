package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/ashendes/storefront-checkout/internal/cart"
	"github.com/ashendes/storefront-checkout/internal/checkout"
	"github.com/ashendes/storefront-checkout/internal/models"
	"github.com/ashendes/storefront-checkout/internal/patterns"
	"github.com/ashendes/storefront-checkout/internal/pricing"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// SessionHeader carries the browser session that owns a cart
const SessionHeader = "X-Session-ID"

// OperatorHeader carries the token for operator endpoints
const OperatorHeader = "X-Operator-Token"

// Storefront serves the cart and checkout endpoints
type Storefront struct {
	carts        cart.Store
	products     cart.ProductResolver
	orchestrator *checkout.Orchestrator
	policy       pricing.Policy
	guards       []*patterns.Guard

	// operatorToken guards the attempt listing; empty disables it
	operatorToken string
}

func NewStorefront(carts cart.Store, products cart.ProductResolver, orchestrator *checkout.Orchestrator, policy pricing.Policy, guards ...*patterns.Guard) *Storefront {
	return &Storefront{
		carts:        carts,
		products:     products,
		orchestrator: orchestrator,
		policy:       policy,
		guards:       guards,
	}
}

// WithOperatorToken sets the token operator endpoints require
func (s *Storefront) WithOperatorToken(token string) *Storefront {
	s.operatorToken = token
	return s
}

// RegisterRoutes mounts the storefront endpoints
func (s *Storefront) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api")
	api.GET("/circuit-status", s.circuitStatus)

	operators := api.Group("", s.requireOperator)
	operators.GET("/checkout/attempts", s.listAttempts)

	sessions := api.Group("", requireSession)
	sessions.GET("/cart", s.getCart)
	sessions.POST("/cart", s.addToCart)
	sessions.PATCH("/cart/items/:productId", s.updateCartItem)
	sessions.DELETE("/cart/items/:productId", s.removeCartItem)

	sessions.GET("/checkout", s.viewCheckout)
	sessions.POST("/checkout", s.submitCheckout)
	sessions.GET("/checkout/:attemptId", s.getAttempt)
	sessions.POST("/checkout/:attemptId/dismiss", s.dismissPayment)
	sessions.POST("/checkout/:attemptId/failure", s.paymentFailed)
	sessions.POST("/checkout/:attemptId/confirm", s.confirmPayment)
}

func requireSession(c *gin.Context) {
	if strings.TrimSpace(c.GetHeader(SessionHeader)) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": SessionHeader + " header is required"})
		return
	}
	c.Next()
}

// requireOperator refuses every caller when no token is configured
func (s *Storefront) requireOperator(c *gin.Context) {
	if s.operatorToken == "" {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Operator endpoints are disabled"})
		return
	}
	given := c.GetHeader(OperatorHeader)
	if subtle.ConstantTimeCompare([]byte(given), []byte(s.operatorToken)) != 1 {
		log.WithField("path", c.FullPath()).Warn("Rejected operator request")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid operator token"})
		return
	}
	c.Next()
}

func sessionID(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(SessionHeader))
}

// getCart handles GET /api/cart
func (s *Storefront) getCart(c *gin.Context) {
	lines, err := s.carts.Lines(c.Request.Context(), sessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.cartResponse(lines))
}

// addToCart handles POST /api/cart. Name, price and image come from the
// catalog, never from the request.
func (s *Storefront) addToCart(c *gin.Context) {
	var req models.AddCartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	product, err := s.products.Product(ctx, req.ProductID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !product.Active {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":      "Product is not available",
			"product_id": req.ProductID,
		})
		return
	}
	if !product.HasVariant(req.VariantKey) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":       "Unknown variant",
			"variant_key": req.VariantKey,
		})
		return
	}

	lines, err := s.carts.Add(ctx, sessionID(c), models.CartLine{
		ProductID:  product.ID,
		VariantKey: req.VariantKey,
		Name:       product.Name,
		UnitPrice:  product.Price,
		Quantity:   req.Quantity,
		ImageRef:   product.ImageRef,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	log.WithFields(log.Fields{
		"session_id": sessionID(c),
		"product_id": product.ID,
		"quantity":   req.Quantity,
	}).Info("Added to cart")
	c.JSON(http.StatusOK, s.cartResponse(lines))
}

// updateCartItem handles PATCH /api/cart/items/:productId
func (s *Storefront) updateCartItem(c *gin.Context) {
	var req models.UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	lines, err := s.carts.UpdateQuantity(c.Request.Context(), sessionID(c), c.Param("productId"), req.VariantKey, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.cartResponse(lines))
}

// removeCartItem handles DELETE /api/cart/items/:productId?variant_key=
func (s *Storefront) removeCartItem(c *gin.Context) {
	lines, err := s.carts.Remove(c.Request.Context(), sessionID(c), c.Param("productId"), c.Query("variant_key"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.cartResponse(lines))
}

// viewCheckout handles GET /api/checkout?delivery_method=
func (s *Storefront) viewCheckout(c *gin.Context) {
	out, err := s.orchestrator.View(c.Request.Context(), sessionID(c), models.DeliveryMethod(c.Query("delivery_method")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// submitCheckout handles POST /api/checkout
func (s *Storefront) submitCheckout(c *gin.Context) {
	var form models.CheckoutForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	out, err := s.orchestrator.Submit(c.Request.Context(), sessionID(c), form)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(outcomeStatus(out), out)
}

// dismissPayment handles POST /api/checkout/:attemptId/dismiss
func (s *Storefront) dismissPayment(c *gin.Context) {
	out, err := s.orchestrator.Dismiss(c.Request.Context(), sessionID(c), c.Param("attemptId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// paymentFailed handles POST /api/checkout/:attemptId/failure
func (s *Storefront) paymentFailed(c *gin.Context) {
	var req models.PaymentFailureRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
	}

	out, err := s.orchestrator.Fail(c.Request.Context(), sessionID(c), c.Param("attemptId"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// confirmPayment handles POST /api/checkout/:attemptId/confirm
func (s *Storefront) confirmPayment(c *gin.Context) {
	var req models.PaymentConfirmation
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	out, err := s.orchestrator.Confirm(c.Request.Context(), sessionID(c), c.Param("attemptId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// getAttempt handles GET /api/checkout/:attemptId
func (s *Storefront) getAttempt(c *gin.Context) {
	attempt, err := s.orchestrator.Attempt(c.Param("attemptId"))
	if err == nil && attempt.SessionID != sessionID(c) {
		err = checkout.ErrAttemptNotFound
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"attempt":        attempt,
		"persisted":      attempt.Persisted(),
		"server_pending": attempt.ServerPending(),
	})
}

// listAttempts handles GET /api/checkout/attempts?state=&pending=true
func (s *Storefront) listAttempts(c *gin.Context) {
	if c.Query("pending") == "true" {
		c.JSON(http.StatusOK, gin.H{"attempts": s.orchestrator.Pending()})
		return
	}

	var states []checkout.State
	for _, raw := range c.QueryArray("state") {
		state, ok := checkout.ParseState(strings.ToUpper(raw))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown state", "state": raw})
			return
		}
		states = append(states, state)
	}
	c.JSON(http.StatusOK, gin.H{"attempts": s.orchestrator.Attempts(states...)})
}

// circuitStatus returns the state of every downstream circuit breaker
func (s *Storefront) circuitStatus(c *gin.Context) {
	circuits := make([]patterns.CircuitStatus, 0, len(s.guards))
	for _, g := range s.guards {
		circuits = append(circuits, g.Status())
	}
	c.JSON(http.StatusOK, gin.H{"circuits": circuits})
}

func (s *Storefront) cartResponse(lines []models.CartLine) models.CartResponse {
	if lines == nil {
		lines = []models.CartLine{}
	}
	return models.CartResponse{
		Lines:    lines,
		Subtotal: s.policy.Subtotal(lines),
		Currency: s.policy.Currency,
	}
}

// outcomeStatus maps validation failures to 422; every other outcome is a
// screen the browser renders
func outcomeStatus(out *checkout.Outcome) int {
	if len(out.FieldErrors) > 0 {
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, checkout.ErrAttemptNotFound),
		errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, models.ErrProductNotFound):
		status = http.StatusNotFound
	case errors.Is(err, checkout.ErrIllegalTransition),
		errors.Is(err, checkout.ErrOrderMismatch):
		status = http.StatusConflict
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidPrice):
		status = http.StatusBadRequest
	default:
		log.WithField("path", c.FullPath()).WithError(err).Error("Storefront request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
