package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ashendes/storefront-checkout/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingGateway struct {
	amounts []int64
	err     error
}

func (g *recordingGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*models.GatewayOrder, error) {
	g.amounts = append(g.amounts, amountMinor)
	if g.err != nil {
		return nil, g.err
	}
	return &models.GatewayOrder{ID: "order_rec", Amount: amountMinor, Currency: currency}, nil
}

func setupHandler(gw Gateway) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(gw, "test_secret", "sandbox").RegisterRoutes(router)
	return router
}

func post(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_CreateOrderConvertsToMinorUnits(t *testing.T) {
	gw := &recordingGateway{}
	router := setupHandler(gw)

	w := post(router, "/api/razorpay/order", models.CreateGatewayOrderRequest{Amount: 1050, Currency: "INR"})
	require.Equal(t, http.StatusOK, w.Code)

	var order models.GatewayOrder
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Equal(t, "order_rec", order.ID)
	assert.Equal(t, int64(105000), order.Amount)
	assert.Equal(t, []int64{105000}, gw.amounts)

	req := httptest.NewRequest(http.MethodGet, "/api/razorpay/order/order_rec", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_CreateOrderRejectsBadInput(t *testing.T) {
	gw := &recordingGateway{}
	router := setupHandler(gw)

	w := post(router, "/api/razorpay/order", map[string]interface{}{"amount": 0, "currency": "INR"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(router, "/api/razorpay/order", models.CreateGatewayOrderRequest{Amount: 10, Currency: "USD"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, gw.amounts)
}

func TestHandler_CreateOrderGatewayErrors(t *testing.T) {
	gw := &recordingGateway{err: errors.New("connection refused")}
	router := setupHandler(gw)

	w := post(router, "/api/razorpay/order", models.CreateGatewayOrderRequest{Amount: 10, Currency: "INR"})
	assert.Equal(t, http.StatusBadGateway, w.Code)

	gw.err = ErrGatewayRejected
	w = post(router, "/api/razorpay/order", models.CreateGatewayOrderRequest{Amount: 10, Currency: "INR"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandler_Verify(t *testing.T) {
	router := setupHandler(Sandbox{})

	valid := models.PaymentConfirmation{
		OrderID:   "order_ABC",
		PaymentID: "pay_XYZ",
		Signature: Signature("order_ABC", "pay_XYZ", "test_secret"),
	}
	w := post(router, "/api/razorpay/verify", valid)
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.VerifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.VerifyStatusSuccess, resp.Status)

	tampered := valid
	tampered.PaymentID = "pay_OTHER"
	w = post(router, "/api/razorpay/verify", tampered)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.VerifyStatusFailure, resp.Status)

	w = post(router, "/api/razorpay/verify", map[string]string{"razorpay_order_id": "order_ABC"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
