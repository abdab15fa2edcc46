package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ashendes/storefront-checkout/internal/models"
	"github.com/ashendes/storefront-checkout/internal/patterns"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentClient_CreateOrder(t *testing.T) {
	var got models.CreateGatewayOrderRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/razorpay/order", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_1","amount":105000,"currency":"INR"}`))
	}))
	defer server.Close()

	client := NewPaymentClient(server.URL + "/")
	order, err := client.CreateOrder(context.Background(), decimal.NewFromInt(1050), "INR")

	require.NoError(t, err)
	assert.Equal(t, "order_1", order.ID)
	assert.Equal(t, int64(105000), order.Amount)
	assert.Equal(t, 1050.0, got.Amount)
	assert.Equal(t, "INR", got.Currency)
}

func TestPaymentClient_CreateOrderServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"gateway down"}`))
	}))
	defer server.Close()

	client := NewPaymentClient(server.URL)
	_, err := client.CreateOrder(context.Background(), decimal.NewFromInt(10), "INR")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.NotErrorIs(t, err, patterns.ErrRejected)
}

func TestPaymentClient_CreateOrderRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewPaymentClient(server.URL)
	_, err := client.CreateOrder(context.Background(), decimal.NewFromInt(10), "INR")

	assert.ErrorIs(t, err, patterns.ErrRejected)
}

func TestPaymentClient_Verify(t *testing.T) {
	status := models.VerifyStatusSuccess
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/razorpay/verify", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "order_1", body["razorpay_order_id"])
		assert.Equal(t, "pay_1", body["razorpay_payment_id"])
		assert.Equal(t, "sig", body["razorpay_signature"])
		_ = json.NewEncoder(w).Encode(models.VerifyResponse{Status: status})
	}))
	defer server.Close()

	client := NewPaymentClient(server.URL)
	confirmation := models.PaymentConfirmation{OrderID: "order_1", PaymentID: "pay_1", Signature: "sig"}

	ok, err := client.Verify(context.Background(), confirmation)
	require.NoError(t, err)
	assert.True(t, ok)

	status = models.VerifyStatusFailure
	ok, err = client.Verify(context.Background(), confirmation)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOrdersClient_AddOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/orders", r.URL.Path)
		var snapshot models.OrderSnapshot
		require.NoError(t, json.NewDecoder(r.Body).Decode(&snapshot))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(models.PersistedOrder{
			ID:        "6d3c1a4e-0000-4000-8000-000000000001",
			PaymentID: snapshot.PaymentID,
			Items:     snapshot.Items,
			Status:    models.OrderStatusPlaced,
		})
	}))
	defer server.Close()

	client := NewOrdersClient(server.URL)
	order, err := client.AddOrder(context.Background(), &models.OrderSnapshot{
		PaymentID: "pay_9",
		Items:     []models.CartLine{{ProductID: "p1", Quantity: 1, UnitPrice: decimal.NewFromInt(5)}},
	})

	require.NoError(t, err)
	assert.Equal(t, "pay_9", order.PaymentID)
	assert.Len(t, order.Items, 1)
}

func TestOrdersClient_Conflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	_, err := NewOrdersClient(server.URL).AddOrder(context.Background(), &models.OrderSnapshot{})

	require.Error(t, err)
	assert.ErrorIs(t, err, patterns.ErrRejected)
}

func TestCatalogClient_Product(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/catalog/products/tee-01" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"id":"tee-01","name":"Tee","price":"499","active":true}`))
	}))
	defer server.Close()

	client := NewCatalogClient(server.URL)

	product, err := client.Product(context.Background(), "tee-01")
	require.NoError(t, err)
	assert.Equal(t, "Tee", product.Name)
	assert.Equal(t, "499", product.Price.String())

	_, err = client.Product(context.Background(), "nope")
	assert.ErrorIs(t, err, models.ErrProductNotFound)
	assert.ErrorIs(t, err, patterns.ErrRejected)
}
