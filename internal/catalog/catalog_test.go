package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ashendes/storefront-checkout/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_ProductReturnsCopy(t *testing.T) {
	c := NewSeeded()

	p, err := c.Product(context.Background(), "kurta-cotton")
	require.NoError(t, err)
	assert.Equal(t, "899", p.Price.String())
	p.Name = "changed"

	again, err := c.Product(context.Background(), "kurta-cotton")
	require.NoError(t, err)
	assert.Equal(t, "Cotton Kurta", again.Name)

	_, err = c.Product(context.Background(), "nope")
	assert.ErrorIs(t, err, models.ErrProductNotFound)
}

func TestCatalog_ListSkipsInactive(t *testing.T) {
	for _, p := range NewSeeded().List() {
		assert.True(t, p.Active, p.ID)
		assert.NotEqual(t, "stole-wool", p.ID)
	}
}

func TestCatalog_Routes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewSeeded().RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/catalog/products/jutti-leather", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var p models.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.True(t, p.HasVariant("8"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/catalog/products/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/catalog/products", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Products []models.Product `json:"products"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list.Products, 4)
}
