package catalog

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/ashendes/storefront-checkout/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Catalog is an in-memory product catalog
type Catalog struct {
	products map[string]*models.Product
	mutex    sync.RWMutex
}

func New(products ...*models.Product) *Catalog {
	c := &Catalog{products: make(map[string]*models.Product)}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

// NewSeeded returns a catalog with the sample storefront products
func NewSeeded() *Catalog {
	return New(
		&models.Product{ID: "kurta-cotton", Name: "Cotton Kurta", Price: decimal.NewFromInt(899), ImageRef: "img/kurta-cotton.jpg", Variants: []string{"S", "M", "L", "XL"}, Active: true},
		&models.Product{ID: "saree-silk", Name: "Banarasi Silk Saree", Price: decimal.NewFromInt(4599), ImageRef: "img/saree-silk.jpg", Active: true},
		&models.Product{ID: "dupatta-chiffon", Name: "Chiffon Dupatta", Price: decimal.RequireFromString("349.50"), ImageRef: "img/dupatta.jpg", Active: true},
		&models.Product{ID: "jutti-leather", Name: "Leather Jutti", Price: decimal.NewFromInt(1299), ImageRef: "img/jutti.jpg", Variants: []string{"6", "7", "8", "9"}, Active: true},
		&models.Product{ID: "stole-wool", Name: "Woollen Stole", Price: decimal.NewFromInt(799), ImageRef: "img/stole.jpg", Active: false},
	)
}

// Product implements cart.ProductResolver for in-process lookups
func (c *Catalog) Product(_ context.Context, productID string) (*models.Product, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	p, exists := c.products[productID]
	if !exists {
		return nil, models.ErrProductNotFound
	}
	out := *p
	return &out, nil
}

// List returns active products ordered by id
func (c *Catalog) List() []models.Product {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	out := make([]models.Product, 0, len(c.products))
	for _, p := range c.products {
		if p.Active {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RegisterRoutes mounts the catalog endpoints
func (c *Catalog) RegisterRoutes(r gin.IRouter) {
	r.GET("/catalog/status", c.getStatus)
	r.GET("/catalog/products", c.listProducts)
	r.GET("/catalog/products/:productId", c.getProduct)
}

func (c *Catalog) getStatus(ctx *gin.Context) {
	c.mutex.RLock()
	count := len(c.products)
	c.mutex.RUnlock()

	ctx.JSON(http.StatusOK, gin.H{
		"service":   "catalog-service",
		"status":    "healthy",
		"products":  count,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (c *Catalog) listProducts(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"products": c.List()})
}

func (c *Catalog) getProduct(ctx *gin.Context) {
	productID := ctx.Param("productId")

	product, err := c.Product(ctx.Request.Context(), productID)
	if err != nil {
		log.WithField("product_id", productID).Debug("Product not found")
		ctx.JSON(http.StatusNotFound, gin.H{
			"error":      "Product not found",
			"product_id": productID,
		})
		return
	}
	ctx.JSON(http.StatusOK, product)
}
