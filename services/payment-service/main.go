package main

import (
	"net/http"
	"os"

	"github.com/ashendes/storefront-checkout/internal/metrics"
	"github.com/ashendes/storefront-checkout/internal/razorpay"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

func init() {
	// Initialize logger
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)
}

func main() {
	port := getEnv("PORT", "8082")
	keyID := getEnv("RAZORPAY_KEY_ID", "")
	keySecret := getEnv("RAZORPAY_KEY_SECRET", "")

	// Without a key id gateway orders are issued locally
	var gateway razorpay.Gateway = razorpay.Sandbox{}
	mode := "sandbox"
	if keyID != "" {
		gateway = razorpay.NewClient(getEnv("RAZORPAY_BASE_URL", razorpay.DefaultBaseURL), keyID, keySecret)
		mode = "live"
	}
	if keySecret == "" {
		log.Warn("RAZORPAY_KEY_SECRET is not set, every payment signature will fail verification")
	}

	router := gin.Default()

	// Add Prometheus middleware
	router.Use(metrics.PrometheusMiddleware("payment-service"))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	razorpay.NewHandler(gateway, keySecret, mode).RegisterRoutes(router)

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	log.WithField("mode", mode).Info("Payment Service starting on port " + port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}

// getEnv gets environment variable with fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
