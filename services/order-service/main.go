package main

import (
	"context"
	"net/http"
	"os"

	"github.com/ashendes/storefront-checkout/internal/metrics"
	"github.com/ashendes/storefront-checkout/internal/orders"
	"github.com/ashendes/storefront-checkout/internal/patterns"
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
	port := getEnv("PORT", "8080")
	databaseURL := getEnv("DATABASE_URL", "")
	kafkaBrokers := getEnv("KAFKA_BROKERS", "")

	var repo orders.Repository = orders.NewMemoryRepository()
	if databaseURL != "" {
		if err := orders.RunMigrations(databaseURL); err != nil {
			log.Fatal("Failed to migrate database: ", err)
		}

		ctx, cancel := patterns.WithTimeout(context.Background(), patterns.SlowServiceTimeout)
		pg, err := orders.NewPostgresRepository(ctx, databaseURL)
		cancel()
		if err != nil {
			log.Fatal("Failed to connect to database: ", err)
		}
		defer pg.Close()
		repo = pg
	} else {
		log.Warn("DATABASE_URL is not set, orders are kept in memory")
	}

	publisher := orders.NewKafkaPublisher(kafkaBrokers)
	defer publisher.Close()

	handler := orders.NewHandler(orders.NewService(repo, publisher))

	router := gin.Default()

	// Add Prometheus middleware
	router.Use(metrics.PrometheusMiddleware("order-service"))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	handler.RegisterRoutes(router)

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	log.WithFields(log.Fields{
		"postgres": databaseURL != "",
		"kafka":    publisher.Enabled(),
	}).Info("Order Service starting on port " + port)

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
