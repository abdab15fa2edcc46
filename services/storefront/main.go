package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ashendes/storefront-checkout/internal/api"
	"github.com/ashendes/storefront-checkout/internal/cart"
	"github.com/ashendes/storefront-checkout/internal/catalog"
	"github.com/ashendes/storefront-checkout/internal/checkout"
	"github.com/ashendes/storefront-checkout/internal/clients"
	"github.com/ashendes/storefront-checkout/internal/metrics"
	"github.com/ashendes/storefront-checkout/internal/patterns"
	"github.com/ashendes/storefront-checkout/internal/pricing"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

func init() {
	// Initialize logger
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)
}

func main() {
	port := getEnv("PORT", "8000")
	paymentServiceURL := getEnv("PAYMENT_SERVICE_URL", "http://localhost:8082")
	orderServiceURL := getEnv("ORDER_SERVICE_URL", "http://localhost:8080")
	catalogServiceURL := getEnv("CATALOG_SERVICE_URL", "")
	redisAddr := getEnv("REDIS_ADDR", "")
	keyID := getEnv("RAZORPAY_KEY_ID", "rzp_test_sandbox")

	policy := pricing.DefaultPolicy()
	if raw := getEnv("FLAT_SHIPPING", ""); raw != "" {
		shipping, err := decimal.NewFromString(raw)
		if err != nil || shipping.IsNegative() {
			log.Fatal("Invalid FLAT_SHIPPING: ", raw)
		}
		policy.FlatShipping = shipping
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Cart and attempt storage
	var carts cart.Store = cart.NewMemoryStore()
	ledger := checkout.NewLedger()
	if redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer rdb.Close()

		pingCtx, cancel := patterns.WithTimeout(ctx, patterns.DefaultTimeout)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatal("Failed to connect to redis: ", err)
		}
		carts = cart.NewRedisStore(rdb, cart.DefaultCartTTL)

		ledger, err = checkout.NewPersistentLedger(ctx, checkout.NewRedisLedgerStore(rdb))
		if err != nil {
			log.Fatal("Failed to restore checkout attempts: ", err)
		}
	}
	go ledger.RunJanitor(ctx, time.Minute, getEnvDuration("ATTEMPT_RETENTION", 24*time.Hour))

	// Downstream services
	payments := clients.NewPaymentClient(paymentServiceURL)
	orderStore := clients.NewOrdersClient(orderServiceURL)
	guards := append(payments.Guards(), orderStore.Guards()...)

	var products cart.ProductResolver = catalog.NewSeeded()
	if catalogServiceURL != "" {
		catalogClient := clients.NewCatalogClient(catalogServiceURL)
		products = catalogClient
		guards = append(guards, catalogClient.Guards()...)
	}

	// Background verification and persistence
	runner := patterns.NewTaskRunner(
		getEnvInt("TASK_WORKERS", 4),
		getEnvInt("TASK_QUEUE_SIZE", 256),
		2*patterns.SlowServiceTimeout,
	)

	orchestrator := checkout.NewOrchestrator(checkout.Dependencies{
		Carts:    carts,
		Intents:  payments,
		Verifier: payments,
		Orders:   orderStore,
		Tasks:    runner,
		Ledger:   ledger,
	}, checkout.Config{KeyID: keyID, Policy: policy})
	orchestrator.Resume(ctx, 0)

	router := gin.Default()

	// Add Prometheus middleware
	router.Use(metrics.PrometheusMiddleware("storefront"))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	operatorToken := getEnv("OPERATOR_TOKEN", "")
	if operatorToken == "" {
		log.Warn("OPERATOR_TOKEN not set, operator endpoints are disabled")
	}
	api.NewStorefront(carts, products, orchestrator, policy, guards...).
		WithOperatorToken(operatorToken).
		RegisterRoutes(router)

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		log.WithFields(log.Fields{
			"payment_url": paymentServiceURL,
			"order_url":   orderServiceURL,
			"catalog_url": catalogServiceURL,
			"redis":       redisAddr != "",
		}).Info("Storefront starting on port " + port)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down storefront")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}
	// Confirmed payments still waiting to be stored
	if err := runner.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Background tasks did not drain")
	}
	for _, a := range orchestrator.Pending() {
		log.WithFields(log.Fields{
			"attempt_id": a.ID,
			"payment_id": a.PaymentID,
			"state":      a.State,
		}).Warn("Paid checkout attempt has no stored order")
	}
}

// getEnv gets environment variable with fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return value
}
