package orders

import (
	"context"
	"testing"
	"time"

	"github.com/ashendes/storefront-checkout/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) *PostgresRepository {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	pgContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, RunMigrations(dsn))
	repo, err := NewPostgresRepository(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(repo.Close)
	return repo
}

func newTestOrder(paymentID string, createdAt time.Time) *models.PersistedOrder {
	return &models.PersistedOrder{
		ID:            uuid.New().String(),
		CustomerName:  "Asha Rao",
		CustomerEmail: "asha@example.com",
		CustomerPhone: "9876543210",
		Address:       "12 MG Road",
		City:          "Bengaluru",
		Pincode:       "560001",
		Total:         decimal.RequireFromString("1050.50"),
		Currency:      "INR",
		Items: []models.CartLine{
			{ProductID: "tee-01", Name: "Tee", UnitPrice: decimal.RequireFromString("500.25"), Quantity: 2},
		},
		PaymentID: paymentID,
		OrderID:   "order_" + paymentID,
		Status:    models.OrderStatusPlaced,
		CreatedAt: createdAt,
	}
}

func TestPostgresRepository_CreateAndGet(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	order := newTestOrder("pay_pg_1", time.Now().UTC().Truncate(time.Microsecond))

	require.NoError(t, repo.Create(ctx, order))

	got, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	assert.True(t, order.Total.Equal(got.Total))
	assert.Equal(t, order.PaymentID, got.PaymentID)
	require.Len(t, got.Items, 1)
	assert.True(t, order.Items[0].UnitPrice.Equal(got.Items[0].UnitPrice))
	assert.True(t, order.CreatedAt.Equal(got.CreatedAt))
}

func TestPostgresRepository_DuplicatePayment(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestOrder("pay_pg_dup", time.Now())))
	err := repo.Create(ctx, newTestOrder("pay_pg_dup", time.Now()))

	assert.ErrorIs(t, err, ErrDuplicatePayment)
}

func TestPostgresRepository_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.Get(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = repo.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestPostgresRepository_ListByEmail(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, repo.Create(ctx, newTestOrder("pay_pg_a", base)))
	require.NoError(t, repo.Create(ctx, newTestOrder("pay_pg_b", base.Add(time.Minute))))

	orders, err := repo.ListByEmail(ctx, "ASHA@example.com")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "pay_pg_b", orders[0].PaymentID)

	orders, err = repo.ListByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPostgresRepository_EmailLookupUsesIndex(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	var indexDef string
	err := repo.pool.QueryRow(ctx,
		`SELECT indexdef FROM pg_indexes WHERE tablename = 'orders' AND indexname = 'orders_customer_email_idx'`,
	).Scan(&indexDef)
	require.NoError(t, err)
	assert.Contains(t, indexDef, "lower(customer_email)")

	tx, err := repo.pool.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `SET LOCAL enable_seqscan = off`)
	require.NoError(t, err)

	var plan string
	err = tx.QueryRow(ctx,
		`EXPLAIN SELECT id FROM orders WHERE lower(customer_email) = lower($1) ORDER BY created_at DESC`,
		"asha@example.com",
	).Scan(&plan)
	require.NoError(t, err)
	assert.Contains(t, plan, "orders_customer_email_idx")
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@h:5432/db", migrateURL("postgres://u:p@h:5432/db"))
	assert.Equal(t, "pgx5://u@h/db", migrateURL("postgresql://u@h/db"))
	assert.Equal(t, "pgx5://x", migrateURL("pgx5://x"))
}
