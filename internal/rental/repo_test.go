package rental

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/gearbelt/rental-engine/internal/postgres"
)

// setupTestDB starts a throwaway Postgres, migrates it and returns a pool.
// The repositories run against the real schema so locking, constraints and
// the cart/order ownership flip are exercised for real.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	if testing.Short() {
		t.Skip("requires docker")
	}
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("rental"),
		tcpostgres.WithUsername("rental"),
		tcpostgres.WithPassword("rental"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, postgres.Migrate(dsn))

	pool, err := postgres.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func seedStore(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()
	id := uuid.NewString()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO stores(id, reference, address1, city, country)
		VALUES ($1, $2, '1 Depot Rd', 'Lyon', 'FR')`, id, "store-"+id[:8])
	require.NoError(t, err)
	return id
}

func seedVariant(t *testing.T, pool *pgxpool.Pool, priceCents int, currency string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO variants(id, sku, name, price_cents, currency)
		VALUES ($1, $2, 'Drill XL', $3, $4)`, id, "sku-"+id[:8], priceCents, currency)
	require.NoError(t, err)
	return id
}

func seedStock(t *testing.T, pool *pgxpool.Pool, storeID, variantID string, qty int) {
	t.Helper()
	_, err := (&StockRepo{DB: pool}).SetQuantity(context.Background(), storeID, variantID, qty)
	require.NoError(t, err)
}

func seedCart(t *testing.T, pool *pgxpool.Pool, profileID string) Cart {
	t.Helper()
	repo := &CartRepo{DB: pool}
	c, err := repo.GetOrCreateByProfile(context.Background(), profileID)
	require.NoError(t, err)
	require.NoError(t, repo.SetAddress(context.Background(), c.ID, Address{
		Address1: "2 Quai St", City: "Lyon", Postcode: "69001", Country: "FR",
	}))
	return c
}

func addLine(t *testing.T, pool *pgxpool.Pool, cartID, storeID, variantID string, qty, fromDay, toDay int) OrderItem {
	t.Helper()
	it, err := (&CartRepo{DB: pool}).AddItem(context.Background(),
		cartID, storeID, variantID, qty, day(fromDay), day(toDay))
	require.NoError(t, err)
	return it
}
