package rental

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pendingGatewayOrder seeds a gateway-method order with an attached
// payment intent, the state a webhook finds the system in.
func pendingGatewayOrder(t *testing.T, pool *pgxpool.Pool, intentID string) Order {
	t.Helper()
	ctx := context.Background()
	storeID := seedStore(t, pool)
	variantID := seedVariant(t, pool, 1000, "EUR")
	seedStock(t, pool, storeID, variantID, 1)

	cart := seedCart(t, pool, "profile-1")
	addLine(t, pool, cart.ID, storeID, variantID, 1, 1, 3)

	order, err := (&CheckoutRepo{DB: pool}).Checkout(ctx, cart.ID, MethodGateway, time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, OrderPending, order.Status)

	repo := &PaymentRepo{DB: pool}
	p := Payment{
		ID: uuid.NewString(), OrderID: order.ID,
		AmountCents: order.TotalCents, Currency: order.Currency,
		Status: "pending", CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, p))
	require.NoError(t, repo.AttachIntent(ctx, p.ID, intentID, "cs_test", "requires_payment_method"))
	return order
}

func TestApplyGatewayOutcome_ConfirmsOrder(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	order := pendingGatewayOrder(t, pool, "pi_1")
	repo := &PaymentRepo{DB: pool}

	now := time.Now().UTC()
	p, err := repo.ApplyGatewayOutcome(ctx, "pi_1", "succeeded", "", OrderConfirmed, now)
	require.NoError(t, err)
	assert.Equal(t, "succeeded", p.Status)

	o, err := (&OrderRepo{DB: pool}).Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderConfirmed, o.Status)
	require.NotNil(t, o.PaidAt)
}

// A duplicate success delivery must not move paid_at or anything else.
func TestApplyGatewayOutcome_DuplicateSuccessIsNoOp(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	order := pendingGatewayOrder(t, pool, "pi_1")
	repo := &PaymentRepo{DB: pool}
	orders := &OrderRepo{DB: pool}

	first := time.Now().UTC().Truncate(time.Millisecond)
	_, err := repo.ApplyGatewayOutcome(ctx, "pi_1", "succeeded", "", OrderConfirmed, first)
	require.NoError(t, err)
	o1, err := orders.Get(ctx, order.ID)
	require.NoError(t, err)

	_, err = repo.ApplyGatewayOutcome(ctx, "pi_1", "succeeded", "", OrderConfirmed, first.Add(time.Hour))
	require.NoError(t, err)
	o2, err := orders.Get(ctx, order.ID)
	require.NoError(t, err)

	require.NotNil(t, o2.PaidAt)
	assert.True(t, o1.PaidAt.Equal(*o2.PaidAt), "paid_at pinned to the first delivery")
	assert.Equal(t, o1.UpdatedAt, o2.UpdatedAt)
}

func TestApplyGatewayOutcome_CancelCascadesToItems(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	order := pendingGatewayOrder(t, pool, "pi_1")
	repo := &PaymentRepo{DB: pool}

	_, err := repo.ApplyGatewayOutcome(ctx, "pi_1", "canceled", "", OrderCancelled, time.Now().UTC())
	require.NoError(t, err)

	orders := &OrderRepo{DB: pool}
	o, err := orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderCancelled, o.Status)
	assert.Nil(t, o.PaidAt)

	items, err := orders.Items(ctx, order.ID)
	require.NoError(t, err)
	for _, it := range items {
		assert.Equal(t, ItemCancelled, it.Status)
	}
}

func TestApplyGatewayOutcome_UnknownIntent(t *testing.T) {
	pool := setupTestDB(t)

	_, err := (&PaymentRepo{DB: pool}).ApplyGatewayOutcome(context.Background(),
		"pi_missing", "succeeded", "", OrderConfirmed, time.Now().UTC())
	assert.ErrorIs(t, err, ErrNotFound)
}

// LatestByOrder must distinguish "nothing yet" from a query failure; the
// payments endpoint keys on ErrNotFound to decide whether to open one.
func TestLatestByOrder_NotFound(t *testing.T) {
	pool := setupTestDB(t)

	_, err := (&PaymentRepo{DB: pool}).LatestByOrder(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}
