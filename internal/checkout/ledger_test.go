package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/ashendes/storefront-checkout/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to State
		allowed  bool
	}{
		{StateIdle, StateCreatingGatewayOrder, true},
		{StateCreatingGatewayOrder, StateAwaitingPayment, true},
		{StateCreatingGatewayOrder, StateFailed, true},
		{StateAwaitingPayment, StateCancelled, true},
		{StateAwaitingPayment, StateConfirmedOptimistic, true},
		{StateConfirmedOptimistic, StateVerifying, true},
		{StateVerifying, StatePersistFailed, true},
		{StateIdle, StateConfirmedOptimistic, false},
		{StateCancelled, StateConfirmedOptimistic, false},
		{StatePersisted, StateVerifying, false},
		{StateConfirmedOptimistic, StateCancelled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransitionTo(tt.from, tt.to))
		})
	}
}

func TestParseState(t *testing.T) {
	s, ok := ParseState("PERSIST_FAILED")
	assert.True(t, ok)
	assert.Equal(t, StatePersistFailed, s)

	_, ok = ParseState("persisted")
	assert.False(t, ok)
}

func TestLedger_TransitionRecordsChanges(t *testing.T) {
	l := NewLedger()
	items := []models.CartLine{{ProductID: "p1", Quantity: 1, UnitPrice: decimal.NewFromInt(10)}}
	a := l.Create("s1", models.CheckoutForm{}, decimal.NewFromInt(60), "INR", items)
	assert.Equal(t, StateIdle, a.State)

	_, err := l.Transition(a.ID, StateCreatingGatewayOrder, nil)
	require.NoError(t, err)
	updated, err := l.Transition(a.ID, StateAwaitingPayment, func(a *Attempt) {
		a.GatewayOrder = &models.GatewayOrder{ID: "order_1", Amount: 6000, Currency: "INR"}
	})
	require.NoError(t, err)
	assert.Equal(t, "order_1", updated.GatewayOrder.ID)

	_, err = l.Transition(a.ID, StatePersisted, nil)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = l.Transition("missing", StateCancelled, nil)
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestLedger_ReturnsCopies(t *testing.T) {
	l := NewLedger()
	items := []models.CartLine{{ProductID: "p1", Quantity: 1}}
	a := l.Create("s1", models.CheckoutForm{}, decimal.Zero, "INR", items)

	a.Items[0].Quantity = 99
	stored, err := l.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Items[0].Quantity)
}

func TestLedger_ListAndPending(t *testing.T) {
	l := NewLedger()
	cancelled := l.Create("s1", models.CheckoutForm{}, decimal.Zero, "INR", nil)
	paid := l.Create("s2", models.CheckoutForm{}, decimal.Zero, "INR", nil)

	for _, s := range []State{StateCreatingGatewayOrder, StateAwaitingPayment, StateCancelled} {
		_, err := l.Transition(cancelled.ID, s, nil)
		require.NoError(t, err)
	}
	for _, s := range []State{StateCreatingGatewayOrder, StateAwaitingPayment, StateConfirmedOptimistic} {
		_, err := l.Transition(paid.ID, s, nil)
		require.NoError(t, err)
	}

	assert.Len(t, l.List(), 2)
	assert.Len(t, l.List(StateCancelled), 1)

	pending := l.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, paid.ID, pending[0].ID)
	assert.True(t, pending[0].ServerPending())
	assert.False(t, pending[0].Persisted())
}

func TestLedger_PruneKeepsPaidAttempts(t *testing.T) {
	l := NewLedger()
	clock := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }

	cancelled := l.Create("s1", models.CheckoutForm{}, decimal.Zero, "INR", nil)
	for _, s := range []State{StateCreatingGatewayOrder, StateAwaitingPayment, StateCancelled} {
		_, err := l.Transition(cancelled.ID, s, nil)
		require.NoError(t, err)
	}
	paid := paidAttempt(t, l, "s2")
	persisted := paidAttempt(t, l, "s3")
	for _, s := range []State{StateVerifying, StatePersisted} {
		_, err := l.Transition(persisted.ID, s, nil)
		require.NoError(t, err)
	}
	abandoned := l.Create("s4", models.CheckoutForm{}, decimal.Zero, "INR", nil)

	clock = clock.Add(30 * time.Minute)
	assert.Zero(t, l.Prune(time.Hour))
	assert.Len(t, l.List(), 4)

	clock = clock.Add(2 * time.Hour)
	assert.Equal(t, 3, l.Prune(time.Hour))

	remaining := l.List()
	require.Len(t, remaining, 1)
	assert.Equal(t, paid.ID, remaining[0].ID)

	_, err := l.Get(abandoned.ID)
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestLedger_RunJanitorStopsWithContext(t *testing.T) {
	l := NewLedger()
	l.Create("s1", models.CheckoutForm{}, decimal.Zero, "INR", nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.RunJanitor(ctx, 5*time.Millisecond, 0)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(l.List()) == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
