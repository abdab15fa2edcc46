package checkout

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ashendes/storefront-checkout/internal/metrics"
	"github.com/ashendes/storefront-checkout/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// LedgerStore keeps attempts that were paid for but have no stored order,
// so they outlive the process
type LedgerStore interface {
	Save(ctx context.Context, attempt Attempt) error
	Delete(ctx context.Context, id string) error
	Load(ctx context.Context) ([]Attempt, error)
}

const storeTimeout = 2 * time.Second

// Attempt records one pass through the checkout flow
type Attempt struct {
	ID               string                      `json:"id"`
	SessionID        string                      `json:"session_id"`
	State            State                       `json:"state"`
	Form             models.CheckoutForm         `json:"form"`
	Amount           decimal.Decimal             `json:"amount"`
	Currency         string                      `json:"currency"`
	GatewayOrder     *models.GatewayOrder        `json:"gateway_order,omitempty"`
	Confirmation     *models.PaymentConfirmation `json:"-"`
	PaymentID        string                      `json:"payment_id,omitempty"`
	Items            []models.CartLine           `json:"items"`
	PersistedOrderID string                      `json:"persisted_order_id,omitempty"`
	FailureReason    string                      `json:"failure_reason,omitempty"`
	CreatedAt        time.Time                   `json:"created_at"`
	UpdatedAt        time.Time                   `json:"updated_at"`
}

// Persisted reports whether the backend holds a durable order for this attempt
func (a Attempt) Persisted() bool {
	return a.State == StatePersisted
}

// ServerPending reports whether the customer was charged but no order is stored
func (a Attempt) ServerPending() bool {
	return a.State.IsConfirmed() && !a.Persisted()
}

func (a Attempt) clone() Attempt {
	out := a
	out.Items = make([]models.CartLine, len(a.Items))
	copy(out.Items, a.Items)
	if a.GatewayOrder != nil {
		g := *a.GatewayOrder
		out.GatewayOrder = &g
	}
	if a.Confirmation != nil {
		c := *a.Confirmation
		out.Confirmation = &c
	}
	return out
}

// Ledger keeps checkout attempts so client-confirmed and server-persisted
// orders can be told apart. Settled attempts are dropped by Prune; attempts
// that are paid but not stored are also written to the store, if any.
type Ledger struct {
	attempts map[string]*Attempt
	mutex    sync.RWMutex
	now      func() time.Time
	store    LedgerStore
}

func NewLedger() *Ledger {
	return &Ledger{
		attempts: make(map[string]*Attempt),
		now:      time.Now,
	}
}

// NewPersistentLedger restores the pending attempts held by store. An attempt
// whose verification was interrupted goes back to StateConfirmedOptimistic.
func NewPersistentLedger(ctx context.Context, store LedgerStore) (*Ledger, error) {
	saved, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pending attempts: %w", err)
	}

	l := NewLedger()
	l.store = store
	for i := range saved {
		attempt := saved[i].clone()
		if attempt.State == StateVerifying {
			attempt.State = StateConfirmedOptimistic
		}
		l.attempts[attempt.ID] = &attempt
	}
	if len(saved) > 0 {
		log.WithField("attempts", len(saved)).Info("Restored pending checkout attempts")
	}
	return l, nil
}

// Create registers a new attempt in StateIdle
func (l *Ledger) Create(sessionID string, form models.CheckoutForm, amount decimal.Decimal, currency string, items []models.CartLine) Attempt {
	now := l.now().UTC()
	attempt := &Attempt{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		State:     StateIdle,
		Form:      form,
		Amount:    amount,
		Currency:  currency,
		Items:     items,
		CreatedAt: now,
		UpdatedAt: now,
	}

	l.mutex.Lock()
	l.attempts[attempt.ID] = attempt
	l.mutex.Unlock()

	metrics.CheckoutAttemptsTotal.WithLabelValues(StateIdle.String()).Inc()
	return attempt.clone()
}

// Get returns a copy of the attempt
func (l *Ledger) Get(id string) (Attempt, error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	attempt, exists := l.attempts[id]
	if !exists {
		return Attempt{}, ErrAttemptNotFound
	}
	return attempt.clone(), nil
}

// Transition moves the attempt to state to, applying mutate under the lock
func (l *Ledger) Transition(id string, to State, mutate func(*Attempt)) (Attempt, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	attempt, exists := l.attempts[id]
	if !exists {
		return Attempt{}, ErrAttemptNotFound
	}
	if !CanTransitionTo(attempt.State, to) {
		return attempt.clone(), fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, attempt.State, to)
	}

	wasPending := attempt.ServerPending()
	attempt.State = to
	attempt.UpdatedAt = l.now().UTC()
	if mutate != nil {
		mutate(attempt)
	}
	updated := attempt.clone()
	l.persist(updated, wasPending)

	metrics.CheckoutAttemptsTotal.WithLabelValues(to.String()).Inc()
	return updated, nil
}

// persist mirrors pending attempts to the store. Called with the lock held so
// writes for one attempt reach the store in transition order.
func (l *Ledger) persist(a Attempt, wasPending bool) {
	if l.store == nil || (!wasPending && !a.ServerPending()) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	var err error
	if a.ServerPending() {
		err = l.store.Save(ctx, a)
	} else {
		err = l.store.Delete(ctx, a.ID)
	}
	if err != nil {
		log.WithFields(log.Fields{
			"attempt_id": a.ID,
			"state":      a.State,
		}).WithError(err).Error("Failed to update stored checkout attempt")
	}
}

// Prune drops settled or abandoned attempts last updated before now minus
// retention. Attempts that are paid but not stored are always kept.
func (l *Ledger) Prune(retention time.Duration) int {
	cutoff := l.now().UTC().Add(-retention)

	l.mutex.Lock()
	defer l.mutex.Unlock()

	removed := 0
	for id, attempt := range l.attempts {
		if attempt.ServerPending() || !attempt.UpdatedAt.Before(cutoff) {
			continue
		}
		delete(l.attempts, id)
		removed++
	}
	return removed
}

// RunJanitor prunes the ledger every interval until ctx is done
func (l *Ledger) RunJanitor(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := l.Prune(retention); removed > 0 {
				log.WithField("removed", removed).Debug("Pruned checkout attempts")
			}
		}
	}
}

// List returns attempts in any of the given states, oldest first. No states means all.
func (l *Ledger) List(states ...State) []Attempt {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	out := []Attempt{}
	for _, attempt := range l.attempts {
		if len(states) == 0 || containsState(states, attempt.State) {
			out = append(out, attempt.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Pending returns attempts the customer paid for that have no stored order
func (l *Ledger) Pending() []Attempt {
	return l.List(StateConfirmedOptimistic, StateVerifying, StatePersistFailed)
}

func containsState(states []State, s State) bool {
	for _, candidate := range states {
		if candidate == s {
			return true
		}
	}
	return false
}
