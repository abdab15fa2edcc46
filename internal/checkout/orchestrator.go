package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ashendes/storefront-checkout/internal/cart"
	"github.com/ashendes/storefront-checkout/internal/models"
	"github.com/ashendes/storefront-checkout/internal/patterns"
	"github.com/ashendes/storefront-checkout/internal/pricing"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// FinalizeTaskName labels the background verify-and-persist task
const FinalizeTaskName = "finalize-order"

// OrderIntentService creates gateway orders
type OrderIntentService interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency string) (*models.GatewayOrder, error)
}

// VerificationService validates payment signatures
type VerificationService interface {
	Verify(ctx context.Context, confirmation models.PaymentConfirmation) (bool, error)
}

// OrderPersistenceService stores confirmed orders
type OrderPersistenceService interface {
	AddOrder(ctx context.Context, snapshot *models.OrderSnapshot) (*models.PersistedOrder, error)
}

// TaskSubmitter hands work to a background runner
type TaskSubmitter interface {
	Submit(ctx context.Context, task patterns.Task) error
}

// Dependencies are the collaborators of the orchestrator
type Dependencies struct {
	Carts    cart.Store
	Intents  OrderIntentService
	Verifier VerificationService
	Orders   OrderPersistenceService
	Tasks    TaskSubmitter
	Ledger   *Ledger
}

// Config holds the orchestrator settings
type Config struct {
	// KeyID is the public gateway key handed to the payment widget
	KeyID  string
	Policy pricing.Policy
}

// Orchestrator drives a session from a filled cart to a confirmed order
type Orchestrator struct {
	carts    cart.Store
	intents  OrderIntentService
	verifier VerificationService
	orders   OrderPersistenceService
	tasks    TaskSubmitter
	ledger   *Ledger
	keyID    string
	policy   pricing.Policy
}

func NewOrchestrator(deps Dependencies, cfg Config) *Orchestrator {
	ledger := deps.Ledger
	if ledger == nil {
		ledger = NewLedger()
	}
	policy := cfg.Policy
	if policy.Currency == "" {
		policy = pricing.DefaultPolicy()
	}
	return &Orchestrator{
		carts:    deps.Carts,
		intents:  deps.Intents,
		verifier: deps.Verifier,
		orders:   deps.Orders,
		tasks:    deps.Tasks,
		ledger:   ledger,
		keyID:    cfg.KeyID,
		policy:   policy,
	}
}

// View renders the checkout page for a session
func (o *Orchestrator) View(ctx context.Context, sessionID string, method models.DeliveryMethod) (*Outcome, error) {
	lines, err := o.carts.Lines(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(lines) == 0 {
		return &Outcome{Screen: ScreenEmptyCart}, nil
	}
	if method == "" {
		method = models.DeliveryMethodDelivery
	}
	return &Outcome{Screen: ScreenForm, Summary: o.summary(lines, method, "")}, nil
}

// Submit validates the form and creates a gateway order for the cart total.
// On success the outcome carries the payment widget options.
func (o *Orchestrator) Submit(ctx context.Context, sessionID string, form models.CheckoutForm) (*Outcome, error) {
	lines, err := o.carts.Lines(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(lines) == 0 {
		return &Outcome{Screen: ScreenEmptyCart}, nil
	}

	form = trimForm(form)
	summary := o.summary(lines, form.DeliveryMethod, form.DiscountCode)
	if fieldErrors := ValidateForm(form); len(fieldErrors) > 0 {
		return &Outcome{Screen: ScreenForm, FieldErrors: fieldErrors, Summary: summary}, nil
	}

	attempt := o.ledger.Create(sessionID, form, summary.Total, o.policy.Currency, lines)
	entry := log.WithFields(log.Fields{
		"attempt_id": attempt.ID,
		"session_id": sessionID,
		"amount":     summary.Total.String(),
		"items":      len(lines),
	})

	if _, err := o.ledger.Transition(attempt.ID, StateCreatingGatewayOrder, nil); err != nil {
		return nil, err
	}
	entry.Info("Creating gateway order")

	gatewayOrder, err := o.intents.CreateOrder(ctx, summary.Total, o.policy.Currency)
	if err != nil {
		entry.WithError(err).Error("Failed to create gateway order")
		failed, tErr := o.ledger.Transition(attempt.ID, StateFailed, func(a *Attempt) {
			a.FailureReason = err.Error()
		})
		if tErr != nil {
			return nil, tErr
		}
		return &Outcome{
			Screen:    ScreenForm,
			AttemptID: failed.ID,
			State:     failed.State,
			Toast:     errorToast("We could not start the payment. Please try again."),
			Summary:   summary,
		}, nil
	}

	awaiting, err := o.ledger.Transition(attempt.ID, StateAwaitingPayment, func(a *Attempt) {
		a.GatewayOrder = gatewayOrder
	})
	if err != nil {
		return nil, err
	}
	entry.WithField("gateway_order_id", gatewayOrder.ID).Info("Awaiting payment")

	return &Outcome{
		Screen:     ScreenPayment,
		AttemptID:  awaiting.ID,
		State:      awaiting.State,
		Submitting: true,
		Summary:    summary,
		Widget: &models.WidgetOptions{
			Key:      o.keyID,
			Amount:   gatewayOrder.Amount,
			Currency: gatewayOrder.Currency,
			OrderID:  gatewayOrder.ID,
			Prefill: models.WidgetPrefill{
				Name:    form.FullName,
				Email:   form.Email,
				Contact: form.Phone,
			},
		},
	}, nil
}

// Dismiss handles the customer closing the payment widget. It is not an
// error: the customer returns to the form with the cart untouched.
func (o *Orchestrator) Dismiss(ctx context.Context, sessionID, attemptID string) (*Outcome, error) {
	attempt, err := o.sessionAttempt(sessionID, attemptID)
	if err != nil {
		return nil, err
	}
	if done := o.settled(ctx, attempt); done != nil {
		return done, nil
	}

	cancelled, err := o.ledger.Transition(attempt.ID, StateCancelled, nil)
	if err != nil {
		return nil, err
	}
	log.WithField("attempt_id", attempt.ID).Info("Payment widget dismissed")
	return o.formOutcome(ctx, cancelled, nil)
}

// Fail handles a payment the gateway declined. The gateway order is abandoned.
func (o *Orchestrator) Fail(ctx context.Context, sessionID, attemptID, reason string) (*Outcome, error) {
	attempt, err := o.sessionAttempt(sessionID, attemptID)
	if err != nil {
		return nil, err
	}
	if done := o.settled(ctx, attempt); done != nil {
		return done, nil
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "Payment could not be completed"
	}
	failed, err := o.ledger.Transition(attempt.ID, StateFailed, func(a *Attempt) {
		a.FailureReason = reason
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"attempt_id": attempt.ID,
		"reason":     reason,
	}).Warn("Payment failed at gateway")
	return o.formOutcome(ctx, failed, errorToast("Payment failed: "+reason))
}

// Confirm handles the widget's success callback. The confirmation is shown
// and the cart cleared immediately; verification and persistence run in the
// background and never change what the customer sees.
func (o *Orchestrator) Confirm(ctx context.Context, sessionID, attemptID string, confirmation models.PaymentConfirmation) (*Outcome, error) {
	attempt, err := o.sessionAttempt(sessionID, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.State.IsConfirmed() {
		return confirmationOutcome(attempt), nil
	}
	if attempt.State != StateAwaitingPayment {
		return nil, fmt.Errorf("%w: confirm in state %s", ErrIllegalTransition, attempt.State)
	}
	if attempt.GatewayOrder == nil || confirmation.OrderID != attempt.GatewayOrder.ID {
		return nil, ErrOrderMismatch
	}

	entry := log.WithFields(log.Fields{
		"attempt_id":       attempt.ID,
		"gateway_order_id": confirmation.OrderID,
		"payment_id":       confirmation.PaymentID,
	})

	items := attempt.Items
	lines, err := o.carts.Lines(ctx, sessionID)
	switch {
	case err != nil:
		entry.WithError(err).Warn("Could not read cart at confirmation, using submitted items")
	case len(lines) == 0:
		entry.Warn("Cart emptied before confirmation, using submitted items")
	default:
		items = lines
	}

	confirmed, err := o.ledger.Transition(attempt.ID, StateConfirmedOptimistic, func(a *Attempt) {
		c := confirmation
		a.Confirmation = &c
		a.PaymentID = confirmation.PaymentID
		a.Items = items
	})
	if err != nil {
		if confirmed.State.IsConfirmed() {
			return confirmationOutcome(confirmed), nil
		}
		return nil, err
	}
	entry.Info("Payment confirmed by gateway")

	if err := o.carts.Clear(ctx, sessionID); err != nil {
		entry.WithError(err).Error("Failed to clear cart after payment")
	}

	if err := o.scheduleFinalize(ctx, confirmed); err != nil {
		entry.WithError(err).Error("Failed to schedule order finalization; attempt stays pending")
	}

	return confirmationOutcome(confirmed), nil
}

// Resume schedules finalization again for confirmed attempts that were never
// verified and were last updated at least olderThan ago. It returns how many
// were scheduled.
func (o *Orchestrator) Resume(ctx context.Context, olderThan time.Duration) int {
	cutoff := o.ledger.now().UTC().Add(-olderThan)

	scheduled := 0
	for _, attempt := range o.ledger.List(StateConfirmedOptimistic) {
		if attempt.UpdatedAt.After(cutoff) {
			continue
		}
		if err := o.scheduleFinalize(ctx, attempt); err != nil {
			log.WithField("attempt_id", attempt.ID).WithError(err).Warn("Could not resume order finalization")
			continue
		}
		scheduled++
	}
	if scheduled > 0 {
		log.WithField("attempts", scheduled).Info("Resumed order finalization")
	}
	return scheduled
}

func (o *Orchestrator) scheduleFinalize(ctx context.Context, a Attempt) error {
	return o.tasks.Submit(ctx, patterns.Task{
		Name: FinalizeTaskName,
		Fields: log.Fields{
			"attempt_id": a.ID,
			"payment_id": a.PaymentID,
		},
		Run: func(taskCtx context.Context) error {
			return o.finalize(taskCtx, a.ID)
		},
	})
}

// finalize verifies the payment signature and stores the order. It runs in
// the background; its result only moves the attempt to Persisted or PersistFailed.
func (o *Orchestrator) finalize(ctx context.Context, attemptID string) error {
	attempt, err := o.ledger.Transition(attemptID, StateVerifying, nil)
	if err != nil {
		return err
	}

	if attempt.Confirmation == nil {
		return o.persistFailed(attemptID, ErrMissingConfirmation)
	}

	ok, err := o.verifier.Verify(ctx, *attempt.Confirmation)
	if err != nil {
		return o.persistFailed(attemptID, fmt.Errorf("verify payment: %w", err))
	}
	if !ok {
		return o.persistFailed(attemptID, ErrVerificationFailed)
	}

	order, err := o.orders.AddOrder(ctx, o.snapshot(attempt))
	if err != nil {
		return o.persistFailed(attemptID, fmt.Errorf("persist order: %w", err))
	}

	if _, err := o.ledger.Transition(attemptID, StatePersisted, func(a *Attempt) {
		a.PersistedOrderID = order.ID
	}); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"attempt_id": attemptID,
		"order_id":   order.ID,
	}).Info("Order persisted")
	return nil
}

func (o *Orchestrator) persistFailed(attemptID string, cause error) error {
	if _, err := o.ledger.Transition(attemptID, StatePersistFailed, func(a *Attempt) {
		a.FailureReason = cause.Error()
	}); err != nil {
		return fmt.Errorf("%v (and %w)", cause, err)
	}
	return cause
}

func (o *Orchestrator) snapshot(a Attempt) *models.OrderSnapshot {
	return &models.OrderSnapshot{
		CustomerName:  a.Form.FullName,
		CustomerEmail: a.Form.Email,
		CustomerPhone: a.Form.Phone,
		Address:       a.Form.Address,
		City:          a.Form.City,
		Pincode:       a.Form.ZipCode,
		Total:         a.Amount,
		Currency:      a.Currency,
		Items:         a.Items,
		PaymentID:     a.PaymentID,
		OrderID:       a.GatewayOrder.ID,
	}
}

// Attempt returns one attempt
func (o *Orchestrator) Attempt(id string) (Attempt, error) {
	return o.ledger.Get(id)
}

// Attempts lists attempts in the given states
func (o *Orchestrator) Attempts(states ...State) []Attempt {
	return o.ledger.List(states...)
}

// Pending lists attempts that were paid for but are not stored
func (o *Orchestrator) Pending() []Attempt {
	return o.ledger.Pending()
}

func (o *Orchestrator) sessionAttempt(sessionID, attemptID string) (Attempt, error) {
	attempt, err := o.ledger.Get(attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if attempt.SessionID != sessionID {
		return Attempt{}, ErrAttemptNotFound
	}
	return attempt, nil
}

// settled returns the outcome to repeat when a widget callback arrives for an
// attempt that already left AwaitingPayment
func (o *Orchestrator) settled(ctx context.Context, a Attempt) *Outcome {
	switch {
	case a.State.IsConfirmed():
		return confirmationOutcome(a)
	case a.State.ReturnsToForm():
		out, err := o.formOutcome(ctx, a, nil)
		if err != nil {
			return &Outcome{Screen: ScreenForm, AttemptID: a.ID, State: a.State}
		}
		return out
	}
	return nil
}

func (o *Orchestrator) formOutcome(ctx context.Context, a Attempt, toast *Toast) (*Outcome, error) {
	lines, err := o.carts.Lines(ctx, a.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	out := &Outcome{
		Screen:    ScreenForm,
		AttemptID: a.ID,
		State:     a.State,
		Toast:     toast,
	}
	if len(lines) == 0 {
		out.Screen = ScreenEmptyCart
		return out, nil
	}
	out.Summary = o.summary(lines, a.Form.DeliveryMethod, a.Form.DiscountCode)
	return out, nil
}

func (o *Orchestrator) summary(lines []models.CartLine, method models.DeliveryMethod, discountCode string) *Summary {
	return &Summary{
		Lines:    lines,
		Subtotal: o.policy.Subtotal(lines),
		Shipping: o.policy.Shipping(method),
		Discount: o.policy.Discount(discountCode),
		Total:    o.policy.Total(lines, method, discountCode),
		Currency: o.policy.Currency,
	}
}
