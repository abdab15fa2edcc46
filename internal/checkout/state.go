package checkout

// State is the lifecycle position of one checkout attempt
type State string

const (
	StateIdle                 State = "IDLE"
	StateCreatingGatewayOrder State = "CREATING_GATEWAY_ORDER"
	StateAwaitingPayment      State = "AWAITING_PAYMENT"
	StateCancelled            State = "CANCELLED"
	StateFailed               State = "FAILED"
	// StateConfirmedOptimistic means the gateway reported success and the
	// customer sees the confirmation, but no order has been stored yet
	StateConfirmedOptimistic State = "CONFIRMED_OPTIMISTIC"
	StateVerifying           State = "VERIFYING"
	StatePersisted           State = "PERSISTED"
	StatePersistFailed       State = "PERSIST_FAILED"
)

var transitions = map[State][]State{
	StateIdle:                 {StateCreatingGatewayOrder},
	StateCreatingGatewayOrder: {StateAwaitingPayment, StateFailed},
	StateAwaitingPayment:      {StateCancelled, StateFailed, StateConfirmedOptimistic},
	StateConfirmedOptimistic:  {StateVerifying},
	StateVerifying:            {StatePersisted, StatePersistFailed},
}

// CanTransitionTo reports whether the state machine allows from -> to
func CanTransitionTo(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s State) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// IsConfirmed reports whether the customer has already been shown the confirmation
func (s State) IsConfirmed() bool {
	switch s {
	case StateConfirmedOptimistic, StateVerifying, StatePersisted, StatePersistFailed:
		return true
	}
	return false
}

// ReturnsToForm reports whether the attempt ended and the customer is back on the form
func (s State) ReturnsToForm() bool {
	return s == StateCancelled || s == StateFailed
}

// String representation (for logging)
func (s State) String() string {
	return string(s)
}

// ParseState converts a query value to a State
func ParseState(value string) (State, bool) {
	s := State(value)
	if _, ok := transitions[s]; ok {
		return s, true
	}
	switch s {
	case StateCancelled, StateFailed, StatePersisted, StatePersistFailed:
		return s, true
	}
	return "", false
}
