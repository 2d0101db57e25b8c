package forms

import (
	"context"
	"sync"

	"github.com/eldtechnologies/hookcase/internal/metrics"
)

// Reducer computes the next state of an action from the previous state and
// the submitted payload.
type Reducer[S, P any] func(ctx context.Context, prev S, payload P) (S, error)

// Action holds the last state produced by a reducer. Dispatches run one at a
// time, each seeing the state left by the previous one.
type Action[S, P any] struct {
	reduce Reducer[S, P]

	dispatchMu sync.Mutex

	mu      sync.Mutex
	state   S
	pending bool
}

// NewAction creates an action starting at initial.
func NewAction[S, P any](reduce Reducer[S, P], initial S) *Action[S, P] {
	return &Action[S, P]{reduce: reduce, state: initial}
}

// Dispatch runs the reducer and stores its result. A failed reduction leaves
// the state unchanged.
func (a *Action[S, P]) Dispatch(ctx context.Context, payload P) (S, error) {
	a.dispatchMu.Lock()
	defer a.dispatchMu.Unlock()

	a.mu.Lock()
	prev := a.state
	a.pending = true
	a.mu.Unlock()

	next, err := a.reduce(ctx, prev, payload)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = false
	if err != nil {
		return prev, err
	}
	a.state = next
	return next, nil
}

// State returns the last state and whether a dispatch is running.
func (a *Action[S, P]) State() (S, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state, a.pending
}

// CartState is the feedback shown next to an add-to-cart form.
type CartState struct {
	Message string `json:"message,omitempty"`
	Status  string `json:"status,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// AddToCart only has item "1" in stock.
func AddToCart(_ context.Context, _ CartState, itemID string) (CartState, error) {
	if itemID == "1" {
		metrics.FormSubmissions.WithLabelValues(FormAction, "accepted").Inc()
		return CartState{Message: "Added to cart!", Status: StatusSuccess}, nil
	}
	metrics.FormSubmissions.WithLabelValues(FormAction, "rejected").Inc()
	return CartState{Message: "Out of stock!", Status: StatusFailure}, nil
}

// NewCartAction creates an action-state form for AddToCart.
func NewCartAction() *Action[CartState, string] {
	return NewAction[CartState, string](AddToCart, CartState{})
}
