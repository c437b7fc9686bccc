// Package registry keeps the in-memory subscription store. Subscriptions are
// keyed by subscriber identity and survive only for the lifetime of the
// process; there is no removal operation, so the store grows with each new
// identity.
package registry

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"goldwatch/internal/pricing"
)

// Request carries raw registration parameters before normalization.
type Request struct {
	Identity string
	Unit     string
	Currency string
	Purity   int
	Lower    float64
	Upper    float64
}

// Subscription is one subscriber's tolerance band on a conversion basis.
// LastStatus starts unset so the first evaluation is always a transition.
type Subscription struct {
	Identity   string
	Unit       pricing.Unit
	Currency   pricing.Currency
	Purity     int
	Lower      decimal.Decimal
	Upper      decimal.Decimal
	LastStatus pricing.Status
}

// Entry is a live registry slot. Its mutex serializes the whole
// read-evaluate-write-dispatch sequence for one identity, so a
// registration-triggered evaluation cannot interleave with the periodic
// cycle on the same subscriber.
type Entry struct {
	mu  sync.Mutex
	sub Subscription
}

// Do runs fn with exclusive access to the subscription.
func (e *Entry) Do(fn func(s *Subscription)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.sub)
}

// View returns a copy of the subscription.
func (e *Entry) View() Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sub
}

// Registry maps subscriber identity to its entry.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Upsert validates and normalizes the request and stores the subscription,
// overwriting any previous registration for the same identity. The stored
// subscription always starts with an unset status, so re-registering resets
// evaluation history. Returns the live entry for an immediate evaluation.
func (r *Registry) Upsert(req Request) (*Entry, error) {
	identity := strings.TrimSpace(req.Identity)
	if identity == "" {
		return nil, &pricing.ValidationError{Reason: "identity is required"}
	}

	lower, upper, err := pricing.ValidateThresholds(req.Lower, req.Upper)
	if err != nil {
		return nil, err
	}

	sub := Subscription{
		Identity:   identity,
		Unit:       pricing.NormalizeUnit(req.Unit),
		Currency:   pricing.NormalizeCurrency(req.Currency),
		Purity:     pricing.NormalizePurity(req.Purity),
		Lower:      lower,
		Upper:      upper,
		LastStatus: pricing.StatusUnset,
	}

	r.mu.Lock()
	entry, ok := r.entries[identity]
	if !ok {
		entry = &Entry{}
		r.entries[identity] = entry
		r.order = append(r.order, identity)
	}
	r.mu.Unlock()

	entry.Do(func(s *Subscription) {
		*s = sub
	})
	return entry, nil
}

// Entries returns the live entries in registration order for the evaluation
// cycle to consume. The cycle mutates each entry in place under its lock.
func (r *Registry) Entries() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Entry, 0, len(r.order))
	for _, identity := range r.order {
		out = append(out, r.entries[identity])
	}
	return out
}

// Len reports the number of registered identities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
