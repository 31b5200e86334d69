// Package registry holds the fixed, ordered catalogue of interop scenarios and
// the skip policy applied to them before execution.
package registry

import (
	"errors"
	"fmt"
	"time"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// Scenario names, in catalogue order.
const (
	SetupOnly               = "setup-only"
	AnnounceOnly            = "announce-only"
	PublishNamespaceDone    = "publish-namespace-done"
	SubscribeError          = "subscribe-error"
	AnnounceSubscribe       = "announce-subscribe"
	SubscribeBeforeAnnounce = "subscribe-before-announce"
)

const (
	// DefaultTimeout applies to scenarios without a dedicated deadline.
	DefaultTimeout = 5 * time.Second

	singleSessionTimeout = 2 * time.Second
	twoPartyTimeout      = 3 * time.Second
)

// Scenario is an immutable catalogue entry.
type Scenario struct {
	Name    string
	Timeout time.Duration
}

// DefaultScenarios returns the built-in catalogue in registry order.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{Name: SetupOnly, Timeout: singleSessionTimeout},
		{Name: AnnounceOnly, Timeout: singleSessionTimeout},
		{Name: PublishNamespaceDone, Timeout: singleSessionTimeout},
		{Name: SubscribeError, Timeout: DefaultTimeout},
		{Name: AnnounceSubscribe, Timeout: twoPartyTimeout},
		{Name: SubscribeBeforeAnnounce, Timeout: DefaultTimeout},
	}
}

// Registry is an ordered, read-only catalogue of scenarios with their skip policy.
type Registry struct {
	scenarios *linkedhashmap.Map // name -> Scenario, insertion ordered
	skips     SkipPolicy
}

// New creates a registry from scenarios (in order) and skip entries.
func New(scenarios []Scenario, skips []SkipEntry) (*Registry, error) {
	if len(scenarios) == 0 {
		return nil, errors.New("at least one scenario is required")
	}

	m := linkedhashmap.New()
	for _, s := range scenarios {
		if s.Name == "" {
			return nil, errors.New("scenario name cannot be empty")
		}
		if _, found := m.Get(s.Name); found {
			return nil, fmt.Errorf("duplicate scenario %q", s.Name)
		}
		if s.Timeout <= 0 {
			return nil, fmt.Errorf("scenario %q must have a positive timeout, got %v", s.Name, s.Timeout)
		}
		m.Put(s.Name, s)
	}

	policy, err := newSkipPolicy(skips, func(name string) bool {
		_, found := m.Get(name)
		return found
	})
	if err != nil {
		return nil, err
	}

	return &Registry{scenarios: m, skips: policy}, nil
}

// Default returns the built-in catalogue and skip policy.
func Default() *Registry {
	r, err := New(DefaultScenarios(), DefaultSkips())
	if err != nil {
		panic(fmt.Sprintf("invalid built-in registry: %v", err))
	}
	return r
}

// Len returns the number of registered scenarios.
func (r *Registry) Len() int {
	return r.scenarios.Size()
}

// Scenarios returns every scenario in registry order.
func (r *Registry) Scenarios() []Scenario {
	out := make([]Scenario, 0, r.scenarios.Size())
	it := r.scenarios.Iterator()
	for it.Next() {
		out = append(out, it.Value().(Scenario))
	}
	return out
}

// Names returns every scenario name in registry order.
func (r *Registry) Names() []string {
	names := make([]string, 0, r.scenarios.Size())
	for _, k := range r.scenarios.Keys() {
		names = append(names, k.(string))
	}
	return names
}

// Lookup returns the scenario registered under name.
func (r *Registry) Lookup(name string) (Scenario, bool) {
	v, found := r.scenarios.Get(name)
	if !found {
		return Scenario{}, false
	}
	return v.(Scenario), true
}

// Select returns the full catalogue when name is empty, or the single named
// scenario. An unregistered name yields an *UnknownScenarioError.
func (r *Registry) Select(name string) ([]Scenario, error) {
	if name == "" {
		return r.Scenarios(), nil
	}
	s, ok := r.Lookup(name)
	if !ok {
		return nil, &UnknownScenarioError{Name: name, Known: r.Names()}
	}
	return []Scenario{s}, nil
}

// SkipReason returns the reason a scenario is skipped, if it is.
func (r *Registry) SkipReason(name string) (string, bool) {
	return r.skips.Reason(name)
}

// Skips returns the skip policy.
func (r *Registry) Skips() SkipPolicy {
	return r.skips
}
