// Package tiers keeps the per-difficulty game parameters and persisted
// round contexts, and swaps the registry's "current" slots when the player
// changes difficulty.
package tiers

import (
	"fmt"

	"github.com/openplay-labs/piggy-bank-desktop/internal/events"
	"github.com/openplay-labs/piggy-bank-desktop/internal/piggy"
	"github.com/openplay-labs/piggy-bank-desktop/internal/registry"
)

// Manager owns difficulty selection. The full per-difficulty maps live in
// the registry; the manager maintains the invariant that the registry's
// current params and context always match the selected difficulty.
type Manager struct {
	bus *events.Bus
	reg *registry.Registry
}

// NewManager creates a manager over the given registry.
func NewManager(bus *events.Bus, reg *registry.Registry) *Manager {
	return &Manager{bus: bus, reg: reg}
}

// InitialDifficulty picks the difficulty selected on load: the unique
// difficulty with an ongoing context if there is exactly one, the easiest
// tier otherwise.
func InitialDifficulty(contexts map[piggy.Difficulty]*piggy.Context) piggy.Difficulty {
	var ongoing []piggy.Difficulty
	for _, d := range piggy.Difficulties {
		if ctx := contexts[d]; ctx != nil && ctx.Ongoing() {
			ongoing = append(ongoing, d)
		}
	}
	if len(ongoing) == 1 {
		return ongoing[0]
	}
	return piggy.Difficulties[0]
}

// Load stores the fetched per-difficulty state and selects the initial
// difficulty.
func (m *Manager) Load(params map[piggy.Difficulty]piggy.GameParams, contexts map[piggy.Difficulty]*piggy.Context) error {
	if len(params) == 0 {
		return fmt.Errorf("tiers: no game parameters loaded")
	}
	m.reg.SetParamsMap(params)
	m.reg.SetContextMap(contexts)
	return m.Select(InitialDifficulty(contexts))
}

// Select makes d the current difficulty, swapping the registry's current
// parameters and context to the tier's values.
func (m *Manager) Select(d piggy.Difficulty) error {
	params, ok := m.reg.ParamsMap()[d]
	if !ok {
		return fmt.Errorf("tiers: no parameters for difficulty %q", d)
	}

	m.reg.SetDifficulty(d)
	m.reg.SetParams(params)
	if ctx := m.reg.ContextMap()[d]; ctx != nil {
		m.reg.SetContext(*ctx)
	} else {
		m.reg.ClearContext()
	}

	m.bus.Publish(events.DifficultyChanged, d)
	return nil
}

// Current returns the selected difficulty, defaulting to the easiest tier
// before load completes.
func (m *Manager) Current() piggy.Difficulty {
	if d, ok := m.reg.Difficulty(); ok {
		return d
	}
	return piggy.Difficulties[0]
}

// ContextFor returns the stored context for a difficulty, nil when absent.
func (m *Manager) ContextFor(d piggy.Difficulty) *piggy.Context {
	return m.reg.ContextMap()[d]
}

// ParamsFor returns the stored parameters for a difficulty.
func (m *Manager) ParamsFor(d piggy.Difficulty) (piggy.GameParams, bool) {
	params, ok := m.reg.ParamsMap()[d]
	return params, ok
}

// StoreContext records a reconciled context for the current difficulty,
// keeping the per-difficulty map and the current slot in sync.
func (m *Manager) StoreContext(ctx piggy.Context) {
	d := m.Current()
	contexts := m.reg.ContextMap()
	if contexts == nil {
		contexts = make(map[piggy.Difficulty]*piggy.Context)
	}
	stored := ctx
	contexts[d] = &stored
	m.reg.SetContextMap(contexts)
	m.reg.SetContext(ctx)
}
