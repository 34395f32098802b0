// Package registry is the shared key-value state consulted and mutated by
// the game state machine and read by the presentation layer. All game-logic
// writes happen under the state machine's lock, but frontend snapshot reads
// arrive on Wails goroutines, so access is guarded anyway.
package registry

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/openplay-labs/piggy-bank-desktop/internal/piggy"
)

// Key identifies one slot in the registry.
type Key string

const (
	KeyBalance    Key = "balance"
	KeyStake      Key = "stake"
	KeyDifficulty Key = "difficulty"
	KeyStatus     Key = "status"
	KeyContext    Key = "context"
	KeyContextMap Key = "context-map"
	KeyParams     Key = "game-params"
	KeyParamsMap  Key = "game-params-map"
)

// Registry is a process-wide mutable store with read-after-write
// consistency: Get returns the last value passed to Set, or absent.
type Registry struct {
	mu   sync.RWMutex
	data map[Key]any
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{data: make(map[Key]any)}
}

// Set stores a value. Immediate and synchronous.
func (r *Registry) Set(key Key, value any) {
	r.mu.Lock()
	r.data[key] = value
	r.mu.Unlock()
}

// Get returns the stored value and whether it is present. Readers must
// tolerate absence at startup.
func (r *Registry) Get(key Key) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.data[key]
	return v, ok
}

// Delete removes a key.
func (r *Registry) Delete(key Key) {
	r.mu.Lock()
	delete(r.data, key)
	r.mu.Unlock()
}

// --- Typed accessors for the fixed keys ---

// Balance returns the current (visual or authoritative) balance.
func (r *Registry) Balance() (decimal.Decimal, bool) {
	v, ok := r.Get(KeyBalance)
	if !ok {
		return decimal.Zero, false
	}
	d, ok := v.(decimal.Decimal)
	return d, ok
}

// SetBalance stores the balance.
func (r *Registry) SetBalance(b decimal.Decimal) { r.Set(KeyBalance, b) }

// Stake returns the player-selected stake.
func (r *Registry) Stake() (decimal.Decimal, bool) {
	v, ok := r.Get(KeyStake)
	if !ok {
		return decimal.Zero, false
	}
	d, ok := v.(decimal.Decimal)
	return d, ok
}

// SetStake stores the selected stake.
func (r *Registry) SetStake(s decimal.Decimal) { r.Set(KeyStake, s) }

// Difficulty returns the selected difficulty tier.
func (r *Registry) Difficulty() (piggy.Difficulty, bool) {
	v, ok := r.Get(KeyDifficulty)
	if !ok {
		return "", false
	}
	d, ok := v.(piggy.Difficulty)
	return d, ok
}

// SetDifficulty stores the selected difficulty tier.
func (r *Registry) SetDifficulty(d piggy.Difficulty) { r.Set(KeyDifficulty, d) }

// Context returns the current difficulty's round context.
func (r *Registry) Context() (piggy.Context, bool) {
	v, ok := r.Get(KeyContext)
	if !ok {
		return piggy.Context{}, false
	}
	c, ok := v.(piggy.Context)
	return c, ok
}

// SetContext stores the current round context.
func (r *Registry) SetContext(c piggy.Context) { r.Set(KeyContext, c) }

// ClearContext removes the current round context.
func (r *Registry) ClearContext() { r.Delete(KeyContext) }

// Params returns the current difficulty's game parameters.
func (r *Registry) Params() (piggy.GameParams, bool) {
	v, ok := r.Get(KeyParams)
	if !ok {
		return piggy.GameParams{}, false
	}
	p, ok := v.(piggy.GameParams)
	return p, ok
}

// SetParams stores the current game parameters.
func (r *Registry) SetParams(p piggy.GameParams) { r.Set(KeyParams, p) }

// ContextMap returns the per-difficulty context map. Entries may be absent
// for difficulties that never started a round.
func (r *Registry) ContextMap() map[piggy.Difficulty]*piggy.Context {
	v, ok := r.Get(KeyContextMap)
	if !ok {
		return map[piggy.Difficulty]*piggy.Context{}
	}
	m, ok := v.(map[piggy.Difficulty]*piggy.Context)
	if !ok {
		return map[piggy.Difficulty]*piggy.Context{}
	}
	return m
}

// SetContextMap stores the per-difficulty context map.
func (r *Registry) SetContextMap(m map[piggy.Difficulty]*piggy.Context) {
	r.Set(KeyContextMap, m)
}

// ParamsMap returns the per-difficulty game parameter map.
func (r *Registry) ParamsMap() map[piggy.Difficulty]piggy.GameParams {
	v, ok := r.Get(KeyParamsMap)
	if !ok {
		return map[piggy.Difficulty]piggy.GameParams{}
	}
	m, ok := v.(map[piggy.Difficulty]piggy.GameParams)
	if !ok {
		return map[piggy.Difficulty]piggy.GameParams{}
	}
	return m
}

// SetParamsMap stores the per-difficulty game parameter map.
func (r *Registry) SetParamsMap(m map[piggy.Difficulty]piggy.GameParams) {
	r.Set(KeyParamsMap, m)
}
