package gateway

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openplay-labs/piggy-bank-desktop/internal/events"
	"github.com/openplay-labs/piggy-bank-desktop/internal/piggy"
	"github.com/openplay-labs/piggy-bank-desktop/internal/registry"
)

// simDelay is the artificial resolution latency, mimicking a chain round trip.
const simDelay = 1500 * time.Millisecond

// Sim is the simulated backend. It owns the authoritative balance and the
// per-difficulty contexts, resolves advances with a Bernoulli trial using the
// shared rules, and emits outcomes after a fixed delay so callers exercise
// the same asynchronous contract as the live gateway.
type Sim struct {
	bus *events.Bus
	reg *registry.Registry

	mu       sync.Mutex
	params   map[piggy.Difficulty]piggy.GameParams
	contexts map[piggy.Difficulty]*piggy.Context
	balance  decimal.Decimal

	delay time.Duration
	roll  func() int64
	after func(d time.Duration, f func())
}

// NewSim creates a simulated backend seeded with the built-in parameter
// tables and the standard starting bankroll.
func NewSim(bus *events.Bus, reg *registry.Registry) *Sim {
	return &Sim{
		bus:      bus,
		reg:      reg,
		params:   piggy.SimGameParams(),
		contexts: make(map[piggy.Difficulty]*piggy.Context),
		balance:  piggy.SimStartBalance,
		delay:    simDelay,
		roll:     func() int64 { return rand.Int63n(piggy.BpsDenominator) },
		after:    func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// Params returns the simulated parameter map (the load-time read boundary).
func (s *Sim) Params() map[piggy.Difficulty]piggy.GameParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[piggy.Difficulty]piggy.GameParams, len(s.params))
	for d, p := range s.params {
		out[d] = p
	}
	return out
}

// Contexts returns the persisted per-difficulty contexts.
func (s *Sim) Contexts() map[piggy.Difficulty]*piggy.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[piggy.Difficulty]*piggy.Context, len(s.contexts))
	for d, c := range s.contexts {
		copied := *c
		out[d] = &copied
	}
	return out
}

// Balance returns the authoritative simulated balance.
func (s *Sim) Balance() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// SeedContext installs an in-progress context for a difficulty, used to
// exercise the resume-on-load path.
func (s *Sim) SeedContext(d piggy.Difficulty, ctx piggy.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[d] = &ctx
}

func (s *Sim) currentDifficulty() (piggy.Difficulty, bool) {
	return s.reg.Difficulty()
}

// StartGame debits the stake and rolls for platform 0.
func (s *Sim) StartGame(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	diff, ok := s.currentDifficulty()
	if !ok {
		return
	}
	params, ok := s.params[diff]
	if !ok {
		return
	}
	if c := s.contexts[diff]; c != nil && c.Ongoing() {
		return
	}
	stake, ok := s.reg.Stake()
	if !ok || !piggy.StakeAllowed(stake) {
		return
	}
	if s.balance.LessThan(stake) {
		return
	}

	old := s.balance
	ctx, newBalance := piggy.StepStart(params, stake, s.balance, piggy.MayAdvance(params.SuccessRateBps, s.roll()))
	s.resolve(diff, ctx, old, newBalance)
}

// Advance rolls for the next platform of an ongoing round.
func (s *Sim) Advance(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	diff, ok := s.currentDifficulty()
	if !ok {
		return
	}
	params, ok := s.params[diff]
	if !ok {
		return
	}
	c := s.contexts[diff]
	if c == nil || !c.HasPosition() || !c.Ongoing() {
		return
	}

	old := s.balance
	ctx, newBalance, err := piggy.StepAdvance(params, *c, s.balance, piggy.MayAdvance(params.SuccessRateBps, s.roll()))
	if err != nil {
		s.emitError(err.Error())
		return
	}
	s.resolve(diff, ctx, old, newBalance)
}

// CashOut settles an ongoing round at the current platform.
func (s *Sim) CashOut(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	diff, ok := s.currentDifficulty()
	if !ok {
		return
	}
	params, ok := s.params[diff]
	if !ok {
		return
	}
	c := s.contexts[diff]
	if c == nil || !c.HasPosition() || !c.Ongoing() {
		return
	}

	old := s.balance
	ctx, newBalance, err := piggy.StepCashOut(params, *c, s.balance)
	if err != nil {
		s.emitError(err.Error())
		return
	}
	s.resolve(diff, ctx, old, newBalance)
}

// resolve commits the new authoritative state and schedules the outcome
// emission after the artificial delay. Called with the lock held.
func (s *Sim) resolve(diff piggy.Difficulty, ctx piggy.Context, oldBalance, newBalance decimal.Decimal) {
	s.balance = newBalance
	stored := ctx
	s.contexts[diff] = &stored

	outcome := piggy.Outcome{OldBalance: oldBalance, NewBalance: newBalance, Context: ctx}
	s.after(s.delay, func() {
		s.bus.Publish(events.Interacted, outcome)
	})
}

func (s *Sim) emitError(msg string) {
	s.after(s.delay, func() {
		s.bus.Publish(events.ErrorRaised, msg)
	})
}
