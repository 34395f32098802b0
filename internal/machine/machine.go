// Package machine implements the game-state reconciliation state machine.
//
// The machine owns the authoritative status, serializes player actions,
// applies optimistic balance updates, dispatches to the backend gateway,
// and reconciles the authoritative outcome when it arrives. At most one
// gateway call is in flight at a time; that is enforced by status gating,
// not by a lock. Player actions arriving while a call is in flight are
// held in a single-slot queue or dropped.
package machine

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openplay-labs/piggy-bank-desktop/internal/events"
	"github.com/openplay-labs/piggy-bank-desktop/internal/gateway"
	"github.com/openplay-labs/piggy-bank-desktop/internal/piggy"
	"github.com/openplay-labs/piggy-bank-desktop/internal/registry"
	"github.com/openplay-labs/piggy-bank-desktop/internal/tiers"
)

// Status is the machine's authoritative state. Exactly one is active at a
// time; it is the only gate for whether a player action is accepted,
// queued, or dropped.
type Status string

const (
	// NoGameIdle: no round in progress, start accepted.
	NoGameIdle Status = "NoGameIdle"
	// GameOngoingIdle: round in progress, advance and cash-out accepted.
	GameOngoingIdle Status = "GameOngoingIdle"
	// AdvanceStage1: a start or advance call is in flight.
	AdvanceStage1 Status = "AdvanceStage1"
	// AdvanceStage2: the step resolved, completion animation running.
	// Actions requested now go to the queue slot.
	AdvanceStage2 Status = "AdvanceStage2"
	// CashingOut: a cash-out call is in flight.
	CashingOut Status = "CashingOut"
	// Dying: the round was lost, failure animation running.
	Dying Status = "Dying"
	// Winning: the final platform was reached, win animation running.
	Winning Status = "Winning"
)

// Action is a player request held in the queue slot.
type Action string

const (
	ActionAdvance Action = "Advance"
	ActionCashOut Action = "CashOut"
)

// Animation pacing. The presentation layer keys off the same status
// transitions, so these double as the visual durations.
const (
	stage2Duration  = 600 * time.Millisecond
	dyingDuration   = 1200 * time.Millisecond
	winningDuration = 1200 * time.Millisecond
)

var errRoundInProgress = errors.New("machine: round in progress")

// ReloadFailedMessage is the error published when a reload cannot restore a
// consistent state. Subscribers routing errors back into HandleError must
// not feed this one back in.
const ReloadFailedMessage = "Reload failed. Please try again."

// Reloader re-fetches authoritative balance, parameters and contexts and
// rewrites the registry. Called on explicit reload and on unexpected-state
// recovery.
type Reloader func(ctx context.Context) error

// Machine is the game-state reconciliation state machine.
type Machine struct {
	bus    *events.Bus
	reg    *registry.Registry
	gw     gateway.Gateway
	tiers  *tiers.Manager
	reload Reloader
	logger *log.Logger

	mu      sync.Mutex
	status  Status
	queued  *Action
	pending piggy.Context // response context held between stage 1 and stage 2

	after func(d time.Duration, f func())
}

// New creates a machine in the NoGameIdle state. It does not subscribe to
// anything: the caller wires HandleOutcome and HandleError to the gateway's
// notification topics.
func New(bus *events.Bus, reg *registry.Registry, gw gateway.Gateway, tm *tiers.Manager, reload Reloader) *Machine {
	return &Machine{
		bus:    bus,
		reg:    reg,
		gw:     gw,
		tiers:  tm,
		reload: reload,
		logger: log.New(log.Writer(), "[machine] ", log.LstdFlags),
		status: NoGameIdle,
		after:  func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// notification is a bus event collected under the lock and published after
// it is released. Handlers may re-enter the machine.
type notification struct {
	topic   events.Topic
	payload any
}

func (m *Machine) publish(notes []notification) {
	for _, n := range notes {
		m.bus.Publish(n.topic, n.payload)
	}
}

// setStatus transitions the status and records the notification. Caller
// holds the lock.
func (m *Machine) setStatus(s Status, notes []notification) []notification {
	m.status = s
	m.reg.Set(registry.KeyStatus, string(s))
	return append(notes, notification{events.StatusUpdated, string(s)})
}

// setBalance writes a balance (optimistic or authoritative) and records
// the notification. Caller holds the lock.
func (m *Machine) setBalance(b decimal.Decimal, notes []notification) []notification {
	m.reg.SetBalance(b)
	return append(notes, notification{events.BalanceUpdated, b})
}

// Status returns the current machine status.
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// QueuedAction returns the queued action, if the slot is occupied.
func (m *Machine) QueuedAction() (Action, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queued == nil {
		return "", false
	}
	return *m.queued, true
}

// SeedStatus sets the initial status after load: GameOngoingIdle when the
// current difficulty has an ongoing round, NoGameIdle otherwise.
func (m *Machine) SeedStatus() {
	m.mu.Lock()
	var notes []notification
	if ctx, ok := m.reg.Context(); ok && ctx.Ongoing() {
		notes = m.setStatus(GameOngoingIdle, notes)
	} else {
		notes = m.setStatus(NoGameIdle, notes)
	}
	m.mu.Unlock()
	m.publish(notes)
}

// StartGame handles a start request. Accepted only in NoGameIdle with an
// allowed stake covered by the balance; anything else is dropped without
// side effects.
func (m *Machine) StartGame(ctx context.Context) {
	m.mu.Lock()
	if m.status != NoGameIdle {
		m.mu.Unlock()
		return
	}
	stake, ok := m.reg.Stake()
	if !ok || !piggy.StakeAllowed(stake) {
		m.mu.Unlock()
		return
	}
	balance, ok := m.reg.Balance()
	if !ok || balance.LessThan(stake) {
		m.mu.Unlock()
		return
	}

	var notes []notification
	notes = m.setBalance(balance.Sub(stake), notes)
	notes = m.setStatus(AdvanceStage1, notes)
	m.mu.Unlock()

	m.publish(notes)
	m.gw.StartGame(ctx)
}

// Advance handles an advance request: executed from GameOngoingIdle,
// queued in AdvanceStage2 when the slot is free, dropped otherwise.
func (m *Machine) Advance(ctx context.Context) {
	m.requestAction(ctx, ActionAdvance)
}

// CashOut handles a cash-out request with the same arbitration as Advance.
// Execution applies an optimistic credit of the payout at the current
// platform before the call is issued.
func (m *Machine) CashOut(ctx context.Context) {
	m.requestAction(ctx, ActionCashOut)
}

func (m *Machine) requestAction(ctx context.Context, action Action) {
	m.mu.Lock()
	switch m.status {
	case GameOngoingIdle:
		notes, call := m.beginAction(action)
		m.mu.Unlock()
		m.publish(notes)
		if call != nil {
			call(ctx)
		}
	case AdvanceStage2:
		if m.queued == nil {
			queued := action
			m.queued = &queued
		}
		m.mu.Unlock()
	default:
		m.mu.Unlock()
	}
}

// beginAction transitions out of GameOngoingIdle for an accepted action and
// returns the gateway call to issue. Caller holds the lock.
func (m *Machine) beginAction(action Action) ([]notification, func(context.Context)) {
	var notes []notification
	switch action {
	case ActionAdvance:
		notes = m.setStatus(AdvanceStage1, notes)
		return notes, m.gw.Advance
	case ActionCashOut:
		roundCtx, ok := m.reg.Context()
		if !ok || !roundCtx.Ongoing() || !roundCtx.HasPosition() {
			return nil, nil
		}
		if params, ok := m.reg.Params(); ok {
			payout, err := piggy.PayoutForPosition(roundCtx.Stake, params.StepsPayoutBps, int(roundCtx.CurrentPosition))
			if err == nil {
				if balance, ok := m.reg.Balance(); ok {
					notes = m.setBalance(balance.Add(payout), notes)
				}
			}
		}
		notes = m.setStatus(CashingOut, notes)
		return notes, m.gw.CashOut
	}
	return nil, nil
}

// PlatformClicked handles a click on platform index. The click is mapped
// to a start (index 0 from the empty state) or an advance (exactly one
// step ahead); non-contiguous clicks are dropped without side effects.
func (m *Machine) PlatformClicked(ctx context.Context, index int) {
	current := piggy.EmptyPosition
	if roundCtx, ok := m.reg.Context(); ok && roundCtx.Ongoing() && roundCtx.HasPosition() {
		current = int(roundCtx.CurrentPosition)
	}
	if !piggy.ContiguousTarget(current, index) {
		return
	}
	if current == piggy.EmptyPosition {
		m.StartGame(ctx)
		return
	}
	m.Advance(ctx)
}

// HandleOutcome reconciles an authoritative outcome from the gateway.
// Outcomes are only expected in AdvanceStage1 and CashingOut; anywhere
// else they indicate an inconsistency and force a defensive reload.
func (m *Machine) HandleOutcome(ctx context.Context, outcome piggy.Outcome) {
	m.mu.Lock()
	var notes []notification

	switch m.status {
	case AdvanceStage1:
		notes = m.setBalance(outcome.NewBalance, notes)
		if !outcome.Context.Ongoing() && outcome.Context.Win.IsZero() {
			m.tiers.StoreContext(outcome.Context)
			m.queued = nil
			notes = m.setStatus(Dying, notes)
			m.after(dyingDuration, func() { m.finishRound() })
			m.mu.Unlock()
			m.publish(notes)
			return
		}
		m.tiers.StoreContext(outcome.Context)
		m.pending = outcome.Context
		notes = m.setStatus(AdvanceStage2, notes)
		m.after(stage2Duration, func() { m.finishStage2(ctx) })
		m.mu.Unlock()
		m.publish(notes)

	case CashingOut:
		notes = m.setBalance(outcome.NewBalance, notes)
		m.tiers.StoreContext(outcome.Context)
		m.queued = nil
		notes = m.setStatus(NoGameIdle, notes)
		m.mu.Unlock()
		m.publish(notes)

	default:
		status := m.status
		m.mu.Unlock()
		m.logger.Printf("outcome arrived in status %s, reloading", status)
		m.Reload(ctx)
	}
}

// finishStage2 runs when the completion animation ends: Winning if the
// round finished, GameOngoingIdle otherwise, then the queued action (if
// any) is dispatched as if freshly requested.
func (m *Machine) finishStage2(ctx context.Context) {
	m.mu.Lock()
	if m.status != AdvanceStage2 {
		m.mu.Unlock()
		return
	}
	var notes []notification
	if !m.pending.Ongoing() {
		m.queued = nil
		notes = m.setStatus(Winning, notes)
		m.after(winningDuration, func() { m.finishRound() })
		m.mu.Unlock()
		m.publish(notes)
		return
	}

	notes = m.setStatus(GameOngoingIdle, notes)
	var queued *Action
	queued, m.queued = m.queued, nil
	m.mu.Unlock()
	m.publish(notes)

	if queued != nil {
		m.requestAction(ctx, *queued)
	}
}

// finishRound runs when a Dying or Winning animation ends: the round is
// over, the context is cleared and the machine returns to NoGameIdle.
func (m *Machine) finishRound() {
	m.mu.Lock()
	if m.status != Dying && m.status != Winning {
		m.mu.Unlock()
		return
	}
	var notes []notification
	if roundCtx, ok := m.reg.Context(); ok {
		m.tiers.StoreContext(piggy.FinishedContext(roundCtx.Stake))
	}
	m.queued = nil
	notes = m.setStatus(NoGameIdle, notes)
	m.mu.Unlock()
	m.publish(notes)
}

// HandleError reacts to a gateway error. While a call is in flight the
// error stays where the presentation layer can show it and offer a reload;
// the machine does not retry and does not roll the optimistic balance
// back. An error in any other status is an inconsistency and forces a
// defensive reload.
func (m *Machine) HandleError(ctx context.Context, msg string) {
	m.mu.Lock()
	status := m.status
	m.mu.Unlock()

	switch status {
	case AdvanceStage1, CashingOut:
		m.logger.Printf("gateway error while %s: %s", status, msg)
	default:
		m.logger.Printf("error arrived in status %s, reloading: %s", status, msg)
		m.Reload(ctx)
	}
}

// SetStake updates the selected stake. Only allowed values are accepted,
// and only while no round is in progress.
func (m *Machine) SetStake(stake decimal.Decimal) bool {
	if !piggy.StakeAllowed(stake) {
		return false
	}
	m.mu.Lock()
	if m.status != NoGameIdle {
		m.mu.Unlock()
		return false
	}
	m.reg.SetStake(stake)
	m.mu.Unlock()
	m.bus.Publish(events.StakeChanged, stake)
	return true
}

// SetDifficulty switches the current tier. Rejected while a round is in
// progress for the active difficulty.
func (m *Machine) SetDifficulty(d piggy.Difficulty) error {
	m.mu.Lock()
	if m.status != NoGameIdle {
		m.mu.Unlock()
		return errRoundInProgress
	}
	if err := m.tiers.Select(d); err != nil {
		m.mu.Unlock()
		return err
	}
	var notes []notification
	if roundCtx, ok := m.reg.Context(); ok && roundCtx.Ongoing() {
		notes = m.setStatus(GameOngoingIdle, notes)
	} else {
		notes = m.setStatus(NoGameIdle, notes)
	}
	m.mu.Unlock()
	m.publish(notes)
	return nil
}

// Reload re-fetches authoritative state and resets the machine to a
// consistent idle status. This is the only recovery path after an error.
func (m *Machine) Reload(ctx context.Context) {
	if m.reload != nil {
		if err := m.reload(ctx); err != nil {
			m.logger.Printf("reload failed: %v", err)
			m.bus.Publish(events.ErrorRaised, ReloadFailedMessage)
			return
		}
	}

	m.mu.Lock()
	m.queued = nil
	m.pending = piggy.Context{}
	var notes []notification
	if roundCtx, ok := m.reg.Context(); ok && roundCtx.Ongoing() {
		notes = m.setStatus(GameOngoingIdle, notes)
	} else {
		notes = m.setStatus(NoGameIdle, notes)
	}
	m.mu.Unlock()
	m.publish(notes)
	m.bus.Publish(events.GameLoaded, nil)
}
