package autoplay

import (
	"context"
	"log"
	"sync"

	"github.com/openplay-labs/piggy-bank-desktop/internal/events"
	"github.com/openplay-labs/piggy-bank-desktop/internal/machine"
	"github.com/openplay-labs/piggy-bank-desktop/internal/registry"
)

// Controller is the slice of the state machine the runner drives.
type Controller interface {
	StartGame(ctx context.Context)
	Advance(ctx context.Context)
	CashOut(ctx context.Context)
}

// Runner wires a loaded strategy script to the game. It listens for the
// machine going idle and asks the script for the next action, until the
// script stops, the round budget runs out, or an error arrives.
type Runner struct {
	vm     *VM
	ctrl   Controller
	reg    *registry.Registry
	logger *log.Logger

	mu        sync.Mutex
	running   bool
	rounds    int
	maxRounds int

	unsubs []func()
}

// NewRunner creates a runner over a loaded VM. maxRounds caps how many
// rounds one Start() call may play; zero means a single round.
func NewRunner(vm *VM, ctrl Controller, bus *events.Bus, reg *registry.Registry, maxRounds int) *Runner {
	if maxRounds <= 0 {
		maxRounds = 1
	}
	r := &Runner{
		vm:        vm,
		ctrl:      ctrl,
		reg:       reg,
		logger:    log.New(log.Writer(), "[autoplay] ", log.LstdFlags),
		maxRounds: maxRounds,
	}
	r.unsubs = append(r.unsubs,
		bus.Subscribe(events.StatusUpdated, r.onStatus),
		bus.Subscribe(events.ErrorRaised, func(any) { r.Stop() }),
	)
	return r
}

// Start begins autoplay with the first round.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.rounds = 0
	r.mu.Unlock()

	r.ctrl.StartGame(ctx)
}

// Stop halts autoplay. The round in flight still settles normally.
func (r *Runner) Stop() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

// Running reports whether autoplay is active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Close detaches the runner from the bus.
func (r *Runner) Close() {
	r.Stop()
	for _, unsub := range r.unsubs {
		unsub()
	}
}

func (r *Runner) onStatus(payload any) {
	status, ok := payload.(string)
	if !ok || !r.Running() {
		return
	}

	switch status {
	case string(machine.GameOngoingIdle):
		// Decisions run off the bus goroutine: the script may take up
		// to its call timeout.
		go r.step()
	case string(machine.NoGameIdle):
		r.mu.Lock()
		r.rounds++
		done := r.rounds >= r.maxRounds
		if done {
			r.running = false
		}
		r.mu.Unlock()
		if !done {
			go r.ctrl.StartGame(context.Background())
		}
	}
}

func (r *Runner) step() {
	state, ok := r.snapshot()
	if !ok {
		r.logger.Printf("no round state, stopping")
		r.Stop()
		return
	}

	decision, err := r.vm.Decide(state)
	if err != nil {
		r.logger.Printf("decide failed: %v", err)
		r.Stop()
		return
	}

	ctx := context.Background()
	switch decision {
	case DecideAdvance:
		r.ctrl.Advance(ctx)
	case DecideCashOut:
		r.ctrl.CashOut(ctx)
	case DecideStop:
		r.Stop()
	}
}

func (r *Runner) snapshot() (State, bool) {
	roundCtx, ok := r.reg.Context()
	if !ok || !roundCtx.Ongoing() || !roundCtx.HasPosition() {
		return State{}, false
	}
	params, ok := r.reg.Params()
	if !ok {
		return State{}, false
	}

	state := State{
		Position:  int(roundCtx.CurrentPosition),
		Steps:     params.Steps(),
		PayoutBps: append([]int64(nil), params.StepsPayoutBps...),
		Stake:     roundCtx.Stake.String(),
		Win:       roundCtx.Win.String(),
	}
	if balance, ok := r.reg.Balance(); ok {
		state.Balance = balance.String()
	}
	return state, true
}
