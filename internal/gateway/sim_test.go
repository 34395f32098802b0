package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openplay-labs/piggy-bank-desktop/internal/events"
	"github.com/openplay-labs/piggy-bank-desktop/internal/piggy"
	"github.com/openplay-labs/piggy-bank-desktop/internal/registry"
)

// newTestSim returns a sim with zero delay, synchronous scheduling, and a
// deterministic roll.
func newTestSim(t *testing.T, roll int64) (*Sim, *registry.Registry, *[]piggy.Outcome, *[]string) {
	t.Helper()
	bus := events.NewBus()
	reg := registry.New()
	reg.SetDifficulty(piggy.DifficultyEasy)
	reg.SetStake(decimal.NewFromInt(1e7))

	s := NewSim(bus, reg)
	s.delay = 0
	s.after = func(_ time.Duration, f func()) { f() }
	s.roll = func() int64 { return roll }

	var outcomes []piggy.Outcome
	var errs []string
	bus.Subscribe(events.Interacted, func(p any) { outcomes = append(outcomes, p.(piggy.Outcome)) })
	bus.Subscribe(events.ErrorRaised, func(p any) { errs = append(errs, p.(string)) })
	return s, reg, &outcomes, &errs
}

func TestSimStartGameSuccess(t *testing.T) {
	s, _, outcomes, _ := newTestSim(t, 0) // roll 0 always succeeds at 9000 bps

	s.StartGame(context.Background())

	if len(*outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(*outcomes))
	}
	o := (*outcomes)[0]
	if !o.Context.Ongoing() || o.Context.CurrentPosition != 0 {
		t.Errorf("expected ongoing at position 0, got %q at %d", o.Context.Status, o.Context.CurrentPosition)
	}
	wantBalance := piggy.SimStartBalance.Sub(decimal.NewFromInt(1e7))
	if !o.NewBalance.Equal(wantBalance) {
		t.Errorf("expected new balance %s, got %s", wantBalance, o.NewBalance)
	}
	if !o.OldBalance.Equal(piggy.SimStartBalance) {
		t.Errorf("expected old balance %s, got %s", piggy.SimStartBalance, o.OldBalance)
	}
	if !s.Balance().Equal(wantBalance) {
		t.Errorf("sim must keep the authoritative balance, got %s", s.Balance())
	}
}

func TestSimStartGameFailureDebitsStake(t *testing.T) {
	s, _, outcomes, _ := newTestSim(t, 9999) // roll 9999 always fails at 9000 bps

	s.StartGame(context.Background())

	if len(*outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(*outcomes))
	}
	o := (*outcomes)[0]
	if o.Context.Ongoing() {
		t.Error("expected finished context")
	}
	if o.Context.CurrentPosition != piggy.EmptyPosition {
		t.Errorf("expected cleared position, got %d", o.Context.CurrentPosition)
	}
	wantBalance := piggy.SimStartBalance.Sub(decimal.NewFromInt(1e7))
	if !o.NewBalance.Equal(wantBalance) {
		t.Errorf("stake must be gone on a failed start, got %s", o.NewBalance)
	}
}

func TestSimStartGamePreconditionNoOps(t *testing.T) {
	// Already ongoing: silent no-op, no outcome, no error.
	s, _, outcomes, errs := newTestSim(t, 0)
	s.SeedContext(piggy.DifficultyEasy, piggy.Context{
		Stake:           decimal.NewFromInt(1e7),
		Status:          piggy.GameOngoingStatus,
		CurrentPosition: 1,
	})
	s.StartGame(context.Background())
	if len(*outcomes) != 0 || len(*errs) != 0 {
		t.Errorf("expected silent no-op, got %d outcomes %d errors", len(*outcomes), len(*errs))
	}

	// Insufficient balance.
	s2, reg2, outcomes2, errs2 := newTestSim(t, 0)
	s2.balance = decimal.NewFromInt(5)
	_ = reg2
	s2.StartGame(context.Background())
	if len(*outcomes2) != 0 || len(*errs2) != 0 {
		t.Errorf("expected silent no-op on insufficient balance, got %d outcomes %d errors", len(*outcomes2), len(*errs2))
	}

	// Disallowed stake.
	s3, reg3, outcomes3, _ := newTestSim(t, 0)
	reg3.SetStake(decimal.NewFromInt(12345))
	s3.StartGame(context.Background())
	if len(*outcomes3) != 0 {
		t.Errorf("expected silent no-op on disallowed stake, got %d outcomes", len(*outcomes3))
	}
}

func TestSimAdvanceWalksTheBoard(t *testing.T) {
	s, _, outcomes, _ := newTestSim(t, 0)
	s.SeedContext(piggy.DifficultyEasy, piggy.Context{
		Stake:           decimal.NewFromInt(1e7),
		Status:          piggy.GameOngoingStatus,
		CurrentPosition: 0,
	})

	s.Advance(context.Background())

	if len(*outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(*outcomes))
	}
	o := (*outcomes)[0]
	if o.Context.CurrentPosition != 1 || !o.Context.Ongoing() {
		t.Errorf("expected ongoing at 1, got %q at %d", o.Context.Status, o.Context.CurrentPosition)
	}
	if !o.NewBalance.Equal(o.OldBalance) {
		t.Error("mid-board advance must not touch the balance")
	}
}

func TestSimAdvanceOntoFinalPlatformWins(t *testing.T) {
	s, _, outcomes, _ := newTestSim(t, 0)
	params := piggy.SimGameParams()[piggy.DifficultyEasy]
	s.SeedContext(piggy.DifficultyEasy, piggy.Context{
		Stake:           decimal.NewFromInt(1e7),
		Status:          piggy.GameOngoingStatus,
		CurrentPosition: uint8(params.LastPosition() - 1),
	})

	s.Advance(context.Background())

	o := (*outcomes)[0]
	if o.Context.Ongoing() {
		t.Error("expected finished context on the final platform")
	}
	wantWin, _ := piggy.PayoutForPosition(decimal.NewFromInt(1e7), params.StepsPayoutBps, params.LastPosition())
	if !o.Context.Win.Equal(wantWin) {
		t.Errorf("expected win %s, got %s", wantWin, o.Context.Win)
	}
	if !o.NewBalance.Equal(o.OldBalance.Add(wantWin)) {
		t.Errorf("expected payout credited, got %s", o.NewBalance)
	}
}

func TestSimAdvancePreconditionNoOps(t *testing.T) {
	// No context at all.
	s, _, outcomes, errs := newTestSim(t, 0)
	s.Advance(context.Background())
	if len(*outcomes) != 0 || len(*errs) != 0 {
		t.Error("expected silent no-op without a context")
	}

	// Finished context.
	s2, _, outcomes2, _ := newTestSim(t, 0)
	s2.SeedContext(piggy.DifficultyEasy, piggy.FinishedContext(decimal.NewFromInt(1e7)))
	s2.Advance(context.Background())
	if len(*outcomes2) != 0 {
		t.Error("expected silent no-op on finished context")
	}
}

func TestSimCashOut(t *testing.T) {
	s, _, outcomes, _ := newTestSim(t, 0)
	params := piggy.SimGameParams()[piggy.DifficultyEasy]
	s.SeedContext(piggy.DifficultyEasy, piggy.Context{
		Stake:           decimal.NewFromInt(1e7),
		Status:          piggy.GameOngoingStatus,
		CurrentPosition: 2,
	})

	s.CashOut(context.Background())

	if len(*outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(*outcomes))
	}
	o := (*outcomes)[0]
	wantWin, _ := piggy.PayoutForPosition(decimal.NewFromInt(1e7), params.StepsPayoutBps, 2)
	if !o.Context.Win.Equal(wantWin) {
		t.Errorf("expected win %s, got %s", wantWin, o.Context.Win)
	}
	if o.Context.Ongoing() {
		t.Error("expected finished context after cash out")
	}
}

func TestSimDifficultiesAreIndependent(t *testing.T) {
	s, reg, outcomes, _ := newTestSim(t, 0)
	s.SeedContext(piggy.DifficultyMedium, piggy.Context{
		Stake:           decimal.NewFromInt(1e7),
		Status:          piggy.GameOngoingStatus,
		CurrentPosition: 3,
	})

	// Easy has no round; cash-out must be a no-op even though medium is ongoing.
	s.CashOut(context.Background())
	if len(*outcomes) != 0 {
		t.Fatal("cash-out on easy must not settle medium's round")
	}

	reg.SetDifficulty(piggy.DifficultyMedium)
	s.CashOut(context.Background())
	if len(*outcomes) != 1 {
		t.Fatal("cash-out on medium should settle")
	}
	if ctx := s.Contexts()[piggy.DifficultyMedium]; ctx == nil || ctx.Ongoing() {
		t.Error("medium context should be finished")
	}
}
