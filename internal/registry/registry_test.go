package registry

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/openplay-labs/piggy-bank-desktop/internal/piggy"
)

func TestGetReturnsLastSet(t *testing.T) {
	r := New()

	if _, ok := r.Get(KeyBalance); ok {
		t.Error("expected absence before first Set")
	}

	r.Set(KeyBalance, decimal.NewFromInt(10))
	r.Set(KeyBalance, decimal.NewFromInt(20))

	v, ok := r.Get(KeyBalance)
	if !ok {
		t.Fatal("expected value after Set")
	}
	if d := v.(decimal.Decimal); !d.Equal(decimal.NewFromInt(20)) {
		t.Errorf("expected 20, got %s", d)
	}
}

func TestDelete(t *testing.T) {
	r := New()
	r.SetContext(piggy.Context{Status: piggy.GameOngoingStatus})
	r.ClearContext()
	if _, ok := r.Context(); ok {
		t.Error("expected absence after ClearContext")
	}
}

func TestTypedAccessors(t *testing.T) {
	r := New()

	r.SetBalance(decimal.NewFromInt(1e9))
	if b, ok := r.Balance(); !ok || !b.Equal(decimal.NewFromInt(1e9)) {
		t.Errorf("balance round trip failed: %v %v", b, ok)
	}

	r.SetStake(decimal.NewFromInt(1e7))
	if s, ok := r.Stake(); !ok || !s.Equal(decimal.NewFromInt(1e7)) {
		t.Errorf("stake round trip failed: %v %v", s, ok)
	}

	r.SetDifficulty(piggy.DifficultyHard)
	if d, ok := r.Difficulty(); !ok || d != piggy.DifficultyHard {
		t.Errorf("difficulty round trip failed: %v %v", d, ok)
	}

	ctx := piggy.Context{Status: piggy.GameOngoingStatus, CurrentPosition: 2}
	r.SetContext(ctx)
	if c, ok := r.Context(); !ok || c.CurrentPosition != 2 {
		t.Errorf("context round trip failed: %v %v", c, ok)
	}

	params := piggy.SimGameParams()[piggy.DifficultyEasy]
	r.SetParams(params)
	if p, ok := r.Params(); !ok || p.Steps() != params.Steps() {
		t.Errorf("params round trip failed: %v %v", p, ok)
	}
}

func TestMapAccessorsTolerateAbsence(t *testing.T) {
	r := New()
	if m := r.ContextMap(); m == nil || len(m) != 0 {
		t.Errorf("expected empty context map, got %v", m)
	}
	if m := r.ParamsMap(); m == nil || len(m) != 0 {
		t.Errorf("expected empty params map, got %v", m)
	}
}
