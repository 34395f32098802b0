package tiers

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/openplay-labs/piggy-bank-desktop/internal/events"
	"github.com/openplay-labs/piggy-bank-desktop/internal/piggy"
	"github.com/openplay-labs/piggy-bank-desktop/internal/registry"
)

func ongoingContext() *piggy.Context {
	return &piggy.Context{
		Stake:           decimal.NewFromInt(1e7),
		Status:          piggy.GameOngoingStatus,
		CurrentPosition: 1,
	}
}

func TestInitialDifficulty(t *testing.T) {
	finished := piggy.FinishedContext(decimal.NewFromInt(1e7))

	tests := []struct {
		name     string
		contexts map[piggy.Difficulty]*piggy.Context
		want     piggy.Difficulty
	}{
		{
			name:     "no contexts defaults to easiest",
			contexts: map[piggy.Difficulty]*piggy.Context{},
			want:     piggy.DifficultyEasy,
		},
		{
			name: "single ongoing wins",
			contexts: map[piggy.Difficulty]*piggy.Context{
				piggy.DifficultyHard: ongoingContext(),
			},
			want: piggy.DifficultyHard,
		},
		{
			name: "finished contexts do not count",
			contexts: map[piggy.Difficulty]*piggy.Context{
				piggy.DifficultyMedium: &finished,
			},
			want: piggy.DifficultyEasy,
		},
		{
			name: "two ongoing falls back to easiest",
			contexts: map[piggy.Difficulty]*piggy.Context{
				piggy.DifficultyMedium: ongoingContext(),
				piggy.DifficultyHard:   ongoingContext(),
			},
			want: piggy.DifficultyEasy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InitialDifficulty(tt.contexts); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadSelectsInitialTier(t *testing.T) {
	bus := events.NewBus()
	reg := registry.New()
	m := NewManager(bus, reg)

	var changes []piggy.Difficulty
	bus.Subscribe(events.DifficultyChanged, func(p any) {
		changes = append(changes, p.(piggy.Difficulty))
	})

	params := piggy.SimGameParams()
	err := m.Load(params, map[piggy.Difficulty]*piggy.Context{
		piggy.DifficultyMedium: ongoingContext(),
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := m.Current(); got != piggy.DifficultyMedium {
		t.Errorf("current difficulty %q, want medium", got)
	}
	if len(changes) != 1 || changes[0] != piggy.DifficultyMedium {
		t.Errorf("expected one difficulty-changed for medium, got %v", changes)
	}
	current, ok := reg.Params()
	if !ok {
		t.Fatal("current params missing")
	}
	if current.Steps() != params[piggy.DifficultyMedium].Steps() {
		t.Errorf("current params are not the medium tier")
	}
	if ctx, ok := reg.Context(); !ok || !ctx.Ongoing() {
		t.Error("current context should be medium's ongoing round")
	}
}

func TestSelectSwapsCurrentSlots(t *testing.T) {
	bus := events.NewBus()
	reg := registry.New()
	m := NewManager(bus, reg)

	if err := m.Load(piggy.SimGameParams(), map[piggy.Difficulty]*piggy.Context{}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := m.Select(piggy.DifficultyHard); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := m.Current(); got != piggy.DifficultyHard {
		t.Errorf("current difficulty %q, want hard", got)
	}
	params, _ := reg.Params()
	if params.Steps() != piggy.SimGameParams()[piggy.DifficultyHard].Steps() {
		t.Error("current params should be hard's table")
	}
	if _, ok := reg.Context(); ok {
		t.Error("current context should be cleared when the tier has none")
	}
}

func TestSelectUnknownDifficulty(t *testing.T) {
	m := NewManager(events.NewBus(), registry.New())
	if err := m.Select(piggy.DifficultyHard); err == nil {
		t.Fatal("expected error before params loaded")
	}
}

func TestStoreContextKeepsMapInSync(t *testing.T) {
	bus := events.NewBus()
	reg := registry.New()
	m := NewManager(bus, reg)
	if err := m.Load(piggy.SimGameParams(), map[piggy.Difficulty]*piggy.Context{}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	m.StoreContext(*ongoingContext())

	if ctx, ok := reg.Context(); !ok || ctx.CurrentPosition != 1 {
		t.Error("current slot should hold the stored context")
	}
	if ctx := m.ContextFor(piggy.DifficultyEasy); ctx == nil || ctx.CurrentPosition != 1 {
		t.Error("per-difficulty map should hold the stored context")
	}
	if ctx := m.ContextFor(piggy.DifficultyMedium); ctx != nil {
		t.Error("other tiers must be untouched")
	}
}
