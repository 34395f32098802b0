package bindings

import (
	"github.com/shopspring/decimal"

	"github.com/openplay-labs/piggy-bank-desktop/internal/piggy"
)

// ContextView is the frontend-facing shape of a round context.
type ContextView struct {
	Stake           string `json:"stake"`
	Status          string `json:"status"`
	Win             string `json:"win"`
	CurrentPosition uint8  `json:"currentPosition"`
}

// ParamsView is the frontend-facing shape of the active game parameters.
type ParamsView struct {
	MinStake       string  `json:"minStake"`
	MaxStake       string  `json:"maxStake"`
	StepsPayoutBps []int64 `json:"stepsPayoutBps"`
	SuccessRateBps int64   `json:"successRateBps"`
}

// Snapshot is the full game state pushed to the frontend on request. The
// same data flows incrementally over the forwarded bus events; the snapshot
// serves the initial render and recovery after a frontend reload.
type Snapshot struct {
	Status        string       `json:"status"`
	Balance       string       `json:"balance"`
	Stake         string       `json:"stake"`
	Difficulty    string       `json:"difficulty"`
	Difficulties  []string     `json:"difficulties"`
	AllowedStakes []string     `json:"allowedStakes"`
	Context       *ContextView `json:"context,omitempty"`
	Params        *ParamsView  `json:"params,omitempty"`
}

// GetSnapshot returns the current game state.
func (a *App) GetSnapshot() Snapshot {
	snap := Snapshot{
		Status:     string(a.machine.Status()),
		Difficulty: string(a.tiers.Current()),
	}
	for _, d := range piggy.Difficulties {
		snap.Difficulties = append(snap.Difficulties, string(d))
	}
	for _, s := range piggy.AllowedStakes {
		snap.AllowedStakes = append(snap.AllowedStakes, s.String())
	}
	if balance, ok := a.reg.Balance(); ok {
		snap.Balance = balance.String()
	}
	if stake, ok := a.reg.Stake(); ok {
		snap.Stake = stake.String()
	}
	if roundCtx, ok := a.reg.Context(); ok {
		snap.Context = &ContextView{
			Stake:           roundCtx.Stake.String(),
			Status:          roundCtx.Status,
			Win:             roundCtx.Win.String(),
			CurrentPosition: roundCtx.CurrentPosition,
		}
	}
	if params, ok := a.reg.Params(); ok {
		snap.Params = &ParamsView{
			MinStake:       params.MinStake.String(),
			MaxStake:       params.MaxStake.String(),
			StepsPayoutBps: params.StepsPayoutBps,
			SuccessRateBps: params.SuccessRateBps,
		}
	}
	return snap
}

// StartGame requests a new round with the selected stake.
func (a *App) StartGame() {
	a.machine.StartGame(a.ctx)
}

// Advance requests a step to the next platform.
func (a *App) Advance() {
	a.machine.Advance(a.ctx)
}

// CashOut requests settlement of the ongoing round.
func (a *App) CashOut() {
	a.machine.CashOut(a.ctx)
}

// PlatformClicked handles a direct click on platform index.
func (a *App) PlatformClicked(index int) {
	a.machine.PlatformClicked(a.ctx, index)
}

// Reload re-fetches authoritative state. This is the recovery path the
// frontend offers after an error.
func (a *App) Reload() {
	a.machine.Reload(a.ctx)
}

// SetStake selects the stake for the next round. Returns false when the
// value is not allowed or a round is in progress.
func (a *App) SetStake(value string) bool {
	stake, err := decimal.NewFromString(value)
	if err != nil {
		return false
	}
	return a.machine.SetStake(stake)
}

// SetDifficulty switches the active tier.
func (a *App) SetDifficulty(value string) error {
	d, err := piggy.ParseDifficulty(value)
	if err != nil {
		return err
	}
	return a.machine.SetDifficulty(d)
}
