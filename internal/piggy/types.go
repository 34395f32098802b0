// Package piggy holds the Piggy Bank domain model: difficulties, game
// parameters, per-difficulty round contexts, and the pure payout/advance
// rules shared by the live event parser, the simulated backend, and the
// optimistic display math. Keeping the rules in one place is what keeps the
// simulated backend and the on-chain logic from drifting apart.
package piggy

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Difficulty selects one of the fixed game parameter profiles.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists all tiers from easiest to hardest. Order matters: the
// first entry is the default tier at load time.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// ParseDifficulty validates a difficulty name.
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(s) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(s), nil
	}
	return "", fmt.Errorf("piggy: unknown difficulty %q", s)
}

// Context statuses as persisted on chain.
const (
	GameOngoingStatus  = "GameOngoing"
	GameFinishedStatus = "GameFinished"
)

// Interact actions as understood by the game contract.
const (
	StartGameAction = "StartGame"
	AdvanceAction   = "Advance"
	CashOutAction   = "CashOut"
)

// EmptyPosition is the sentinel for "no platform reached yet". The value
// mirrors the u8 sentinel used by the contract.
const EmptyPosition = 255

// BpsDenominator converts basis points to fractions: 12000 bps = 1.2x.
const BpsDenominator = 10000

// Context is the per-difficulty persisted progress record for a round.
// One exists per difficulty tier; it is created by a StartGame interaction
// and cleared (position = EmptyPosition, status = GameFinished) on loss,
// cash-out, or reaching the final platform.
type Context struct {
	Stake           decimal.Decimal `json:"stake"`
	Status          string          `json:"status"`
	Win             decimal.Decimal `json:"win"`
	CurrentPosition uint8           `json:"current_position"`
}

// Ongoing reports whether the round is still in progress.
func (c Context) Ongoing() bool { return c.Status == GameOngoingStatus }

// HasPosition reports whether the avatar stands on a platform.
func (c Context) HasPosition() bool { return c.CurrentPosition != EmptyPosition }

// FinishedContext returns a cleared context carrying the given stake.
func FinishedContext(stake decimal.Decimal) Context {
	return Context{
		Stake:           stake,
		Status:          GameFinishedStatus,
		Win:             decimal.Zero,
		CurrentPosition: EmptyPosition,
	}
}

// GameParams are the read-only parameters of one difficulty tier.
type GameParams struct {
	GameID          string          `json:"game_id"`
	MinStake        decimal.Decimal `json:"min_stake"`
	MaxStake        decimal.Decimal `json:"max_stake"`
	StepsPayoutBps  []int64         `json:"steps_payout_bps"`
	SuccessRateBps  int64           `json:"success_rate_bps"`
	ContextsTableID string          `json:"contexts_table_id"`
}

// Steps returns the number of platforms for this tier.
func (p GameParams) Steps() int { return len(p.StepsPayoutBps) }

// LastPosition is the index of the final platform.
func (p GameParams) LastPosition() int { return len(p.StepsPayoutBps) - 1 }

// AllowedStakes is the fixed list of stakes the player can pick from,
// expressed in the smallest currency unit.
var AllowedStakes = []decimal.Decimal{
	decimal.NewFromInt(1e7),
	decimal.NewFromInt(5e7),
	decimal.NewFromInt(10e7),
	decimal.NewFromInt(20e7),
	decimal.NewFromInt(50e7),
	decimal.NewFromInt(1e9),
}

// StakeAllowed reports whether the amount is one of the allowed stakes.
func StakeAllowed(amount decimal.Decimal) bool {
	for _, s := range AllowedStakes {
		if s.Equal(amount) {
			return true
		}
	}
	return false
}

// Outcome is the authoritative result of one backend interaction. Both the
// live chain event parser and the simulated backend produce outcomes of this
// exact shape.
type Outcome struct {
	OldBalance decimal.Decimal `json:"old_balance"`
	NewBalance decimal.Decimal `json:"new_balance"`
	Context    Context         `json:"context"`
}
