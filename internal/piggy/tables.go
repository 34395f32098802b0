package piggy

import "github.com/shopspring/decimal"

// Simulated game parameters per difficulty. Step counts, payout tables and
// success rates match the deployed tiers so the simulated backend behaves
// like the live one.
var simParams = map[Difficulty]GameParams{
	DifficultyEasy: {
		GameID:   "sim-easy",
		MinStake: decimal.Zero,
		MaxStake: decimal.NewFromInt(100e9),
		StepsPayoutBps: []int64{
			11000, 12000, 13000, 14000, 15000, 16000, 17000,
		},
		SuccessRateBps: 9000,
	},
	DifficultyMedium: {
		GameID:   "sim-medium",
		MinStake: decimal.Zero,
		MaxStake: decimal.NewFromInt(100e9),
		StepsPayoutBps: []int64{
			12000, 15000, 20000, 30000, 40000, 50000, 60000, 70000, 80000, 90000, 100000,
		},
		SuccessRateBps: 8000,
	},
	DifficultyHard: {
		GameID:   "sim-hard",
		MinStake: decimal.Zero,
		MaxStake: decimal.NewFromInt(100e9),
		StepsPayoutBps: []int64{
			20000, 30000, 40000, 50000, 60000, 70000, 80000, 90000, 100000,
		},
		SuccessRateBps: 6000,
	},
}

// SimStartBalance is the bankroll a simulated session begins with.
var SimStartBalance = decimal.NewFromInt(100e9)

// SimGameParams returns a copy of the built-in parameter map used when no
// chain backend is configured.
func SimGameParams() map[Difficulty]GameParams {
	out := make(map[Difficulty]GameParams, len(simParams))
	for d, p := range simParams {
		steps := make([]int64, len(p.StepsPayoutBps))
		copy(steps, p.StepsPayoutBps)
		p.StepsPayoutBps = steps
		out[d] = p
	}
	return out
}
