package piggy

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PayoutForPosition computes the cash-out amount for standing on a platform:
// floor(stake * stepsPayoutBps[position] / 10000).
func PayoutForPosition(stake decimal.Decimal, stepsBps []int64, position int) (decimal.Decimal, error) {
	if position < 0 || position >= len(stepsBps) {
		return decimal.Zero, fmt.Errorf("piggy: position %d out of range [0, %d)", position, len(stepsBps))
	}
	bps := decimal.NewFromInt(stepsBps[position])
	return stake.Mul(bps).Div(decimal.NewFromInt(BpsDenominator)).Floor(), nil
}

// MayAdvance decides a single advance attempt given a roll drawn uniformly
// from [0, 10000). Success probability is successRateBps / 10000.
func MayAdvance(successRateBps int64, roll int64) bool {
	return roll < successRateBps
}

// ContiguousTarget reports whether clicking platform target is a legal move
// from the current position: the very first platform from the empty state, or
// exactly one step ahead otherwise.
func ContiguousTarget(currentPosition, target int) bool {
	if currentPosition == EmptyPosition {
		return target == 0
	}
	return target == currentPosition+1
}

// StepStart resolves a StartGame attempt: on success the round is ongoing at
// platform 0; on failure the round finishes immediately with nothing won. The
// stake leaves the balance either way.
func StepStart(params GameParams, stake decimal.Decimal, balance decimal.Decimal, success bool) (Context, decimal.Decimal) {
	newBalance := balance.Sub(stake)
	if !success {
		return FinishedContext(stake), newBalance
	}
	return Context{
		Stake:           stake,
		Status:          GameOngoingStatus,
		Win:             decimal.Zero,
		CurrentPosition: 0,
	}, newBalance
}

// StepAdvance resolves an Advance attempt from an ongoing context. Reaching
// the final platform pays out immediately; failing anywhere keeps the
// position in the context but finishes the round with zero win.
func StepAdvance(params GameParams, ctx Context, balance decimal.Decimal, success bool) (Context, decimal.Decimal, error) {
	if !success {
		return Context{
			Stake:           ctx.Stake,
			Status:          GameFinishedStatus,
			Win:             decimal.Zero,
			CurrentPosition: ctx.CurrentPosition,
		}, balance, nil
	}
	next := ctx.CurrentPosition + 1
	if int(next) == params.LastPosition() {
		win, err := PayoutForPosition(ctx.Stake, params.StepsPayoutBps, int(next))
		if err != nil {
			return Context{}, decimal.Zero, err
		}
		return Context{
			Stake:           ctx.Stake,
			Status:          GameFinishedStatus,
			Win:             win,
			CurrentPosition: next,
		}, balance.Add(win), nil
	}
	return Context{
		Stake:           ctx.Stake,
		Status:          GameOngoingStatus,
		Win:             decimal.Zero,
		CurrentPosition: next,
	}, balance, nil
}

// StepCashOut resolves a CashOut from an ongoing context: the payout for the
// current platform is credited and the round finishes.
func StepCashOut(params GameParams, ctx Context, balance decimal.Decimal) (Context, decimal.Decimal, error) {
	win, err := PayoutForPosition(ctx.Stake, params.StepsPayoutBps, int(ctx.CurrentPosition))
	if err != nil {
		return Context{}, decimal.Zero, err
	}
	return Context{
		Stake:           ctx.Stake,
		Status:          GameFinishedStatus,
		Win:             win,
		CurrentPosition: ctx.CurrentPosition,
	}, balance.Add(win), nil
}
