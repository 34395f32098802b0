package devnode

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/openplay-labs/piggy-bank-desktop/internal/piggy"
)

// Abort codes of the game module, mirrored in the client's error tables.
const (
	abortUnsupportedStake  = 3
	abortAlreadyOngoing    = 5
	abortNotInProgress     = 6
	abortUnsupportedAction = 7
)

// abortError carries a game-module abort code out of a world operation.
type abortError struct {
	code int
}

func (e *abortError) Error() string {
	return fmt.Sprintf("devnode: game abort %d", e.code)
}

// World is the in-memory chain state: one game object per difficulty, one
// balance manager, and per-game round contexts. All genesis values follow
// the built-in simulation tables.
type World struct {
	packageID string

	mu           sync.Mutex
	games        map[string]piggy.GameParams          // by game object id
	byDifficulty map[piggy.Difficulty]string          // difficulty -> game object id
	tables       map[string]string                    // contexts table id -> game object id
	contexts     map[string]map[string]*piggy.Context // game object id -> balance manager id -> context
	balances     map[string]decimal.Decimal           // balance manager id -> balance
	roll         func() int64
}

// NewWorld creates a world seeded with the standard parameter tables and
// one funded dev account.
func NewWorld(packageID, balanceManagerID string) *World {
	if packageID == "" {
		packageID = "0xdev"
	}
	w := &World{
		packageID:    packageID,
		games:        make(map[string]piggy.GameParams),
		byDifficulty: make(map[piggy.Difficulty]string),
		tables:       make(map[string]string),
		contexts:     make(map[string]map[string]*piggy.Context),
		balances:     make(map[string]decimal.Decimal),
		roll:         func() int64 { return rand.Int63n(piggy.BpsDenominator) },
	}
	for d, params := range piggy.SimGameParams() {
		gameID := fmt.Sprintf("%s-game-%s", packageID, d)
		tableID := gameID + "-contexts"
		params.GameID = gameID
		params.ContextsTableID = tableID
		w.games[gameID] = params
		w.byDifficulty[d] = gameID
		w.tables[tableID] = gameID
		w.contexts[gameID] = make(map[string]*piggy.Context)
	}
	if balanceManagerID != "" {
		w.balances[balanceManagerID] = piggy.SimStartBalance
	}
	return w
}

// PackageID returns the emulated Move package id.
func (w *World) PackageID() string { return w.packageID }

// GameIDs returns the game object id for each difficulty.
func (w *World) GameIDs() map[piggy.Difficulty]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[piggy.Difficulty]string, len(w.byDifficulty))
	for d, id := range w.byDifficulty {
		out[d] = id
	}
	return out
}

// Game returns the parameters of a game object.
func (w *World) Game(gameID string) (piggy.GameParams, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	params, ok := w.games[gameID]
	return params, ok
}

// ContextByTable resolves a contexts-table dynamic field lookup.
func (w *World) ContextByTable(tableID, balanceManagerID string) (*piggy.Context, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	gameID, ok := w.tables[tableID]
	if !ok {
		return nil, false
	}
	ctx, ok := w.contexts[gameID][balanceManagerID]
	if !ok || ctx == nil {
		return nil, false
	}
	copied := *ctx
	return &copied, true
}

// Balance returns an account's balance.
func (w *World) Balance(balanceManagerID string) (decimal.Decimal, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.balances[balanceManagerID]
	return b, ok
}

// Fund sets an account's balance, creating the account if needed.
func (w *World) Fund(balanceManagerID string, balance decimal.Decimal) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[balanceManagerID] = balance
}

// Interact executes a game action for an account, exactly as the contract
// would: validate, settle with the shared rules, persist, and return the
// settlement.
func (w *World) Interact(gameID, balanceManagerID, action string, stake decimal.Decimal) (piggy.Outcome, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	params, ok := w.games[gameID]
	if !ok {
		return piggy.Outcome{}, fmt.Errorf("devnode: unknown game %q", gameID)
	}
	balance, ok := w.balances[balanceManagerID]
	if !ok {
		return piggy.Outcome{}, fmt.Errorf("devnode: unknown balance manager %q", balanceManagerID)
	}
	current := w.contexts[gameID][balanceManagerID]

	var (
		next       piggy.Context
		newBalance decimal.Decimal
		err        error
	)
	switch action {
	case piggy.StartGameAction:
		if current != nil && current.Ongoing() {
			return piggy.Outcome{}, &abortError{abortAlreadyOngoing}
		}
		if !piggy.StakeAllowed(stake) || balance.LessThan(stake) {
			return piggy.Outcome{}, &abortError{abortUnsupportedStake}
		}
		success := piggy.MayAdvance(params.SuccessRateBps, w.roll())
		next, newBalance = piggy.StepStart(params, stake, balance, success)

	case piggy.AdvanceAction:
		if current == nil || !current.Ongoing() {
			return piggy.Outcome{}, &abortError{abortNotInProgress}
		}
		success := piggy.MayAdvance(params.SuccessRateBps, w.roll())
		next, newBalance, err = piggy.StepAdvance(params, *current, balance, success)
		if err != nil {
			return piggy.Outcome{}, err
		}

	case piggy.CashOutAction:
		if current == nil || !current.Ongoing() || !current.HasPosition() {
			return piggy.Outcome{}, &abortError{abortNotInProgress}
		}
		next, newBalance, err = piggy.StepCashOut(params, *current, balance)
		if err != nil {
			return piggy.Outcome{}, err
		}

	default:
		return piggy.Outcome{}, &abortError{abortUnsupportedAction}
	}

	stored := next
	w.contexts[gameID][balanceManagerID] = &stored
	w.balances[balanceManagerID] = newBalance

	return piggy.Outcome{
		OldBalance: balance,
		NewBalance: newBalance,
		Context:    next,
	}, nil
}
