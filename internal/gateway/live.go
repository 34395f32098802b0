package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/openplay-labs/piggy-bank-desktop/internal/chain"
	"github.com/openplay-labs/piggy-bank-desktop/internal/events"
	"github.com/openplay-labs/piggy-bank-desktop/internal/hostmsg"
	"github.com/openplay-labs/piggy-bank-desktop/internal/piggy"
	"github.com/openplay-labs/piggy-bank-desktop/internal/registry"
)

// TxExecutor signs and executes a serialized transaction and returns the
// raw execution result. Implemented by hostmsg.Proxy.
type TxExecutor interface {
	SignAndExecute(ctx context.Context, txJSON string) (json.RawMessage, error)
}

// LiveConfig holds the chain identifiers the live gateway needs to build
// interact transactions.
type LiveConfig struct {
	// PackageID is the game's Move package id.
	PackageID string

	// RegistryID is the shared on-chain registry object id.
	RegistryID string
}

// Live is the chain-backed gateway. Each action builds an interact
// transaction, hands it to the host for signing and execution, and parses
// the settlement event out of the result.
type Live struct {
	bus    *events.Bus
	reg    *registry.Registry
	exec   TxExecutor
	config LiveConfig
	logger *log.Logger

	mu   sync.RWMutex
	init *hostmsg.InitData
}

// NewLive creates a live gateway. The account identifiers arrive later,
// through SetInitData, once the host handshake completes.
func NewLive(bus *events.Bus, reg *registry.Registry, exec TxExecutor, cfg LiveConfig) *Live {
	return &Live{
		bus:    bus,
		reg:    reg,
		exec:   exec,
		config: cfg,
		logger: log.New(log.Writer(), "[live] ", log.LstdFlags),
	}
}

// SetInitData stores the host-provided account identifiers.
func (l *Live) SetInitData(init hostmsg.InitData) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.init = &init
}

// InitData returns the host-provided account identifiers, if the handshake
// has completed.
func (l *Live) InitData() (hostmsg.InitData, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.init == nil {
		return hostmsg.InitData{}, false
	}
	return *l.init, true
}

// StartGame submits an interact transaction with the StartGame action and
// the current stake.
func (l *Live) StartGame(ctx context.Context) {
	stake, ok := l.reg.Stake()
	if !ok {
		l.emitError("No stake selected")
		return
	}
	l.interact(ctx, piggy.StartGameAction, stake)
}

// Advance submits an interact transaction with the Advance action.
func (l *Live) Advance(ctx context.Context) {
	l.interact(ctx, piggy.AdvanceAction, decimal.Zero)
}

// CashOut submits an interact transaction with the CashOut action.
func (l *Live) CashOut(ctx context.Context) {
	l.interact(ctx, piggy.CashOutAction, decimal.Zero)
}

// moveCallArg is one argument of the serialized interact call. Exactly one
// field is set.
type moveCallArg struct {
	Object     string `json:"object,omitempty"`
	PureString string `json:"pureString,omitempty"`
	PureU64    string `json:"pureU64,omitempty"`
}

// moveCall is the neutral transaction representation sent to the host. The
// host materializes it into the chain's native transaction format.
type moveCall struct {
	Target    string        `json:"target"`
	Arguments []moveCallArg `json:"arguments"`
}

// randomObjectID is the chain's shared randomness object.
const randomObjectID = "0x8"

func (l *Live) interact(ctx context.Context, action string, stake decimal.Decimal) {
	init, ok := l.InitData()
	if !ok {
		l.emitError("Game not initialized")
		return
	}
	params, ok := l.reg.Params()
	if !ok {
		l.emitError("Game data not found")
		return
	}

	call := moveCall{
		Target: chain.InteractTarget(l.config.PackageID),
		Arguments: []moveCallArg{
			{Object: params.GameID},
			{Object: l.config.RegistryID},
			{Object: init.BalanceManagerID},
			{Object: init.HouseID},
			{Object: init.PlayCapID},
			{PureString: action},
			{PureU64: stake.String()},
			{Object: randomObjectID},
		},
	}
	txJSON, err := json.Marshal(call)
	if err != nil {
		l.emitError(fmt.Sprintf("build transaction: %v", err))
		return
	}

	// The exchange with the host blocks until it answers, so it runs off
	// the caller's goroutine. Resolution arrives on the bus either way.
	go l.execute(ctx, string(txJSON))
}

func (l *Live) execute(ctx context.Context, txJSON string) {
	raw, err := l.exec.SignAndExecute(ctx, txJSON)
	if err != nil {
		l.logger.Printf("sign and execute failed: %v", err)
		l.emitError(executionErrorMessage(err))
		return
	}

	var result chain.ExecutionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		l.logger.Printf("malformed execution result: %v", err)
		l.emitError("An unknown error occurred")
		return
	}

	if result.Effects != nil && result.Effects.Status.Status == "failure" {
		l.emitError(chain.DecodeExecutionError(result.Effects.Status.Error))
		return
	}

	eventType := chain.InteractEventType(l.config.PackageID)
	for _, ev := range result.Events {
		if ev.Type != eventType {
			continue
		}
		var parsed chain.InteractedEvent
		if err := json.Unmarshal(ev.ParsedJSON, &parsed); err != nil {
			l.logger.Printf("malformed interact event: %v", err)
			l.emitError("An unknown error occurred")
			return
		}
		l.bus.Publish(events.Interacted, parsed.Outcome())
		return
	}

	l.emitError("No interact event found")
}

func (l *Live) emitError(msg string) {
	l.bus.Publish(events.ErrorRaised, msg)
}

// executionErrorMessage maps a host-side failure to the message shown to
// the player. Abort failures carry the Move module and code in their text
// and map through the known error tables; everything else passes through
// as-is.
func executionErrorMessage(err error) string {
	msg := err.Error()
	if module, _ := chain.ParseAbort(msg); module != "" {
		return chain.DecodeExecutionError(msg)
	}
	return msg
}
