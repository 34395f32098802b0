package chain

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/openplay-labs/piggy-bank-desktop/internal/piggy"
)

// Move type suffixes under the game package. The full type string is
// "<package id>::game::InteractedWithGame" and so on.
const (
	contextTypeSuffix       = "::context::PiggyBankContext"
	interactEventSuffix     = "::game::InteractedWithGame"
	interactFunctionSuffix  = "::game::interact"
	dynamicFieldIDValueType = "0x2::object::ID"
)

// rpcRequest is the JSON-RPC 2.0 envelope sent to the fullnode.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// rpcResponse is the JSON-RPC 2.0 envelope received from the fullnode.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcErrorBody   `json:"error"`
}

type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// objectResponse mirrors the sui_getObject result shape, trimmed to the
// fields the client reads.
type objectResponse struct {
	Data *struct {
		ObjectID string `json:"objectId"`
		Content  *struct {
			DataType string          `json:"dataType"`
			Type     string          `json:"type"`
			Fields   json.RawMessage `json:"fields"`
		} `json:"content"`
	} `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

// gameFields is the on-chain game object, as returned in a moveObject's
// fields block.
type gameFields struct {
	ID struct {
		ID string `json:"id"`
	} `json:"id"`
	MinStake       decimal.Decimal `json:"min_stake"`
	MaxStake       decimal.Decimal `json:"max_stake"`
	StepsPayoutBps []int64         `json:"steps_payout_bps"`
	SuccessRateBps int64           `json:"success_rate_bps"`
	Contexts       struct {
		Fields struct {
			ID struct {
				ID string `json:"id"`
			} `json:"id"`
		} `json:"fields"`
	} `json:"contexts"`
}

// contextFields is the persisted per-account round context. Numeric u64
// fields arrive as JSON strings.
type contextFields struct {
	Stake           decimal.Decimal `json:"stake"`
	Status          string          `json:"status"`
	Win             decimal.Decimal `json:"win"`
	CurrentPosition uint8           `json:"current_position"`
}

func (f contextFields) toContext() piggy.Context {
	return piggy.Context{
		Stake:           f.Stake,
		Status:          f.Status,
		Win:             f.Win,
		CurrentPosition: f.CurrentPosition,
	}
}

// dynamicFieldValue wraps a dynamic field lookup result, where the actual
// value sits one level down under "value".
type dynamicFieldValue struct {
	Value struct {
		Fields contextFields `json:"fields"`
	} `json:"value"`
}

// balanceFields is the balance manager object, trimmed to the balance.
type balanceFields struct {
	Balance decimal.Decimal `json:"balance"`
}

// ExecutionEvent is a single event emitted by an executed transaction.
type ExecutionEvent struct {
	Type       string          `json:"type"`
	ParsedJSON json.RawMessage `json:"parsedJson"`
}

// ExecutionResult is the relevant slice of a transaction execution
// response returned by the signing host.
type ExecutionResult struct {
	Digest  string           `json:"digest"`
	Events  []ExecutionEvent `json:"events"`
	Effects *struct {
		Status struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"status"`
	} `json:"effects"`
}

// InteractedEvent is the settlement event emitted by the game's interact
// entry point.
type InteractedEvent struct {
	OldBalance       decimal.Decimal `json:"old_balance"`
	NewBalance       decimal.Decimal `json:"new_balance"`
	BalanceManagerID string          `json:"balance_manager_id"`
	Context          contextFields   `json:"context"`
}

// Outcome converts the wire event into the domain settlement value.
func (e InteractedEvent) Outcome() piggy.Outcome {
	return piggy.Outcome{
		OldBalance: e.OldBalance,
		NewBalance: e.NewBalance,
		Context:    e.Context.toContext(),
	}
}
