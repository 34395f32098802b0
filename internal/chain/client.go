// Package chain reads game state from a Sui fullnode over JSON-RPC.
//
// The client covers the three read paths the game needs on load and on
// defensive reloads: the per-difficulty game objects, the persisted round
// context for an account, and the account balance. Writes go through the
// host window, not through this package.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openplay-labs/piggy-bank-desktop/internal/piggy"
)

// Config holds configuration for the fullnode client.
type Config struct {
	// RPCURL is the fullnode JSON-RPC endpoint.
	RPCURL string

	// GameIDs maps each difficulty to its on-chain game object id.
	GameIDs map[piggy.Difficulty]string

	// MaxRetries is the maximum number of retry attempts for retryable
	// errors. Defaults to 3 if zero.
	MaxRetries int

	// BaseRetryDelay is the initial delay before the first retry.
	// Defaults to 500ms if zero.
	BaseRetryDelay time.Duration

	// MaxRetryDelay caps the exponential backoff delay.
	// Defaults to 5 seconds if zero.
	MaxRetryDelay time.Duration

	// HTTPClient allows injecting a custom HTTP client (useful for
	// testing). Defaults to a client with 15s timeout.
	HTTPClient *http.Client
}

// Client is a read-only fullnode client.
type Client struct {
	config Config
	http   *http.Client
}

// NewClient creates a fullnode client with the given configuration.
func NewClient(cfg Config) *Client {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseRetryDelay == 0 {
		cfg.BaseRetryDelay = 500 * time.Millisecond
	}
	if cfg.MaxRetryDelay == 0 {
		cfg.MaxRetryDelay = 5 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	return &Client{config: cfg, http: httpClient}
}

// call sends a single JSON-RPC request and decodes the result envelope.
func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("chain: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.RPCURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("chain: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("chain: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("chain: read response: %w", err)
	}
	if resp.StatusCode != 200 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var envelope rpcResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("chain: invalid response JSON: %w", err)
	}
	if envelope.Error != nil {
		return &RPCError{Code: envelope.Error.Code, Message: envelope.Error.Message}
	}
	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("chain: decode %s result: %w", method, err)
		}
	}
	return nil
}

// callWithRetry retries retryable HTTP failures with exponential backoff.
func (c *Client) callWithRetry(ctx context.Context, method string, params []any, result any) error {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.retryDelay(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := c.call(ctx, method, params, result)
		if err == nil {
			return nil
		}
		lastErr = err

		if httpErr, ok := err.(*HTTPError); ok && httpErr.IsRetryable() {
			continue
		}
		return err
	}

	return fmt.Errorf("chain: max retries exceeded: %w", lastErr)
}

// retryDelay calculates the backoff delay for a given attempt number.
func (c *Client) retryDelay(attempt int) time.Duration {
	delay := c.config.BaseRetryDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	if delay > c.config.MaxRetryDelay {
		delay = c.config.MaxRetryDelay
	}
	return delay
}

// FetchGame reads one game object and converts it to game parameters.
// A missing or non-move object comes back as nil.
func (c *Client) FetchGame(ctx context.Context, gameID string) (*piggy.GameParams, error) {
	var obj objectResponse
	err := c.callWithRetry(ctx, "sui_getObject", []any{
		gameID,
		map[string]any{"showContent": true},
	}, &obj)
	if err != nil {
		return nil, err
	}
	if obj.Data == nil || obj.Data.Content == nil || obj.Data.Content.DataType != "moveObject" {
		return nil, nil
	}

	var fields gameFields
	if err := json.Unmarshal(obj.Data.Content.Fields, &fields); err != nil {
		return nil, fmt.Errorf("chain: decode game object %s: %w", gameID, err)
	}
	return &piggy.GameParams{
		GameID:          fields.ID.ID,
		MinStake:        fields.MinStake,
		MaxStake:        fields.MaxStake,
		StepsPayoutBps:  fields.StepsPayoutBps,
		SuccessRateBps:  fields.SuccessRateBps,
		ContextsTableID: fields.Contexts.Fields.ID.ID,
	}, nil
}

// FetchGames reads the game objects for every configured difficulty.
// Difficulties whose object is missing are absent from the result.
func (c *Client) FetchGames(ctx context.Context) (map[piggy.Difficulty]*piggy.GameParams, error) {
	result := make(map[piggy.Difficulty]*piggy.GameParams, len(piggy.Difficulties))
	for _, d := range piggy.Difficulties {
		id, ok := c.config.GameIDs[d]
		if !ok || id == "" {
			continue
		}
		params, err := c.FetchGame(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("chain: fetch %s game: %w", d, err)
		}
		if params != nil {
			result[d] = params
		}
	}
	return result, nil
}

// FetchContext reads the persisted round context for an account from a
// game's contexts table. Absent contexts come back as nil.
func (c *Client) FetchContext(ctx context.Context, contextTableID, balanceManagerID string) (*piggy.Context, error) {
	var obj objectResponse
	err := c.callWithRetry(ctx, "suix_getDynamicFieldObject", []any{
		contextTableID,
		map[string]any{
			"type":  dynamicFieldIDValueType,
			"value": balanceManagerID,
		},
	}, &obj)
	if err != nil {
		return nil, err
	}
	if obj.Data == nil || obj.Data.Content == nil || obj.Data.Content.DataType != "moveObject" {
		return nil, nil
	}

	var wrapper dynamicFieldValue
	if err := json.Unmarshal(obj.Data.Content.Fields, &wrapper); err != nil {
		return nil, fmt.Errorf("chain: decode context for %s: %w", balanceManagerID, err)
	}
	converted := wrapper.Value.Fields.toContext()
	return &converted, nil
}

// FetchBalance reads the available balance of a balance manager object.
func (c *Client) FetchBalance(ctx context.Context, balanceManagerID string) (decimal.Decimal, error) {
	var obj objectResponse
	err := c.callWithRetry(ctx, "sui_getObject", []any{
		balanceManagerID,
		map[string]any{"showContent": true},
	}, &obj)
	if err != nil {
		return decimal.Zero, err
	}
	if obj.Data == nil || obj.Data.Content == nil || obj.Data.Content.DataType != "moveObject" {
		return decimal.Zero, fmt.Errorf("chain: balance manager %s not found", balanceManagerID)
	}

	var fields balanceFields
	if err := json.Unmarshal(obj.Data.Content.Fields, &fields); err != nil {
		return decimal.Zero, fmt.Errorf("chain: decode balance manager %s: %w", balanceManagerID, err)
	}
	return fields.Balance, nil
}

// InteractEventType returns the full Move event type for a package id.
func InteractEventType(packageID string) string {
	return packageID + interactEventSuffix
}

// InteractTarget returns the full Move call target for a package id.
func InteractTarget(packageID string) string {
	return packageID + interactFunctionSuffix
}

// ContextType returns the full Move type of a round context for a
// package id.
func ContextType(packageID string) string {
	return packageID + contextTypeSuffix
}
