package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openplay-labs/piggy-bank-desktop/internal/piggy"
)

func rpcServer(t *testing.T, handler func(method string, params []any) (any, *rpcErrorBody)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode rpc request: %v", err)
		}
		result, rpcErr := handler(req.Method, req.Params)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestFetchGame(t *testing.T) {
	srv := rpcServer(t, func(method string, params []any) (any, *rpcErrorBody) {
		if method != "sui_getObject" {
			t.Errorf("unexpected method %q", method)
		}
		return map[string]any{
			"data": map[string]any{
				"objectId": "0xgame",
				"content": map[string]any{
					"dataType": "moveObject",
					"fields": map[string]any{
						"id":               map[string]any{"id": "0xgame"},
						"min_stake":        "10000000",
						"max_stake":        "1000000000",
						"steps_payout_bps": []int64{11000, 12000, 13000},
						"success_rate_bps": 9000,
						"contexts": map[string]any{
							"fields": map[string]any{
								"id": map[string]any{"id": "0xtable"},
							},
						},
					},
				},
			},
		}, nil
	})
	defer srv.Close()

	c := NewClient(Config{RPCURL: srv.URL})
	params, err := c.FetchGame(context.Background(), "0xgame")
	if err != nil {
		t.Fatalf("FetchGame: %v", err)
	}
	if params == nil {
		t.Fatal("expected game params")
	}
	if params.GameID != "0xgame" || params.ContextsTableID != "0xtable" {
		t.Errorf("unexpected ids: %q %q", params.GameID, params.ContextsTableID)
	}
	if !params.MinStake.Equal(decimal.NewFromInt(1e7)) {
		t.Errorf("unexpected min stake %s", params.MinStake)
	}
	if params.Steps() != 3 || params.SuccessRateBps != 9000 {
		t.Errorf("unexpected params: %d steps, %d bps", params.Steps(), params.SuccessRateBps)
	}
}

func TestFetchGameMissingObject(t *testing.T) {
	srv := rpcServer(t, func(string, []any) (any, *rpcErrorBody) {
		return map[string]any{"error": map[string]any{"code": "notExists"}}, nil
	})
	defer srv.Close()

	c := NewClient(Config{RPCURL: srv.URL})
	params, err := c.FetchGame(context.Background(), "0xmissing")
	if err != nil {
		t.Fatalf("FetchGame: %v", err)
	}
	if params != nil {
		t.Errorf("expected nil for missing object, got %+v", params)
	}
}

func TestFetchGamesSkipsUnconfigured(t *testing.T) {
	srv := rpcServer(t, func(string, []any) (any, *rpcErrorBody) {
		return map[string]any{
			"data": map[string]any{
				"content": map[string]any{
					"dataType": "moveObject",
					"fields": map[string]any{
						"id":               map[string]any{"id": "0xeasy"},
						"min_stake":        "10000000",
						"max_stake":        "1000000000",
						"steps_payout_bps": []int64{11000},
						"success_rate_bps": 9000,
						"contexts":         map[string]any{"fields": map[string]any{"id": map[string]any{"id": "0xt"}}},
					},
				},
			},
		}, nil
	})
	defer srv.Close()

	c := NewClient(Config{
		RPCURL:  srv.URL,
		GameIDs: map[piggy.Difficulty]string{piggy.DifficultyEasy: "0xeasy"},
	})
	games, err := c.FetchGames(context.Background())
	if err != nil {
		t.Fatalf("FetchGames: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("expected 1 game, got %d", len(games))
	}
	if games[piggy.DifficultyEasy] == nil {
		t.Error("expected easy game")
	}
}

func TestFetchContext(t *testing.T) {
	srv := rpcServer(t, func(method string, params []any) (any, *rpcErrorBody) {
		if method != "suix_getDynamicFieldObject" {
			t.Errorf("unexpected method %q", method)
		}
		return map[string]any{
			"data": map[string]any{
				"content": map[string]any{
					"dataType": "moveObject",
					"fields": map[string]any{
						"value": map[string]any{
							"fields": map[string]any{
								"stake":            "10000000",
								"status":           "GameOngoing",
								"win":              "0",
								"current_position": 2,
							},
						},
					},
				},
			},
		}, nil
	})
	defer srv.Close()

	c := NewClient(Config{RPCURL: srv.URL})
	ctx, err := c.FetchContext(context.Background(), "0xtable", "0xbm")
	if err != nil {
		t.Fatalf("FetchContext: %v", err)
	}
	if ctx == nil {
		t.Fatal("expected context")
	}
	if !ctx.Ongoing() || ctx.CurrentPosition != 2 {
		t.Errorf("unexpected context: %q at %d", ctx.Status, ctx.CurrentPosition)
	}
}

func TestFetchContextAbsent(t *testing.T) {
	srv := rpcServer(t, func(string, []any) (any, *rpcErrorBody) {
		return nil, &rpcErrorBody{Code: -32000, Message: "dynamic field not found"}
	})
	defer srv.Close()

	c := NewClient(Config{RPCURL: srv.URL})
	_, err := c.FetchContext(context.Background(), "0xtable", "0xbm")
	if err == nil {
		t.Fatal("expected rpc error")
	}
	if _, ok := err.(*RPCError); !ok {
		t.Errorf("expected *RPCError, got %T", err)
	}
}

func TestFetchBalance(t *testing.T) {
	srv := rpcServer(t, func(string, []any) (any, *rpcErrorBody) {
		return map[string]any{
			"data": map[string]any{
				"content": map[string]any{
					"dataType": "moveObject",
					"fields":   map[string]any{"balance": "100000000000"},
				},
			},
		}, nil
	})
	defer srv.Close()

	c := NewClient(Config{RPCURL: srv.URL})
	balance, err := c.FetchBalance(context.Background(), "0xbm")
	if err != nil {
		t.Fatalf("FetchBalance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(100e9)) {
		t.Errorf("unexpected balance %s", balance)
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": 1,
			"result": map[string]any{
				"data": map[string]any{
					"content": map[string]any{
						"dataType": "moveObject",
						"fields":   map[string]any{"balance": "5"},
					},
				},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{RPCURL: srv.URL, BaseRetryDelay: time.Millisecond})
	balance, err := c.FetchBalance(context.Background(), "0xbm")
	if err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(5)) {
		t.Errorf("unexpected balance %s", balance)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestNoRetryOnBadRequest(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(Config{RPCURL: srv.URL, BaseRetryDelay: time.Millisecond})
	_, err := c.FetchBalance(context.Background(), "0xbm")
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("expected no retries, got %d calls", calls.Load())
	}
}
