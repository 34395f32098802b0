// Package devnode runs a loopback chain emulator so the full live stack
// (read client, transaction building, event parsing) can be exercised
// without a network or a deployed contract. It speaks the same JSON-RPC
// read surface the real fullnode does, plus a dev-only execute endpoint
// that settles interact transactions with the shared game rules.
package devnode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"github.com/openplay-labs/piggy-bank-desktop/internal/piggy"
)

// Server serves the emulated chain over loopback HTTP.
type Server struct {
	world      *World
	addr       string
	logger     *log.Logger
	httpServer *http.Server
}

// New creates a devnode server bound to loopback at the given port.
func New(world *World, port int) *Server {
	if port <= 0 {
		port = 9123
	}
	return &Server{
		world:  world,
		addr:   fmt.Sprintf("127.0.0.1:%d", port),
		logger: log.New(os.Stdout, "[devnode] ", log.LstdFlags),
	}
}

// Addr returns the bound loopback address.
func (s *Server) Addr() string { return s.addr }

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Post("/", s.handleRPC)
	r.Post("/execute", s.handleExecute)
	return r
}

// Start begins listening in a goroutine. It returns when the socket is
// bound.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	go func() {
		_ = s.httpServer.Serve(ln)
	}()
	s.logger.Printf("listening on %s", s.addr)
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "package": s.world.PackageID()})
}

// ========== JSON-RPC read surface ==========

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      int               `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPCError(w, req.ID, -32700, "parse error")
		return
	}

	switch req.Method {
	case "sui_getObject":
		s.handleGetObject(w, req)
	case "suix_getDynamicFieldObject":
		s.handleGetDynamicField(w, req)
	default:
		writeRPCError(w, req.ID, -32601, fmt.Sprintf("method %q not found", req.Method))
	}
}

func (s *Server) handleGetObject(w http.ResponseWriter, req rpcRequest) {
	var objectID string
	if len(req.Params) < 1 || json.Unmarshal(req.Params[0], &objectID) != nil {
		writeRPCError(w, req.ID, -32602, "invalid params")
		return
	}

	if params, ok := s.world.Game(objectID); ok {
		writeRPCResult(w, req.ID, moveObject(objectID, gameObjectFields(params)))
		return
	}
	if balance, ok := s.world.Balance(objectID); ok {
		writeRPCResult(w, req.ID, moveObject(objectID, map[string]any{"balance": balance.String()}))
		return
	}
	writeRPCResult(w, req.ID, map[string]any{"error": map[string]string{"code": "notExists"}})
}

func (s *Server) handleGetDynamicField(w http.ResponseWriter, req rpcRequest) {
	var tableID string
	var name struct {
		Value string `json:"value"`
	}
	if len(req.Params) < 2 ||
		json.Unmarshal(req.Params[0], &tableID) != nil ||
		json.Unmarshal(req.Params[1], &name) != nil {
		writeRPCError(w, req.ID, -32602, "invalid params")
		return
	}

	ctx, ok := s.world.ContextByTable(tableID, name.Value)
	if !ok {
		writeRPCResult(w, req.ID, map[string]any{"error": map[string]string{"code": "dynamicFieldNotFound"}})
		return
	}
	writeRPCResult(w, req.ID, moveObject(tableID, map[string]any{
		"value": map[string]any{"fields": contextFields(*ctx)},
	}))
}

// ========== Execute endpoint ==========

// executeRequest is the neutral transaction representation the live
// gateway serializes.
type executeRequest struct {
	Target    string `json:"target"`
	Arguments []struct {
		Object     string `json:"object,omitempty"`
		PureString string `json:"pureString,omitempty"`
		PureU64    string `json:"pureU64,omitempty"`
	} `json:"arguments"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "invalid JSON"})
		return
	}

	target := s.world.PackageID() + "::game::interact"
	if req.Target != target {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": fmt.Sprintf("unknown target %q", req.Target),
		})
		return
	}
	if len(req.Arguments) != 8 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "interact takes 8 arguments"})
		return
	}

	gameID := req.Arguments[0].Object
	balanceManagerID := req.Arguments[2].Object
	action := req.Arguments[5].PureString
	stake, err := decimal.NewFromString(req.Arguments[6].PureU64)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "invalid stake"})
		return
	}

	outcome, err := s.world.Interact(gameID, balanceManagerID, action, stake)
	if err != nil {
		var abort *abortError
		if errors.As(err, &abort) {
			writeJSON(w, http.StatusOK, failureResult(abort.code))
			return
		}
		s.logger.Printf("execute failed: %v", err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"digest": fmt.Sprintf("dev-%d", time.Now().UnixNano()),
		"effects": map[string]any{
			"status": map[string]any{"status": "success"},
		},
		"events": []map[string]any{
			{
				"type": s.world.PackageID() + "::game::InteractedWithGame",
				"parsedJson": map[string]any{
					"old_balance":        outcome.OldBalance.String(),
					"new_balance":        outcome.NewBalance.String(),
					"balance_manager_id": balanceManagerID,
					"context":            contextFields(outcome.Context),
				},
			},
		},
	})
}

// failureResult formats an abort the way execution failures appear on the
// real chain, so the client's abort parser sees the same text.
func failureResult(code int) map[string]any {
	msg := fmt.Sprintf(
		`MoveAbort(MoveLocation { module: ModuleId { address: 0xdev, name: Identifier("game") }, function: 0, instruction: 0, function_name: Some("interact") }, %d) in command 0`,
		code)
	return map[string]any{
		"digest": fmt.Sprintf("dev-%d", time.Now().UnixNano()),
		"effects": map[string]any{
			"status": map[string]any{"status": "failure", "error": msg},
		},
	}
}

// ========== Wire shapes ==========

func moveObject(objectID string, fields map[string]any) map[string]any {
	return map[string]any{
		"data": map[string]any{
			"objectId": objectID,
			"content": map[string]any{
				"dataType": "moveObject",
				"fields":   fields,
			},
		},
	}
}

func gameObjectFields(params piggy.GameParams) map[string]any {
	return map[string]any{
		"id":               map[string]any{"id": params.GameID},
		"min_stake":        params.MinStake.String(),
		"max_stake":        params.MaxStake.String(),
		"steps_payout_bps": params.StepsPayoutBps,
		"success_rate_bps": params.SuccessRateBps,
		"contexts": map[string]any{
			"fields": map[string]any{
				"id": map[string]any{"id": params.ContextsTableID},
			},
		},
	}
}

func contextFields(ctx piggy.Context) map[string]any {
	return map[string]any{
		"stake":            ctx.Stake.String(),
		"status":           ctx.Status,
		"win":              ctx.Win.String(),
		"current_position": ctx.CurrentPosition,
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func writeRPCResult(w http.ResponseWriter, id int, result any) {
	writeJSON(w, http.StatusOK, map[string]any{"jsonrpc": "2.0", "id": id, "result": result})
}

func writeRPCError(w http.ResponseWriter, id, code int, msg string) {
	writeJSON(w, http.StatusOK, map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error":   map[string]any{"code": code, "message": msg},
	})
}
