package chain

import (
	"fmt"
	"regexp"
	"strconv"
)

// HTTPError represents a non-200 HTTP response from the fullnode.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("chain: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for rate limits (429) and server errors (5xx).
func (e *HTTPError) IsRetryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// RPCError represents an error body in a JSON-RPC response envelope.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("chain: rpc %d: %s", e.Code, e.Message)
}

// unknownErrorMessage is shown whenever an abort code cannot be mapped to
// a known module error.
const unknownErrorMessage = "Unknown error. Please submit a bug report."

// abortMessages maps Move module name and abort code to a user-facing
// message. These track the contract's error constants.
var abortMessages = map[string]map[int]string{
	"context": {
		1: "Invalid state transition",
	},
	"game": {
		1:  "Invalid success rate",
		2:  "Invalid steps",
		3:  "Unsupported stake",
		4:  "Invalid cash out",
		5:  "Game already ongoing",
		6:  "Game not in progress",
		7:  "Unsupported action",
		8:  "Cannot advance further",
		9:  "Package version disabled",
		10: "Version already allowed",
		11: "Version already disabled",
	},
}

var (
	// Execution failure strings embed the aborting module as
	// `name: Identifier("game")` and the abort code as the final number
	// before `) in command`.
	abortModuleRe = regexp.MustCompile(`name: Identifier\("([^"]+)"\)`)
	abortCodeRe   = regexp.MustCompile(`},\s*(\d+)\)\s*in command`)
)

// ParseAbort extracts the module name and abort code from a raw execution
// failure string. Missing pieces come back as "" and 0.
func ParseAbort(raw string) (module string, code int) {
	if m := abortModuleRe.FindStringSubmatch(raw); m != nil {
		module = m[1]
	}
	if m := abortCodeRe.FindStringSubmatch(raw); m != nil {
		code, _ = strconv.Atoi(m[1])
	}
	return module, code
}

// AbortMessage maps a module name and abort code to a user-facing message,
// falling back to a generic one when the pair is unknown.
func AbortMessage(module string, code int) string {
	msgs, ok := abortMessages[module]
	if !ok {
		return unknownErrorMessage
	}
	msg, ok := msgs[code]
	if !ok {
		return unknownErrorMessage
	}
	return msg
}

// DecodeExecutionError turns a raw execution failure string into the
// message shown to the player.
func DecodeExecutionError(raw string) string {
	module, code := ParseAbort(raw)
	if module == "" && code == 0 {
		return unknownErrorMessage
	}
	return AbortMessage(module, code)
}
