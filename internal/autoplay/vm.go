// Package autoplay runs user-written strategy scripts against the game.
// A script defines a decide(state) function that is called every time the
// round is waiting for input and returns the next action. Scripts run in a
// sandboxed JavaScript VM with no host access.
package autoplay

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// Decision is what decide(state) may return.
type Decision string

const (
	DecideAdvance Decision = "advance"
	DecideCashOut Decision = "cashout"
	DecideStop    Decision = "stop"
)

// State is the snapshot handed to decide().
type State struct {
	Position  int     `json:"position"`
	Steps     int     `json:"steps"`
	PayoutBps []int64 `json:"payoutBps"`
	Balance   string  `json:"balance"`
	Stake     string  `json:"stake"`
	Win       string  `json:"win"`
}

// LogEntry represents a single log message from the script.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

const (
	scriptInitTimeout = 2 * time.Second
	scriptCallTimeout = 1 * time.Second
)

// VM wraps a goja runtime with sandbox restrictions.
type VM struct {
	runtime *goja.Runtime
	mu      sync.Mutex

	logs    []LogEntry
	logsMu  sync.Mutex
	maxLogs int
}

// NewVM creates a sandboxed runtime with the script globals injected.
func NewVM() *VM {
	vm := &VM{
		runtime: goja.New(),
		maxLogs: 500,
	}
	// Scripts address state fields by their json names.
	vm.runtime.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	vm.injectGlobals()
	return vm
}

func (vm *VM) injectGlobals() {
	// log(...args) appends to the log buffer.
	vm.runtime.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		msg := strings.Join(parts, " ")

		vm.logsMu.Lock()
		if len(vm.logs) >= vm.maxLogs {
			vm.logs = vm.logs[1:]
		}
		vm.logs = append(vm.logs, LogEntry{Time: time.Now(), Message: msg})
		vm.logsMu.Unlock()

		return goja.Undefined()
	})

	// console.log — alias for log
	console := vm.runtime.NewObject()
	console.Set("log", vm.runtime.Get("log"))
	vm.runtime.Set("console", console)

	// Decision constants so scripts can return ADVANCE instead of a
	// bare string.
	vm.runtime.Set("ADVANCE", string(DecideAdvance))
	vm.runtime.Set("CASHOUT", string(DecideCashOut))
	vm.runtime.Set("STOP", string(DecideStop))

	// Block dangerous globals.
	vm.runtime.Set("require", goja.Undefined())
	vm.runtime.Set("fetch", goja.Undefined())
	vm.runtime.Set("XMLHttpRequest", goja.Undefined())
	vm.runtime.Set("eval", goja.Undefined())
	vm.runtime.Set("Function", goja.Undefined())
}

// Load runs the script source, which must define decide(state).
func (vm *VM) Load(source string) error {
	err := vm.runWithTimeout(scriptInitTimeout, func() error {
		vm.mu.Lock()
		defer vm.mu.Unlock()
		if _, err := vm.runtime.RunString(source); err != nil {
			return fmt.Errorf("autoplay: script error: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !vm.hasDecide() {
		return fmt.Errorf("autoplay: decide() function is not defined")
	}
	return nil
}

func (vm *VM) hasDecide() bool {
	fn := vm.runtime.Get("decide")
	if fn == nil || goja.IsUndefined(fn) || goja.IsNull(fn) {
		return false
	}
	_, ok := goja.AssertFunction(fn)
	return ok
}

// Decide calls decide(state) and validates the returned action.
func (vm *VM) Decide(state State) (Decision, error) {
	var decision Decision
	err := vm.runWithTimeout(scriptCallTimeout, func() error {
		vm.mu.Lock()
		defer vm.mu.Unlock()

		fn := vm.runtime.Get("decide")
		callable, ok := goja.AssertFunction(fn)
		if !ok {
			return fmt.Errorf("autoplay: decide is not a function")
		}

		result, err := callable(goja.Undefined(), vm.runtime.ToValue(state))
		if err != nil {
			return fmt.Errorf("autoplay: decide() error: %w", err)
		}

		switch Decision(result.String()) {
		case DecideAdvance:
			decision = DecideAdvance
		case DecideCashOut:
			decision = DecideCashOut
		case DecideStop:
			decision = DecideStop
		default:
			return fmt.Errorf("autoplay: decide() returned %q, want advance/cashout/stop", result.String())
		}
		return nil
	})
	return decision, err
}

// Logs returns a copy of the current log buffer.
func (vm *VM) Logs() []LogEntry {
	vm.logsMu.Lock()
	defer vm.logsMu.Unlock()
	out := make([]LogEntry, len(vm.logs))
	copy(out, vm.logs)
	return out
}

// ClearLogs clears the log buffer.
func (vm *VM) ClearLogs() {
	vm.logsMu.Lock()
	defer vm.logsMu.Unlock()
	vm.logs = vm.logs[:0]
}

func (vm *VM) runWithTimeout(timeout time.Duration, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		// Interrupt a runaway script execution.
		vm.runtime.Interrupt("script execution timeout")
		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("autoplay: script timed out: %w", err)
			}
			return fmt.Errorf("autoplay: script timed out")
		case <-time.After(200 * time.Millisecond):
			return fmt.Errorf("autoplay: script timed out")
		}
	}
}
