package bindings

import (
	"fmt"

	"github.com/openplay-labs/piggy-bank-desktop/internal/autoplay"
)

// LoadScript compiles a strategy script into a fresh VM. Loading replaces
// any previously loaded script and stops a running session.
func (a *App) LoadScript(source string) error {
	a.scriptMu.Lock()
	defer a.scriptMu.Unlock()

	if a.runner != nil {
		a.runner.Close()
		a.runner = nil
	}
	vm := autoplay.NewVM()
	if err := vm.Load(source); err != nil {
		return err
	}
	a.vm = vm
	return nil
}

// StartAutoplay plays up to maxRounds rounds with the loaded script.
func (a *App) StartAutoplay(maxRounds int) error {
	a.scriptMu.Lock()
	defer a.scriptMu.Unlock()

	if a.vm == nil {
		return fmt.Errorf("bindings: no script loaded")
	}
	if a.runner != nil && a.runner.Running() {
		return fmt.Errorf("bindings: autoplay already running")
	}
	if a.runner != nil {
		a.runner.Close()
	}
	a.runner = autoplay.NewRunner(a.vm, a.machine, a.bus, a.reg, maxRounds)
	a.runner.Start(a.ctx)
	return nil
}

// StopAutoplay stops the running session, if any. The round in flight
// still settles through the machine.
func (a *App) StopAutoplay() {
	a.scriptMu.Lock()
	defer a.scriptMu.Unlock()
	if a.runner != nil {
		a.runner.Stop()
	}
}

// AutoplayRunning reports whether a session is active.
func (a *App) AutoplayRunning() bool {
	a.scriptMu.Lock()
	defer a.scriptMu.Unlock()
	return a.runner != nil && a.runner.Running()
}

// ScriptLogs drains the log entries the script emitted so far.
func (a *App) ScriptLogs() []autoplay.LogEntry {
	a.scriptMu.Lock()
	defer a.scriptMu.Unlock()
	if a.vm == nil {
		return nil
	}
	logs := a.vm.Logs()
	a.vm.ClearLogs()
	return logs
}
