package autoplay

import (
	"strings"
	"testing"
)

func TestLoadRequiresDecide(t *testing.T) {
	vm := NewVM()
	if err := vm.Load(`var x = 1;`); err == nil {
		t.Fatal("expected error when decide() is missing")
	}
}

func TestLoadRejectsBrokenScript(t *testing.T) {
	vm := NewVM()
	if err := vm.Load(`function decide( {`); err == nil {
		t.Fatal("expected syntax error")
	}
}

func TestDecideReturnsAction(t *testing.T) {
	vm := NewVM()
	script := `
		function decide(state) {
			if (state.position >= 2) {
				return CASHOUT;
			}
			return ADVANCE;
		}
	`
	if err := vm.Load(script); err != nil {
		t.Fatalf("Load: %v", err)
	}

	d, err := vm.Decide(State{Position: 0, Steps: 7})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d != DecideAdvance {
		t.Errorf("got %q, want advance", d)
	}

	d, err = vm.Decide(State{Position: 2, Steps: 7})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d != DecideCashOut {
		t.Errorf("got %q, want cashout", d)
	}
}

func TestDecideRejectsUnknownAction(t *testing.T) {
	vm := NewVM()
	if err := vm.Load(`function decide(state) { return "fold"; }`); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := vm.Decide(State{}); err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestDecideSeesState(t *testing.T) {
	vm := NewVM()
	script := `
		function decide(state) {
			log("at", state.position, "of", state.steps, "stake", state.stake);
			return state.payoutBps[state.position] >= 13000 ? CASHOUT : ADVANCE;
		}
	`
	if err := vm.Load(script); err != nil {
		t.Fatalf("Load: %v", err)
	}

	d, err := vm.Decide(State{
		Position:  2,
		Steps:     7,
		PayoutBps: []int64{11000, 12000, 13000},
		Stake:     "10000000",
	})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d != DecideCashOut {
		t.Errorf("got %q, want cashout", d)
	}

	logs := vm.Logs()
	if len(logs) != 1 || !strings.Contains(logs[0].Message, "at 2 of 7") {
		t.Errorf("unexpected logs %v", logs)
	}
}

func TestSandboxBlocksHostAccess(t *testing.T) {
	vm := NewVM()
	script := `
		function decide(state) {
			if (typeof require !== "undefined") { return "fold"; }
			if (typeof fetch !== "undefined") { return "fold"; }
			return STOP;
		}
	`
	if err := vm.Load(script); err != nil {
		t.Fatalf("Load: %v", err)
	}
	d, err := vm.Decide(State{})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d != DecideStop {
		t.Error("host globals must be undefined inside the sandbox")
	}
}

func TestRunawayScriptInterrupted(t *testing.T) {
	vm := NewVM()
	if err := vm.Load(`function decide(state) { while (true) {} }`); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := vm.Decide(State{}); err == nil {
		t.Fatal("expected timeout error")
	}
}
