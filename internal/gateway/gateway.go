// Package gateway abstracts "perform action, resolve to outcome or error"
// against the game backend. Two interchangeable implementations exist: Live
// submits signed chain transactions and parses the interaction event out of
// the execution result; Sim computes the same outcome locally with a fixed
// artificial delay. Both produce identical Outcome shapes on the same
// notification channel.
package gateway

import "context"

// Gateway performs the three game actions. Calls take no explicit arguments:
// stake, difficulty, parameters and context are read from the registry.
// Resolution is out-of-band — an Interacted event carrying a piggy.Outcome,
// or an ErrorRaised event carrying a message. A call whose preconditions do
// not hold resolves immediately with no event at all: the state machine is
// responsible for not calling in invalid states, the gateway double-checks.
type Gateway interface {
	StartGame(ctx context.Context)
	Advance(ctx context.Context)
	CashOut(ctx context.Context)
}
