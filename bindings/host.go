package bindings

import (
	"encoding/json"
	"fmt"

	"github.com/openplay-labs/piggy-bank-desktop/internal/events"
	"github.com/openplay-labs/piggy-bank-desktop/internal/hostmsg"
)

// hostEnvelope is the discriminated wrapper around every message the host
// window posts through the frontend.
type hostEnvelope struct {
	Type string `json:"type"`
	hostmsg.InitData
	hostmsg.TxSignResponse
}

// DeliverHostMessage feeds a message from the embedding host into the
// backend. The frontend relays every window message it receives verbatim.
func (a *App) DeliverHostMessage(raw string) error {
	if a.live == nil {
		return fmt.Errorf("bindings: host messages are not supported in %s mode", a.cfg.Mode)
	}

	var env hostEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return fmt.Errorf("bindings: malformed host message: %w", err)
	}
	if !hostmsg.ValidType(env.Type) {
		return fmt.Errorf("bindings: unknown host message type %q", env.Type)
	}

	switch env.Type {
	case hostmsg.TypeInit:
		return a.handleInit(env.InitData)
	case hostmsg.TypeTxSignResponse:
		if a.proxy == nil {
			return fmt.Errorf("bindings: no transaction exchange in %s mode", a.cfg.Mode)
		}
		resp := env.TxSignResponse
		resp.Type = env.Type
		a.proxy.Resolve(resp)
		return nil
	case hostmsg.TypeBalanceUpdateHint:
		a.refreshBalance()
		return nil
	}
	return nil
}

// handleInit completes the host handshake: the account identifiers are
// persisted, handed to the gateway, and the first load runs.
func (a *App) handleInit(init hostmsg.InitData) error {
	if init.BalanceManagerID == "" || init.HouseID == "" || init.PlayCapID == "" {
		return fmt.Errorf("bindings: incomplete init data")
	}
	if err := a.auth.SaveInit(a.cfg.Profile, init); err != nil {
		a.logger.Printf("persist init data: %v", err)
	}
	a.live.SetInitData(init)
	a.machine.Reload(a.ctx)
	a.emit(hostmsg.TypeInitAck, nil)
	return nil
}

// refreshBalance re-reads only the balance, for the host's hint that it
// changed outside a round.
func (a *App) refreshBalance() {
	if a.client == nil {
		return
	}
	init, ok := a.live.InitData()
	if !ok {
		return
	}
	balance, err := a.client.FetchBalance(a.ctx, init.BalanceManagerID)
	if err != nil {
		a.logger.Printf("balance refresh: %v", err)
		return
	}
	a.reg.SetBalance(balance)
	a.bus.Publish(events.BalanceUpdated, balance)
}

// ResolveTxSignature is the direct-call variant of the transaction answer,
// for frontends that call the binding instead of relaying the raw message.
func (a *App) ResolveTxSignature(resp hostmsg.TxSignResponse) error {
	if a.proxy == nil {
		return fmt.Errorf("bindings: no transaction exchange in %s mode", a.cfg.Mode)
	}
	a.proxy.Resolve(resp)
	return nil
}

// ForgetHostAccount removes the persisted account identifiers for the
// active profile.
func (a *App) ForgetHostAccount() error {
	return a.auth.Delete(a.cfg.Profile)
}
