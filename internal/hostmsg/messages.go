// Package hostmsg implements the messaging protocol between the game and
// its embedding host window.
//
// The host owns the player's wallet. The game never signs anything itself:
// it sends a TX_SIGN_AND_EXECUTE_REQUEST carrying the serialized
// transaction and waits for the correlated response. The host also pushes
// an INIT message on load with the account identifiers the game needs to
// build transactions.
package hostmsg

import "encoding/json"

// Message type discriminators.
const (
	TypeInit              = "INIT"
	TypeInitAck           = "INIT_ACK"
	TypeTxSignRequest     = "TX_SIGN_AND_EXECUTE_REQUEST"
	TypeTxSignResponse    = "TX_SIGN_AND_EXECUTE_RESPONSE"
	TypeBalanceUpdateHint = "BALANCE_UPDATE"
)

// InitData carries the account identifiers pushed by the host on load.
type InitData struct {
	BalanceManagerID string `json:"balanceManagerId"`
	HouseID          string `json:"houseId"`
	PlayCapID        string `json:"playCapId"`
}

// TxSignRequest asks the host to sign and execute a transaction.
type TxSignRequest struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	TxJSON    string `json:"txJson"`
}

// TxSignResponse is the host's correlated answer to a TxSignRequest.
type TxSignResponse struct {
	Type         string          `json:"type"`
	RequestID    string          `json:"requestId"`
	IsSuccessful bool            `json:"isSuccessful"`
	Result       json.RawMessage `json:"result,omitempty"`
	ErrorMsg     string          `json:"errorMsg,omitempty"`
}

// ValidType reports whether a message type discriminator belongs to the
// protocol.
func ValidType(t string) bool {
	switch t {
	case TypeInit, TypeInitAck, TypeTxSignRequest, TypeTxSignResponse, TypeBalanceUpdateHint:
		return true
	}
	return false
}
