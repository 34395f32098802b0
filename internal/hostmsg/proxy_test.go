package hostmsg

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestSignAndExecuteSuccess(t *testing.T) {
	var sent TxSignRequest
	p := NewProxy(func(req TxSignRequest) { sent = req })

	done := make(chan struct{})
	var result json.RawMessage
	var err error
	go func() {
		defer close(done)
		result, err = p.SignAndExecute(context.Background(), `{"kind":"interact"}`)
	}()

	// Wait for the request to be registered before resolving.
	deadline := time.After(time.Second)
	for p.PendingCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("request never registered")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if sent.Type != TypeTxSignRequest || sent.RequestID == "" {
		t.Fatalf("malformed outbound request: %+v", sent)
	}
	if sent.TxJSON != `{"kind":"interact"}` {
		t.Errorf("unexpected tx payload %q", sent.TxJSON)
	}

	p.Resolve(TxSignResponse{
		Type:         TypeTxSignResponse,
		RequestID:    sent.RequestID,
		IsSuccessful: true,
		Result:       json.RawMessage(`{"digest":"abc"}`),
	})
	<-done

	if err != nil {
		t.Fatalf("SignAndExecute: %v", err)
	}
	if string(result) != `{"digest":"abc"}` {
		t.Errorf("unexpected result %s", result)
	}
	if p.PendingCount() != 0 {
		t.Errorf("pending map should be empty, has %d", p.PendingCount())
	}
}

func TestSignAndExecuteHostError(t *testing.T) {
	var sent TxSignRequest
	p := NewProxy(func(req TxSignRequest) { sent = req })

	errc := make(chan error, 1)
	go func() {
		_, err := p.SignAndExecute(context.Background(), "{}")
		errc <- err
	}()

	deadline := time.After(time.Second)
	for p.PendingCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("request never registered")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	p.Resolve(TxSignResponse{
		RequestID:    sent.RequestID,
		IsSuccessful: false,
		ErrorMsg:     "user rejected",
	})

	err := <-errc
	if err == nil || !strings.Contains(err.Error(), "user rejected") {
		t.Errorf("expected host error, got %v", err)
	}
}

func TestSignAndExecuteContextCancel(t *testing.T) {
	p := NewProxy(func(TxSignRequest) {})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.SignAndExecute(ctx, "{}")
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if p.PendingCount() != 0 {
		t.Error("abandoned request must be cleaned up")
	}
}

func TestResolveUnknownIDIsDropped(t *testing.T) {
	p := NewProxy(func(TxSignRequest) {})
	p.Resolve(TxSignResponse{RequestID: "nobody-waiting", IsSuccessful: true})
}

func TestValidType(t *testing.T) {
	for _, typ := range []string{TypeInit, TypeInitAck, TypeTxSignRequest, TypeTxSignResponse, TypeBalanceUpdateHint} {
		if !ValidType(typ) {
			t.Errorf("%q should be valid", typ)
		}
	}
	if ValidType("SOMETHING_ELSE") {
		t.Error("unknown type should be invalid")
	}
}
