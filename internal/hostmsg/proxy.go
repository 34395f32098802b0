package hostmsg

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Sender delivers an outbound request to the host window.
type Sender func(req TxSignRequest)

// Proxy sends sign-and-execute requests to the host and matches responses
// back to the waiting caller by request id.
type Proxy struct {
	send Sender

	mu      sync.Mutex
	pending map[string]chan TxSignResponse
}

// NewProxy creates a proxy that delivers requests through send.
func NewProxy(send Sender) *Proxy {
	return &Proxy{
		send:    send,
		pending: make(map[string]chan TxSignResponse),
	}
}

// SignAndExecute sends txJSON to the host and blocks until the correlated
// response arrives or ctx is done. A host-side failure comes back as an
// error carrying the host's message.
func (p *Proxy) SignAndExecute(ctx context.Context, txJSON string) (json.RawMessage, error) {
	id := uuid.New().String()
	ch := make(chan TxSignResponse, 1)

	p.mu.Lock()
	p.pending[id] = ch
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
	}()

	p.send(TxSignRequest{
		Type:      TypeTxSignRequest,
		RequestID: id,
		TxJSON:    txJSON,
	})

	select {
	case resp := <-ch:
		if !resp.IsSuccessful {
			if resp.ErrorMsg == "" {
				return nil, fmt.Errorf("hostmsg: host rejected request %s", id)
			}
			return nil, fmt.Errorf("hostmsg: %s", resp.ErrorMsg)
		}
		return resp.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Resolve hands an inbound response to the caller waiting on its request
// id. Responses for unknown ids are dropped; a host may answer after the
// caller already gave up.
func (p *Proxy) Resolve(resp TxSignResponse) {
	p.mu.Lock()
	ch, ok := p.pending[resp.RequestID]
	if ok {
		delete(p.pending, resp.RequestID)
	}
	p.mu.Unlock()

	if ok {
		ch <- resp
	}
}

// PendingCount returns the number of requests awaiting a response.
func (p *Proxy) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
