package bindings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// devnodeExecutor signs nothing: it posts the serialized transaction
// straight to the local devnode, which settles it immediately. It stands in
// for the host window in devnode mode.
type devnodeExecutor struct {
	url  string
	http *http.Client
}

func newDevnodeExecutor(baseURL string) *devnodeExecutor {
	return &devnodeExecutor{
		url:  strings.TrimRight(baseURL, "/") + "/execute",
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (e *devnodeExecutor) SignAndExecute(ctx context.Context, txJSON string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", e.url, strings.NewReader(txJSON))
	if err != nil {
		return nil, fmt.Errorf("bindings: build execute request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bindings: devnode execute: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("bindings: read execute response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bindings: devnode execute returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
