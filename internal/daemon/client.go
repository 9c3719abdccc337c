package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const probeTimeout = 2 * time.Second

// FetchStatus queries a running daemon's /v1/status endpoint.
func FetchStatus(ctx context.Context, addr string) (Status, error) {
	var st Status

	resp, err := probe(ctx, http.MethodGet, addr, "/v1/status")
	if err != nil {
		return st, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("daemon: status HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("daemon: malformed status: %w", err)
	}
	return st, nil
}

// TriggerCollect asks a running daemon to start a batch now.
func TriggerCollect(ctx context.Context, addr string) error {
	resp, err := probe(ctx, http.MethodPost, addr, "/v1/collect")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusAccepted:
		return nil
	case http.StatusConflict:
		return fmt.Errorf("daemon: a collection is already queued")
	default:
		return fmt.Errorf("daemon: collect HTTP %d", resp.StatusCode)
	}
}

func probe(ctx context.Context, method, addr, path string) (*http.Response, error) {
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("daemon: %w", err)
	}

	client := &http.Client{Timeout: probeTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("daemon: unreachable: %w", err)
	}
	return resp, nil
}
