package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrRemote wraps an error message returned by the remote method table.
var ErrRemote = errors.New("rpc: remote error")

// Client calls named methods on a remote Server over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client targeting baseURL, e.g. "http://host:3880".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Call invokes method with params, decoding the result into out. out may be
// nil if the method's result is not needed.
func (c *Client) Call(ctx context.Context, method string, params, out any) error {
	var body bytes.Buffer

	if params != nil {
		if err := json.NewEncoder(&body).Encode(params); err != nil {
			return fmt.Errorf("rpc: error encoding params: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, &body)
	if err != nil {
		return fmt.Errorf("rpc: error building request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("rpc: error calling %q: %w", method, err)
	}
	defer resp.Body.Close()

	var env envelope

	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("rpc: error decoding response for %q: %w", method, err)
	}

	if env.Error != "" {
		return fmt.Errorf("%w: %s: %s", ErrRemote, method, env.Error)
	}

	if out == nil {
		return nil
	}

	raw, err := json.Marshal(env.Result)
	if err != nil {
		return fmt.Errorf("rpc: error re-marshaling result for %q: %w", method, err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("rpc: error decoding result for %q: %w", method, err)
	}

	return nil
}
