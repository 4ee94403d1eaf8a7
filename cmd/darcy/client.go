// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
)

const defaultGatewayAddr = "127.0.0.1:3000"

// defaultHTTPClient is the package-level HTTP client used by gateway
// commands. The timeout covers a full fallback chain.
var defaultHTTPClient = &http.Client{
	Timeout: 2 * time.Minute,
}

// gatewayClient provides HTTP access to a running Darcy gateway.
type gatewayClient struct {
	baseURL string
	http    *http.Client
}

// newGatewayClient creates a client targeting the given host:port address.
func newGatewayClient(addr string) *gatewayClient {
	return &gatewayClient{
		baseURL: "http://" + addr,
		http:    defaultHTTPClient,
	}
}

// getJSON performs a GET request and decodes the JSON response into dest.
func (c *gatewayClient) getJSON(ctx context.Context, path string, dest any) error {
	return c.do(ctx, http.MethodGet, path, nil, dest)
}

// postJSON sends body as JSON and decodes the JSON response into dest.
func (c *gatewayClient) postJSON(ctx context.Context, path string, body, dest any) error {
	return c.do(ctx, http.MethodPost, path, body, dest)
}

func (c *gatewayClient) do(ctx context.Context, method, path string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return darcyerr.Wrap(err, darcyerr.CodeCLIRequestFailure, "encoding request")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return darcyerr.Wrap(err, darcyerr.CodeCLIRequestFailure, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isDialError(err) {
			return darcyerr.New(darcyerr.CodeCLIGatewayNotRunning, "gateway is not running (connection refused)")
		}
		return darcyerr.Wrap(err, darcyerr.CodeCLIRequestFailure, "request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return darcyerr.Errorf(darcyerr.CodeCLIRequestFailure, "gateway returned status %d: %s", resp.StatusCode, string(snippet))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return darcyerr.Wrap(err, darcyerr.CodeCLIResponseInvalid, "invalid response")
	}
	return nil
}

// isDialError returns true if err is a net dial error (connection refused, etc.).
func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
