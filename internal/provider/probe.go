// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package provider

import (
	"context"
	"io"
	"net/http"

	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
)

// ProbeURL makes a lightweight GET to url (typically a models or tags
// listing) and returns nil when the endpoint answers with a 2xx or 3xx
// status. A nil client uses http.DefaultClient; the caller bounds the call
// through ctx.
func ProbeURL(ctx context.Context, client *http.Client, url string, headers map[string]string) error {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return darcyerr.Errorf(darcyerr.CodeProviderRequestInvalid, "building probe request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return darcyerr.Errorf(darcyerr.CodeProviderCallTimeout, "probe %s: %w", req.URL.Host, err)
		}
		return darcyerr.Errorf(darcyerr.CodeProviderUpstreamFailure, "probe %s: %w", req.URL.Host, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return darcyerr.Errorf(darcyerr.CodeProviderRequestInvalid, "probe %s: credentials rejected (HTTP %d)", req.URL.Host, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return darcyerr.Errorf(darcyerr.CodeProviderUpstreamFailure, "probe %s: HTTP %d", req.URL.Host, resp.StatusCode)
	}
	return nil
}

// BearerHeaders returns the Authorization header map used by
// OpenAI-compatible endpoints. An empty key yields no headers.
func BearerHeaders(key string) map[string]string {
	if key == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + key}
}
