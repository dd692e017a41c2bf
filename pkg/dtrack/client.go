// Copyright (C) 2026 l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package dtrack

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const apiKeyHeader = "X-Api-Key"

type RequestSigner interface {
	SignRequest(apiKey string, req *http.Request) error
}

type apiKeySigner struct{}

func (s *apiKeySigner) SignRequest(apiKey string, req *http.Request) error {
	if apiKey == "" {
		return fmt.Errorf("no api key provided")
	}
	req.Header.Set(apiKeyHeader, apiKey)
	return nil
}

// HTTPClient wraps http.Client with automatic api key handling and URL handling.
// Requests are built with a path only (e.g. /api/v1/bom), the transport
// resolves them against the configured server base url.
type HTTPClient struct {
	*http.Client
}

// NewHTTPClient creates a new HTTPClient for the given api key and server base url
func NewHTTPClient(apiKey, serverBaseURL string) (*HTTPClient, error) {
	return newHTTPClient(apiKey, serverBaseURL, &apiKeySigner{})
}

func newHTTPClient(apiKey, serverBaseURL string, signer RequestSigner) (*HTTPClient, error) {
	u, err := url.Parse(StripTrailingSlash(serverBaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse server base URL: %w", err)
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("server base URL must be absolute: %s", serverBaseURL)
	}

	client := &HTTPClient{
		Client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
			},
		},
	}

	// Wrap the transport to intercept all requests
	client.Transport = &signedTransport{
		base:          client.Transport,
		apiKey:        apiKey,
		baseURL:       u,
		RequestSigner: signer,
	}

	return client, nil
}

// signedTransport wraps an http.RoundTripper to add the api key and rewrite the URL
type signedTransport struct {
	base    http.RoundTripper
	apiKey  string
	baseURL *url.URL
	RequestSigner
}

// RoundTrip implements http.RoundTripper
func (t *signedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original
	req = req.Clone(req.Context())

	if err := t.SignRequest(t.apiKey, req); err != nil {
		return nil, fmt.Errorf("failed to sign request: %w", err)
	}

	req.URL.Scheme = t.baseURL.Scheme
	req.URL.Host = t.baseURL.Host
	req.Host = t.baseURL.Host

	// servers are often hosted below a context path (https://host/dtrack)
	if t.baseURL.Path != "" && t.baseURL.Path != "/" {
		req.URL.Path = t.baseURL.Path + req.URL.Path
		if req.URL.RawPath != "" {
			req.URL.RawPath = t.baseURL.EscapedPath() + req.URL.RawPath
		}
	}

	return t.base.RoundTrip(req)
}

func StripTrailingSlash(s string) string {
	return strings.TrimSuffix(s, "/")
}
