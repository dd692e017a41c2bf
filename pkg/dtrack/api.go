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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// StatusError is returned whenever the server answers with a non-2xx status code
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected response: %s %s", e.Status, e.Body)
}

// Client talks to the Dependency-Track REST API
type Client struct {
	httpClient *HTTPClient
}

func NewClient(apiKey, serverBaseURL string) (*Client, error) {
	httpClient, err := NewHTTPClient(apiKey, serverBaseURL)
	if err != nil {
		return nil, err
	}
	return &Client{httpClient: httpClient}, nil
}

func (c *Client) UploadBOM(ctx context.Context, body BOMUploadRequest) (BOMUploadResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return BOMUploadResponse{}, errors.Wrap(err, "could not marshal bom upload request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, "/api/v1/bom", bytes.NewReader(payload))
	if err != nil {
		return BOMUploadResponse{}, errors.Wrap(err, "could not create request")
	}
	req.Header.Set("Content-Type", "application/json")

	var res BOMUploadResponse
	if err := c.do(req, &res); err != nil {
		return BOMUploadResponse{}, err
	}
	return res, nil
}

func (c *Client) GetBOMProcessingStatus(ctx context.Context, token UploadToken) (BOMProcessingStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/api/v1/bom/token/"+url.PathEscape(string(token)), nil)
	if err != nil {
		return BOMProcessingStatus{}, errors.Wrap(err, "could not create request")
	}

	var res BOMProcessingStatus
	if err := c.do(req, &res); err != nil {
		return BOMProcessingStatus{}, err
	}
	return res, nil
}

// LookupProject resolves a project by its name and version. The server answers
// with 404 if there is no such project.
func (c *Client) LookupProject(ctx context.Context, name, version string) (Project, error) {
	query := url.Values{}
	query.Set("name", name)
	query.Set("version", version)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/api/v1/project/lookup?"+query.Encode(), nil)
	if err != nil {
		return Project{}, errors.Wrap(err, "could not create request")
	}

	var res Project
	if err := c.do(req, &res); err != nil {
		return Project{}, err
	}
	return res, nil
}

func (c *Client) GetProjectFindings(ctx context.Context, projectUUID uuid.UUID) ([]Finding, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/api/v1/finding/project/"+projectUUID.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not create request")
	}

	res := []Finding{}
	if err := c.do(req, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) do(req *http.Request, target any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "could not send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return errors.Wrap(err, "could not read response body")
		}
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return errors.Wrap(err, "could not parse response")
	}
	return nil
}
