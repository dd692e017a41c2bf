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

package analysis

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/l3montree-dev/dtrack-reporter/internal/bom"
	"github.com/l3montree-dev/dtrack-reporter/pkg/dtrack"
	"golang.org/x/time/rate"
)

const DefaultPollInterval = time.Second

// Request describes a single analysis run. It is created once from the
// inputs and never modified afterwards.
type Request struct {
	ServerBaseURL     string
	APIKey            string
	ProjectName       string
	ProjectVersion    string
	AutoCreateProject bool
	BOMPayload        []byte
}

// API is the subset of the dependency track api the poller needs
type API interface {
	UploadBOM(ctx context.Context, body dtrack.BOMUploadRequest) (dtrack.BOMUploadResponse, error)
	GetBOMProcessingStatus(ctx context.Context, token dtrack.UploadToken) (dtrack.BOMProcessingStatus, error)
	LookupProject(ctx context.Context, name, version string) (dtrack.Project, error)
	GetProjectFindings(ctx context.Context, projectUUID uuid.UUID) ([]dtrack.Finding, error)
}

// Poller drives one bom through the server side analysis.
type Poller struct {
	api          API
	pollInterval time.Duration
	now          func() time.Time
}

func NewPoller(api API) *Poller {
	return &Poller{
		api:          api,
		pollInterval: DefaultPollInterval,
		now:          time.Now,
	}
}

// NewPollerForRequest creates a poller talking to the server configured in the request
func NewPollerForRequest(req Request) (*Poller, error) {
	client, err := dtrack.NewClient(req.APIKey, req.ServerBaseURL)
	if err != nil {
		return nil, err
	}
	return NewPoller(client), nil
}

func (p *Poller) Upload(ctx context.Context, req Request) (dtrack.UploadToken, error) {
	res, err := p.api.UploadBOM(ctx, dtrack.BOMUploadRequest{
		ProjectName:    req.ProjectName,
		ProjectVersion: req.ProjectVersion,
		AutoCreate:     req.AutoCreateProject,
		BOM:            bom.Encode(req.BOMPayload),
	})
	if err != nil {
		return "", &UploadError{requestError: newRequestError(err)}
	}

	slog.Info("finished uploading bom to dependency track server", "project", req.ProjectName, "version", req.ProjectVersion)
	return res.Token, nil
}

// IsComplete checks once if the server has finished processing the upload.
func (p *Poller) IsComplete(ctx context.Context, token dtrack.UploadToken) (bool, error) {
	status, err := p.api.GetBOMProcessingStatus(ctx, token)
	if err != nil {
		return false, &StatusCheckError{Token: token, requestError: newRequestError(err)}
	}

	slog.Debug("bom analysis status api call returned successfully", "token", token, "processing", status.Processing)
	return !status.Processing, nil
}

// PollUntilComplete checks the processing status once per poll interval until
// the server reports completion. The deadline is taken from the wall clock
// once on entry and compared against the wall clock before every check, slow
// status calls therefore count towards the timeout.
func (p *Poller) PollUntilComplete(ctx context.Context, token dtrack.UploadToken, timeout time.Duration) error {
	deadline := p.now().Add(timeout)
	// burst of one: the first check happens immediately, every following
	// check waits for the full interval
	limiter := rate.NewLimiter(rate.Every(p.pollInterval), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		if !p.now().Before(deadline) {
			return &AnalysisTimeoutError{Token: token, Timeout: timeout}
		}

		slog.Debug("checking bom analysis status", "token", token)
		completed, err := p.IsComplete(ctx, token)
		if err != nil {
			return err
		}
		if completed {
			slog.Info("bom analysis completed", "token", token)
			return nil
		}
	}
}

// FetchFindings resolves the project by name and version and returns all of
// its findings in the order the server returned them.
func (p *Poller) FetchFindings(ctx context.Context, req Request) ([]dtrack.Finding, error) {
	project, err := p.api.LookupProject(ctx, req.ProjectName, req.ProjectVersion)
	if err != nil {
		return nil, &ProjectNotFoundError{Name: req.ProjectName, Version: req.ProjectVersion, requestError: newRequestError(err)}
	}
	slog.Info("found project", "name", project.Name, "version", project.Version, "uuid", project.UUID)

	findings, err := p.api.GetProjectFindings(ctx, project.UUID)
	if err != nil {
		return nil, &FindingsFetchError{
			Name:         req.ProjectName,
			Version:      req.ProjectVersion,
			ProjectUUID:  project.UUID,
			requestError: newRequestError(err),
		}
	}

	slog.Info("returned project findings", "name", req.ProjectName, "version", req.ProjectVersion, "amount", len(findings))
	return findings, nil
}
