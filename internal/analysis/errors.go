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
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/l3montree-dev/dtrack-reporter/pkg/dtrack"
	"github.com/pkg/errors"
)

// requestError holds the diagnostics of a failed api call. StatusCode is 0 if
// the server could not be reached at all.
type requestError struct {
	StatusCode int
	Body       string
	err        error
}

func newRequestError(err error) requestError {
	res := requestError{err: err}
	var statusErr *dtrack.StatusError
	if errors.As(err, &statusErr) {
		res.StatusCode = statusErr.StatusCode
		res.Body = statusErr.Body
	}
	return res
}

func (e requestError) Unwrap() error {
	return e.err
}

func (e requestError) describe() string {
	if e.StatusCode == 0 {
		return e.err.Error()
	}
	return fmt.Sprintf("response status code: %d, body: %s", e.StatusCode, e.Body)
}

type UploadError struct {
	requestError
}

func (e *UploadError) Error() string {
	return "failed to upload bom to dependency track server: " + e.describe()
}

type StatusCheckError struct {
	Token dtrack.UploadToken
	requestError
}

func (e *StatusCheckError) Error() string {
	return fmt.Sprintf("bom analysis status api call failed for token %s: %s", e.Token, e.describe())
}

type AnalysisTimeoutError struct {
	Token   dtrack.UploadToken
	Timeout time.Duration
}

func (e *AnalysisTimeoutError) Error() string {
	return fmt.Sprintf("bom analysis wasn't completed within timeout of %.0f seconds", e.Timeout.Seconds())
}

type ProjectNotFoundError struct {
	Name    string
	Version string
	requestError
}

func (e *ProjectNotFoundError) Error() string {
	return fmt.Sprintf("failed to retrieve project for name: %s and version: %s: %s", e.Name, e.Version, e.describe())
}

type FindingsFetchError struct {
	Name        string
	Version     string
	ProjectUUID uuid.UUID
	requestError
}

func (e *FindingsFetchError) Error() string {
	return fmt.Sprintf("failed to return project findings for name: %s and version: %s: %s", e.Name, e.Version, e.describe())
}
