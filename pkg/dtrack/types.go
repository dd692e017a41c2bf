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

import "github.com/google/uuid"

// UploadToken identifies one bom processing job on the server
type UploadToken string

type BOMUploadRequest struct {
	ProjectName    string `json:"projectName"`
	ProjectVersion string `json:"projectVersion"`
	AutoCreate     bool   `json:"autoCreate"`
	// base64 encoded bom
	BOM string `json:"bom"`
}

type BOMUploadResponse struct {
	Token UploadToken `json:"token"`
}

type BOMProcessingStatus struct {
	Processing bool `json:"processing"`
}

type Project struct {
	UUID                uuid.UUID `json:"uuid"`
	Name                string    `json:"name"`
	Version             string    `json:"version"`
	LastBOMImportFormat string    `json:"lastBomImportFormat,omitempty"`
	Active              bool      `json:"active,omitempty"`
}

type Component struct {
	UUID    uuid.UUID `json:"uuid"`
	Name    string    `json:"name"`
	Group   string    `json:"group"`
	Version string    `json:"version"`
	PURL    string    `json:"purl"`
	Project uuid.UUID `json:"project"`
}

type Vulnerability struct {
	UUID           uuid.UUID `json:"uuid"`
	Source         string    `json:"source"`
	VulnID         string    `json:"vulnId"`
	Severity       string    `json:"severity"`
	SeverityRank   int       `json:"severityRank"`
	Description    string    `json:"description"`
	Recommendation string    `json:"recommendation,omitempty"`
	CWEID          *int      `json:"cweId,omitempty"`
	CWEName        string    `json:"cweName"`
}

type Analysis struct {
	IsSuppressed bool   `json:"isSuppressed"`
	State        string `json:"state,omitempty"`
}

type Attribution struct {
	AnalyzerIdentity string `json:"analyzerIdentity"`
	AttributedOn     int64  `json:"attributedOn"`
}

// Finding is one vulnerability affecting one component of a project
type Finding struct {
	Component     Component     `json:"component"`
	Vulnerability Vulnerability `json:"vulnerability"`
	Analysis      Analysis      `json:"analysis"`
	Attribution   Attribution   `json:"attribution"`
	Matrix        string        `json:"matrix"`
}
