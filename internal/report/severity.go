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

package report

import (
	"fmt"
	"strings"

	"github.com/l3montree-dev/dtrack-reporter/pkg/dtrack"
	"github.com/l3montree-dev/dtrack-reporter/utils"
)

// Severity is totally ordered, a higher value is more severe
type Severity int

const (
	SeverityUnassigned Severity = iota
	SeverityInfo
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = map[Severity]string{
	SeverityUnassigned: "UNASSIGNED",
	SeverityInfo:       "INFO",
	SeverityLow:        "LOW",
	SeverityMedium:     "MEDIUM",
	SeverityHigh:       "HIGH",
	SeverityCritical:   "CRITICAL",
}

// the levels a threshold can be configured with
var thresholdSeverities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

type InvalidSeverityLevelError struct {
	Level string
}

func (e *InvalidSeverityLevelError) Error() string {
	return fmt.Sprintf("failOnSeverityLevel is not a valid value: %s. Please use one of CRITICAL, HIGH, MEDIUM or LOW", e.Level)
}

// ParseSeverity parses a threshold level. Only CRITICAL, HIGH, MEDIUM and LOW
// are accepted, case does not matter.
func ParseSeverity(level string) (Severity, error) {
	normalized := strings.ToUpper(strings.TrimSpace(level))
	for _, s := range thresholdSeverities {
		if s.String() == normalized {
			return s, nil
		}
	}
	return SeverityUnassigned, &InvalidSeverityLevelError{Level: level}
}

// SeverityOf maps the severity reported by the server onto the ordered enum.
// Unknown values are treated as unassigned.
func SeverityOf(finding dtrack.Finding) Severity {
	normalized := strings.ToUpper(finding.Vulnerability.Severity)
	for s, name := range severityNames {
		if name == normalized {
			return s
		}
	}
	return SeverityUnassigned
}

// ExceedsThreshold reports whether any finding is at least as severe as the threshold
func ExceedsThreshold(findings []dtrack.Finding, threshold Severity) bool {
	return utils.Any(findings, func(f dtrack.Finding) bool {
		return SeverityOf(f) >= threshold
	})
}

// CountBySeverity returns the amount of findings per severity
func CountBySeverity(findings []dtrack.Finding) map[Severity]int {
	res := make(map[Severity]int)
	for _, f := range findings {
		res[SeverityOf(f)]++
	}
	return res
}
