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
	"log/slog"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/l3montree-dev/dtrack-reporter/pkg/dtrack"
	"github.com/l3montree-dev/dtrack-reporter/utils"
	"github.com/package-url/packageurl-go"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Table renders the findings for the console
func Table(findings []dtrack.Finding) string {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Library", "Vulnerability", "Severity", "CWE", "Installed", "Suppressed"})
	tw.AppendRows(utils.Map(findings, findingToTableRow))
	return tw.Render()
}

func findingToTableRow(f dtrack.Finding) table.Row {
	return table.Row{
		libraryName(f.Component),
		f.Vulnerability.VulnID,
		f.Vulnerability.Severity,
		cwe(f.Vulnerability),
		strings.TrimPrefix(f.Component.Version, "v"),
		f.Analysis.IsSuppressed,
	}
}

// libraryName prefers the package url without version and qualifiers.
// Components without a valid purl fall back to group/name.
func libraryName(c dtrack.Component) string {
	if c.PURL != "" {
		pURL, err := packageurl.FromString(c.PURL)
		if err == nil {
			// Remove the second slash if the namespace is empty to avoid double slashes
			if pURL.Namespace == "" {
				return fmt.Sprintf("pkg:%s/%s", pURL.Type, pURL.Name)
			}
			return fmt.Sprintf("pkg:%s/%s/%s", pURL.Type, pURL.Namespace, pURL.Name)
		}
		slog.Debug("could not parse purl", "purl", c.PURL, "err", err)
	}

	if c.Group == "" {
		return c.Name
	}
	return c.Group + "/" + c.Name
}

// Summary lists the amount of findings per severity, most severe first.
// Severities without findings are omitted.
func Summary(findings []dtrack.Finding) string {
	if len(findings) == 0 {
		return "no findings"
	}

	counts := CountBySeverity(findings)
	titleCaser := cases.Title(language.English)

	parts := make([]string, 0, len(counts))
	for s := SeverityCritical; s >= SeverityUnassigned; s-- {
		if counts[s] == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %d", titleCaser.String(strings.ToLower(s.String())), counts[s]))
	}
	return strings.Join(parts, ", ")
}
