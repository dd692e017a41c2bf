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
)

// Marker identifies the comment holding a previous report
const Marker = "Dependency track analysis"

const NoVulnerabilitiesText = "No vulnerabilities found by dependency track server"

// Markdown renders the findings in the order given. The output always starts
// with a header containing the Marker.
func Markdown(findings []dtrack.Finding) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("##%s has completed. \n", Marker))

	if len(findings) == 0 {
		sb.WriteString(NoVulnerabilitiesText)
		return sb.String()
	}

	sb.WriteString("| Name | Version | Group | Vulnerability | Severity | CWE| \n")
	sb.WriteString("| --- | --- | --- | --- | --- | --- |\n")
	for _, f := range findings {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s| \n",
			escapeMarkdown(f.Component.Name),
			escapeMarkdown(f.Component.Version),
			escapeMarkdown(f.Component.Group),
			escapeMarkdown(f.Vulnerability.VulnID),
			escapeMarkdown(f.Vulnerability.Severity),
			escapeMarkdown(cwe(f.Vulnerability)),
		))
	}
	return sb.String()
}

func cwe(v dtrack.Vulnerability) string {
	if v.CWEID != nil {
		return fmt.Sprintf("%d %s", *v.CWEID, v.CWEName)
	}
	return v.CWEName
}

// a pipe would end the table cell, a newline the table row
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
