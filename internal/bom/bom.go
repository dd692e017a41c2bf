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

package bom

import (
	"bytes"
	"encoding/base64"
	"log/slog"
	"os"
	"strings"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/pkg/errors"
)

// base64 representation of the UTF-8 byte order mark (EF BB BF)
const byteOrderMarkBase64 = "77u/"

var utf8ByteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// ReadFile reads the raw bom file. The content is returned untouched, the
// server is the authority on whether it can process it.
func ReadFile(path string) ([]byte, error) {
	slog.Info("reading bom", "path", path)
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not read bom file")
	}
	return content, nil
}

// Encode returns the base64 representation of the bom as expected by the
// upload endpoint. A leading byte order mark is dropped from the encoded string.
func Encode(content []byte) string {
	return StripByteOrderMark(base64.StdEncoding.EncodeToString(content))
}

// StripByteOrderMark removes the encoded UTF-8 byte order mark and only that.
func StripByteOrderMark(encoded string) string {
	return strings.TrimPrefix(encoded, byteOrderMarkBase64)
}

// Decode parses the content as a CycloneDX bom. JSON and XML are supported.
func Decode(content []byte) (*cdx.BOM, error) {
	content = bytes.TrimPrefix(content, utf8ByteOrderMark)

	format := cdx.BOMFileFormatJSON
	if bytes.HasPrefix(bytes.TrimSpace(content), []byte("<")) {
		format = cdx.BOMFileFormatXML
	}

	var bom cdx.BOM
	if err := cdx.NewBOMDecoder(bytes.NewReader(content), format).Decode(&bom); err != nil {
		return nil, errors.Wrap(err, "could not decode CycloneDX bom")
	}
	if bom.BOMFormat != "" && bom.BOMFormat != cdx.BOMFormat {
		return nil, errors.Errorf("unsupported bom format %q", bom.BOMFormat)
	}
	return &bom, nil
}

// ProjectIdentity returns the name and version of the root component
// described in the bom metadata. Empty strings are returned if there is none.
func ProjectIdentity(bom *cdx.BOM) (name string, version string) {
	if bom == nil || bom.Metadata == nil || bom.Metadata.Component == nil {
		return "", ""
	}
	return bom.Metadata.Component.Name, bom.Metadata.Component.Version
}

// ComponentCount counts all components including nested ones.
func ComponentCount(bom *cdx.BOM) int {
	if bom == nil || bom.Components == nil {
		return 0
	}
	return countComponents(*bom.Components)
}

func countComponents(components []cdx.Component) int {
	count := len(components)
	for _, c := range components {
		if c.Components != nil {
			count += countComponents(*c.Components)
		}
	}
	return count
}
