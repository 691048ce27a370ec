// Package ingest reads budget and transaction source files into the record
// shapes the core consumes. Format selection is explicit: callers decide
// which parser runs, the package never dispatches on filenames itself.
package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"envelopes/internal/common"
)

// Format identifies a supported source file format.
type Format string

const (
	// FormatCSV is comma-separated tabular input with a header row.
	FormatCSV Format = "csv"
	// FormatJSON is a JSON array of record objects.
	FormatJSON Format = "json"
	// FormatOFX is an OFX/QFX bank statement (transactions only).
	FormatOFX Format = "ofx"
)

// FormatForPath maps a file extension to its format. It is a convenience
// for CLI callers; an unsupported extension is a configuration error.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	case ".ofx", ".qfx":
		return FormatOFX, nil
	default:
		return "", fmt.Errorf("%w: %q (.csv, .json, .ofx or .qfx needed)", common.ErrUnknownSourceFormat, path)
	}
}
