// Package ingest reads the upstream occupation records, consolidation
// definitions, and hand-authored careers from local files.
package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrMissingInput is returned when a required input file does not exist.
var ErrMissingInput = errors.New("missing input file")

// listSeparator splits list-valued cells in CSV and XLSX inputs.
const listSeparator = "|"

// openInput opens path, mapping a missing file to ErrMissingInput.
func openInput(path string) (*os.File, error) {
	if path == "" {
		return nil, eris.Wrap(ErrMissingInput, "ingest: empty path")
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, eris.Wrapf(ErrMissingInput, "ingest: %s", path)
		}
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	return f, nil
}

// requireFile checks that path exists without opening it.
func requireFile(path string) error {
	if path == "" {
		return eris.Wrap(ErrMissingInput, "ingest: empty path")
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return eris.Wrapf(ErrMissingInput, "ingest: %s", path)
		}
		return eris.Wrapf(err, "ingest: stat %s", path)
	}
	return nil
}

func extension(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// splitList splits a "|"-separated cell, trimming and dropping blanks.
func splitList(cell string) []string {
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	parts := strings.Split(cell, listSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// headerIndex maps lowercased header names to column positions.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

// column returns the trimmed cell for name, or "" when absent.
func column(row []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
