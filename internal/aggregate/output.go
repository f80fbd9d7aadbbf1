package aggregate

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// WriteJSON writes the result as indented JSON. The file is written to a
// temporary path and renamed so readers never see partial output.
func WriteJSON(path string, res *Result) error {
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return eris.Wrap(err, "aggregate: marshal result")
	}
	b = append(b, '\n')

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "aggregate: create output dir %s", dir)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return eris.Wrapf(err, "aggregate: write %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return eris.Wrapf(err, "aggregate: rename %s", tmp)
	}
	return nil
}

// ReadJSON loads a result previously written by WriteJSON.
func ReadJSON(path string) (*Result, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "aggregate: read %s", path)
	}
	var res Result
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, eris.Wrapf(err, "aggregate: decode %s", path)
	}
	return &res, nil
}
