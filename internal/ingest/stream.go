package ingest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// decodeArray reads a top-level JSON array element by element so a bad
// record is reported by position. Empty input yields no items.
func decodeArray[T any](ctx context.Context, r io.Reader) ([]T, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "json: read opening token")
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, eris.Errorf("json: expected array, got %v", tok)
	}

	var items []T
	for i := 0; dec.More(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrapf(err, "json: cancelled at element %d", i)
		}
		var item T
		if err := dec.Decode(&item); err != nil {
			return nil, eris.Wrapf(err, "json: element %d", i)
		}
		items = append(items, item)
	}
	if _, err := dec.Token(); err != nil {
		return nil, eris.Wrap(err, "json: read closing token")
	}
	return items, nil
}

// readCSV reads every row of a comma-separated file, trimming cells.
// The first row is returned separately as the header.
func readCSV(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // allow variable fields
	reader.LazyQuotes = true

	var header []string
	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, eris.Wrap(err, "csv: read row")
		}
		for i, field := range record {
			record[i] = strings.TrimSpace(field)
		}
		if header == nil {
			header = record
			continue
		}
		rows = append(rows, record)
	}
	if header == nil {
		return nil, nil, eris.New("csv: missing header row")
	}
	return header, rows, nil
}
