package ingest

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/careerlens/careers-cli/internal/model"
)

// LoadDefinitions reads consolidation definitions from YAML (.yaml/.yml),
// JSON (.json), CSV (.csv), or a spreadsheet (.xlsx). Tabular formats expect
// the columns id, title, category, member_codes ("|"-separated), and
// primary_code. A malformed definition aborts the load with an error
// wrapping model.ErrMalformedDefinition.
func LoadDefinitions(ctx context.Context, path string) ([]model.ConsolidationDefinition, error) {
	var defs []model.ConsolidationDefinition
	var err error

	switch extension(path) {
	case ".yaml", ".yml":
		defs, err = decodeFile[[]model.ConsolidationDefinition](path, yamlDecode)
	case ".json":
		f, openErr := openInput(path)
		if openErr != nil {
			return nil, openErr
		}
		defer f.Close() //nolint:errcheck
		defs, err = decodeArray[model.ConsolidationDefinition](ctx, f)
	case ".csv":
		f, openErr := openInput(path)
		if openErr != nil {
			return nil, openErr
		}
		defer f.Close() //nolint:errcheck
		header, rows, readErr := readCSV(f)
		if readErr != nil {
			return nil, eris.Wrapf(readErr, "ingest: read definitions %s", path)
		}
		defs, err = definitionsFromRows(header, rows)
	case ".xlsx":
		if err := requireFile(path); err != nil {
			return nil, err
		}
		header, rows, readErr := readXLSX(path)
		if readErr != nil {
			return nil, eris.Wrapf(readErr, "ingest: read definitions %s", path)
		}
		defs, err = definitionsFromRows(header, rows)
	default:
		return nil, eris.Errorf("ingest: unsupported definitions format %q", extension(path))
	}
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: load definitions %s", path)
	}

	ids := make(map[string]bool, len(defs))
	for i := range defs {
		if err := defs[i].Validate(); err != nil {
			return nil, eris.Wrapf(err, "ingest: definition %d", i)
		}
		if ids[defs[i].ID] {
			return nil, eris.Wrapf(model.ErrMalformedDefinition, "ingest: duplicate definition id %q", defs[i].ID)
		}
		ids[defs[i].ID] = true
	}

	zap.L().Info("ingest: definitions loaded",
		zap.String("path", path),
		zap.Int("definitions", len(defs)),
	)
	return defs, nil
}

func definitionsFromRows(header []string, rows [][]string) ([]model.ConsolidationDefinition, error) {
	idx := headerIndex(header)
	for _, required := range []string{"id", "member_codes", "primary_code"} {
		if _, ok := idx[required]; !ok {
			return nil, eris.Errorf("missing required column %q", required)
		}
	}

	defs := make([]model.ConsolidationDefinition, 0, len(rows))
	for _, row := range rows {
		defs = append(defs, model.ConsolidationDefinition{
			ID:          column(row, idx, "id"),
			Title:       column(row, idx, "title"),
			Category:    column(row, idx, "category"),
			MemberCodes: splitList(column(row, idx, "member_codes")),
			PrimaryCode: column(row, idx, "primary_code"),
		})
	}
	return defs, nil
}

// LoadManualCareers reads hand-authored careers from YAML or JSON. An empty
// path means no manual careers are configured.
func LoadManualCareers(path string) ([]model.ManualCareer, error) {
	if path == "" {
		return nil, nil
	}

	var careers []model.ManualCareer
	var err error
	switch extension(path) {
	case ".yaml", ".yml":
		careers, err = decodeFile[[]model.ManualCareer](path, yamlDecode)
	case ".json":
		careers, err = decodeFile[[]model.ManualCareer](path, jsonDecode)
	default:
		return nil, eris.Errorf("ingest: unsupported manual careers format %q", extension(path))
	}
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: load manual careers %s", path)
	}

	for i := range careers {
		if err := careers[i].Validate(); err != nil {
			return nil, eris.Wrapf(err, "ingest: manual career %d", i)
		}
		careers[i].Source = model.SourceManual
	}
	return careers, nil
}

func yamlDecode(r io.Reader, v any) error { return yaml.NewDecoder(r).Decode(v) }
func jsonDecode(r io.Reader, v any) error { return json.NewDecoder(r).Decode(v) }

func decodeFile[T any](path string, decode func(io.Reader, any) error) (T, error) {
	var out T
	f, err := openInput(path)
	if err != nil {
		return out, err
	}
	defer f.Close() //nolint:errcheck

	if err := decode(f, &out); err != nil && err != io.EOF {
		return out, eris.Wrap(err, "decode")
	}
	return out, nil
}
