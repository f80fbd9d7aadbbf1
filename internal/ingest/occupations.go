package ingest

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/careerlens/careers-cli/internal/model"
)

// LoadOccupations reads raw occupation records from a JSON array (.json) or a
// header-mapped CSV file (.csv). Every record is validated; an invalid or
// duplicated record aborts the load.
func LoadOccupations(ctx context.Context, path string) ([]model.RawOccupationRecord, error) {
	f, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	var records []model.RawOccupationRecord
	switch extension(path) {
	case ".json":
		records, err = decodeArray[model.RawOccupationRecord](ctx, f)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: decode occupations %s", path)
		}
	case ".csv":
		header, rows, err := readCSV(f)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: read occupations %s", path)
		}
		records, err = occupationsFromRows(header, rows)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: parse occupations %s", path)
		}
	default:
		return nil, eris.Errorf("ingest: unsupported occupations format %q", extension(path))
	}

	seen := make(map[string]bool, len(records))
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return nil, eris.Wrapf(err, "ingest: record %d", i)
		}
		if seen[records[i].Code] {
			return nil, eris.Errorf("ingest: duplicate occupation code %q", records[i].Code)
		}
		seen[records[i].Code] = true
	}

	zap.L().Info("ingest: occupations loaded",
		zap.String("path", path),
		zap.Int("records", len(records)),
	)
	return records, nil
}

func occupationsFromRows(header []string, rows [][]string) ([]model.RawOccupationRecord, error) {
	idx := headerIndex(header)
	for _, required := range []string{"code", "title"} {
		if _, ok := idx[required]; !ok {
			return nil, eris.Errorf("missing required column %q", required)
		}
	}

	records := make([]model.RawOccupationRecord, 0, len(rows))
	for n, row := range rows {
		rec, err := occupationFromRow(row, idx)
		if err != nil {
			return nil, eris.Wrapf(err, "row %d", n+2)
		}
		records = append(records, rec)
	}
	return records, nil
}

func occupationFromRow(row []string, idx map[string]int) (model.RawOccupationRecord, error) {
	rec := model.RawOccupationRecord{
		Code:             column(row, idx, "code"),
		Slug:             column(row, idx, "slug"),
		Title:            column(row, idx, "title"),
		Category:         column(row, idx, "category"),
		Description:      column(row, idx, "description"),
		Subcategory:      column(row, idx, "subcategory"),
		Outlook:          column(row, idx, "outlook"),
		VideoURL:         column(row, idx, "video_url"),
		Tasks:            splitList(column(row, idx, "tasks")),
		TechnologySkills: splitList(column(row, idx, "technology_skills")),
		Abilities:        splitList(column(row, idx, "abilities")),
		AlternateTitles:  splitList(column(row, idx, "alternate_titles")),
	}

	var wages model.Wages
	var hasWages bool
	for name, dst := range map[string]**float64{
		"wage_pct10":  &wages.Pct10,
		"wage_pct25":  &wages.Pct25,
		"wage_median": &wages.Median,
		"wage_pct75":  &wages.Pct75,
		"wage_pct90":  &wages.Pct90,
		"wage_mean":   &wages.Mean,
	} {
		v, err := parseFloat(column(row, idx, name))
		if err != nil {
			return rec, eris.Wrapf(err, "column %s", name)
		}
		if v != nil {
			*dst = v
			hasWages = true
		}
	}
	if s := column(row, idx, "employment"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return rec, eris.Wrap(err, "column employment")
		}
		wages.EmploymentCount = &n
		hasWages = true
	}
	if hasWages {
		rec.Wages = &wages
	}

	var err error
	if rec.TrainingYears, err = parseFloat(column(row, idx, "training_years")); err != nil {
		return rec, eris.Wrap(err, "column training_years")
	}
	if rec.EducationYears, err = parseFloat(column(row, idx, "education_years")); err != nil {
		return rec, eris.Wrap(err, "column education_years")
	}

	if s := column(row, idx, "risk_tier"); s != "" {
		tier, err := model.ParseRiskTier(s)
		if err != nil {
			return rec, eris.Wrap(err, "column risk_tier")
		}
		rec.RiskTier = &tier
	}
	return rec, nil
}

// parseFloat parses an optional numeric cell; blank cells yield nil.
func parseFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
