package ingest

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/careerlens/careers-cli/internal/model"
)

// LoadWorkActivities reads the Detailed Work Activity catalog from a JSON
// array or a CSV file with id and title columns. Vectors are left empty for
// the index build to fill.
func LoadWorkActivities(ctx context.Context, path string) ([]model.WorkActivity, error) {
	f, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	var activities []model.WorkActivity
	switch extension(path) {
	case ".json":
		activities, err = decodeArray[model.WorkActivity](ctx, f)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: decode activities %s", path)
		}
	case ".csv":
		header, rows, err := readCSV(f)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: read activities %s", path)
		}
		idx := headerIndex(header)
		for _, row := range rows {
			activities = append(activities, model.WorkActivity{
				ID:    column(row, idx, "id"),
				Title: column(row, idx, "title"),
			})
		}
	default:
		return nil, eris.Errorf("ingest: unsupported activities format %q", extension(path))
	}

	seen := make(map[string]bool, len(activities))
	for i := range activities {
		a := &activities[i]
		a.ID = strings.TrimSpace(a.ID)
		a.Title = strings.TrimSpace(a.Title)
		a.Vector = nil
		if a.ID == "" || a.Title == "" {
			return nil, eris.Errorf("ingest: activity %d needs id and title", i)
		}
		if seen[a.ID] {
			return nil, eris.Errorf("ingest: duplicate activity id %q", a.ID)
		}
		seen[a.ID] = true
	}

	zap.L().Info("ingest: activities loaded",
		zap.String("path", path),
		zap.Int("activities", len(activities)),
	)
	return activities, nil
}
