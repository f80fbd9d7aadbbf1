package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWorkActivities_CSV(t *testing.T) {
	path := writeFile(t, "dwa.csv", "ID,Title\n4.A.2.a.1, Analyze patient data \n4.A.3.b.1,Program computer systems\n")

	got, err := LoadWorkActivities(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "4.A.2.a.1", got[0].ID)
	assert.Equal(t, "Analyze patient data", got[0].Title)
	assert.Nil(t, got[0].Vector)
}

func TestLoadWorkActivities_JSON(t *testing.T) {
	path := writeFile(t, "dwa.json", `[{"id":"4.A.1","title":"Gather information","vector":[1,2]}]`)

	got, err := LoadWorkActivities(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Gather information", got[0].Title)
	assert.Nil(t, got[0].Vector, "stored vectors are recomputed by the index build")
}

func TestLoadWorkActivities_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"missing title", "a.csv", "id,title\n4.A.1,\n", "needs id and title"},
		{"duplicate id", "a.csv", "id,title\n4.A.1,One\n4.A.1,Two\n", "duplicate activity id"},
		{"unsupported", "a.txt", "x", "unsupported activities format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadWorkActivities(context.Background(), writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadWorkActivities_Missing(t *testing.T) {
	_, err := LoadWorkActivities(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	assert.True(t, errors.Is(err, ErrMissingInput))
}
