package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerlens/careers-cli/internal/config"
	"github.com/careerlens/careers-cli/internal/model"
)

const testDims = 3

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath, testDims)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testCareers() []model.ConsolidatedCareer {
	return []model.ConsolidatedCareer{
		{
			Slug:                 "registered-nurses",
			Title:                "Registered Nurses",
			Category:             "healthcare",
			Source:               model.SourceConsolidated,
			IsConsolidated:       true,
			SpecializationCount:  2,
			SpecializationSlugs:  []string{"nurse-anesthetists", "nurse-practitioners"},
			MemberCodes:          []string{"29-1141", "29-1151", "29-1171"},
			PrimaryCode:          "29-1141",
			Wages:                model.CareerWages{Pct10: 61000, Median: 84000, Pct90: 129000, EmploymentCount: 3300000},
			TrainingTimeCategory: model.Training2To4Years,
			RiskTier:             model.RiskResilient,
			Tasks:                []string{"Monitor patients"},
		},
		{
			Slug:                 "software-developers",
			Title:                "Software Developers",
			Source:               model.SourcePassThrough,
			SpecializationSlugs:  []string{},
			MemberCodes:          []string{"15-1252"},
			TrainingTimeCategory: model.Training4PlusYears,
			RiskTier:             model.RiskEvolving,
		},
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("ReplaceAndListCareers", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.ReplaceCareers(ctx, testCareers()))

		got, err := s.ListCareers(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "registered-nurses", got[0].Slug)
		assert.Equal(t, float64(84000), got[0].Wages.Median)
		assert.Equal(t, []string{"29-1141", "29-1151", "29-1171"}, got[0].MemberCodes)
		assert.Equal(t, model.RiskEvolving, got[1].RiskTier)
	})

	t.Run("ReplaceCareersIsWholesale", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.ReplaceCareers(ctx, testCareers()))
		require.NoError(t, s.ReplaceCareers(ctx, testCareers()[1:]))

		got, err := s.ListCareers(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "software-developers", got[0].Slug)
	})

	t.Run("ListCareersEmpty", func(t *testing.T) {
		s := newStore(t)
		got, err := s.ListCareers(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("CachedQueryMiss", func(t *testing.T) {
		s := newStore(t)
		q, err := s.GetCachedQuery(context.Background(), "absent")
		require.NoError(t, err)
		assert.Nil(t, q)
	})

	t.Run("CachedQueryRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		in := model.CachedQuery{
			Key:       "abc",
			Results:   []model.RankedCareer{{Slug: "registered-nurses", Similarity: 0.91}},
			CreatedAt: created,
			ExpiresAt: created.Add(24 * time.Hour),
		}
		require.NoError(t, s.SetCachedQuery(ctx, in))

		got, err := s.GetCachedQuery(ctx, "abc")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, in.Results, got.Results)
		assert.True(t, in.CreatedAt.Equal(got.CreatedAt))
		assert.True(t, in.ExpiresAt.Equal(got.ExpiresAt))
	})

	t.Run("SetCachedQueryOverwrites", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		require.NoError(t, s.SetCachedQuery(ctx, model.CachedQuery{Key: "k", Results: []model.RankedCareer{{Slug: "a"}}, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))
		require.NoError(t, s.SetCachedQuery(ctx, model.CachedQuery{Key: "k", Results: []model.RankedCareer{}, CreatedAt: now, ExpiresAt: now.Add(2 * time.Hour)}))

		got, err := s.GetCachedQuery(ctx, "k")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Empty(t, got.Results)
		assert.True(t, now.Add(2*time.Hour).Equal(got.ExpiresAt))
	})

	t.Run("DeleteExpiredQueries", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		for key, expires := range map[string]time.Time{
			"stale":    now.Add(-time.Minute),
			"boundary": now,
			"fresh":    now.Add(time.Hour),
		} {
			require.NoError(t, s.SetCachedQuery(ctx, model.CachedQuery{Key: key, Results: []model.RankedCareer{}, CreatedAt: now.Add(-24 * time.Hour), ExpiresAt: expires}))
		}

		n, err := s.DeleteExpiredQueries(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		gone, err := s.GetCachedQuery(ctx, "stale")
		require.NoError(t, err)
		assert.Nil(t, gone)
		for _, key := range []string{"boundary", "fresh"} {
			kept, err := s.GetCachedQuery(ctx, key)
			require.NoError(t, err)
			assert.NotNil(t, kept, key)
		}
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestOpen_SQLite(t *testing.T) {
	cfg := config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "open.db")}
	s, err := Open(context.Background(), cfg, testDims)
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck
	assert.IsType(t, &SQLiteStore{}, s)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "mysql"}, testDims)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}
