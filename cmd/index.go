package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/careerlens/careers-cli/internal/aggregate"
	"github.com/careerlens/careers-cli/internal/index"
	"github.com/careerlens/careers-cli/internal/ingest"
	"github.com/careerlens/careers-cli/internal/model"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the career embedding index",
}

// -- index build --

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Embed careers and specializations into the index",
	Long:  "Embeds every persisted career (or the careers of an aggregate output file) plus the specializations of consolidated careers, replacing their index rows and pruning rows of careers that no longer exist.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		recordsPath, _ := cmd.Flags().GetString("records")
		if recordsPath == "" {
			recordsPath = cfg.Aggregate.RecordsPath
		}
		careersPath, _ := cmd.Flags().GetString("careers")
		activitiesPath, _ := cmd.Flags().GetString("activities")
		workers, _ := cmd.Flags().GetInt("workers")
		if workers <= 0 {
			workers = cfg.Ranker.Workers
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var careers []model.ConsolidatedCareer
		if careersPath != "" {
			res, err := aggregate.ReadJSON(careersPath)
			if err != nil {
				return err
			}
			careers = res.Careers
		} else if careers, err = st.ListCareers(ctx); err != nil {
			return eris.Wrap(err, "index build: list careers")
		}
		if len(careers) == 0 {
			return eris.New("index build: no careers; run aggregate --persist or pass --careers")
		}

		records, err := ingest.LoadOccupations(ctx, recordsPath)
		if err != nil {
			return eris.Wrap(err, "index build: load records")
		}

		embedder := initEmbedder()
		stats, err := index.Build(ctx, index.PlanEntries(careers, records), embedder, st.Index(), workers)
		if err != nil {
			return err
		}

		activities := -1
		if activitiesPath != "" {
			catalog, err := ingest.LoadWorkActivities(ctx, activitiesPath)
			if err != nil {
				return eris.Wrap(err, "index build: load activities")
			}
			if activities, err = index.BuildActivities(ctx, catalog, embedder, st.Index(), workers); err != nil {
				return err
			}
		}

		formatBuildStats(os.Stdout, stats, activities)
		return nil
	},
}

func init() {
	indexBuildCmd.Flags().String("records", "", "raw occupation records for specialization documents (defaults to config)")
	indexBuildCmd.Flags().String("careers", "", "read careers from an aggregate output file instead of the store")
	indexBuildCmd.Flags().String("activities", "", "work activity catalog to embed (.json or .csv)")
	indexBuildCmd.Flags().Int("workers", 0, "careers embedded in parallel (0 uses config)")

	indexCmd.AddCommand(indexBuildCmd)
	rootCmd.AddCommand(indexCmd)
}

// formatBuildStats writes an index build summary to w. activities < 0 means
// the catalog was not rebuilt.
func formatBuildStats(out io.Writer, s *index.BuildStats, activities int) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Entries:\t%d\n", s.Entries)
	_, _ = fmt.Fprintf(w, "  specializations:\t%d\n", s.Specializations)
	_, _ = fmt.Fprintf(w, "  partial:\t%d\n", s.Partial)
	_, _ = fmt.Fprintf(w, "Pruned:\t%d\n", s.Pruned)
	if activities >= 0 {
		_, _ = fmt.Fprintf(w, "Activities:\t%d\n", activities)
	}
	_ = w.Flush()
}
