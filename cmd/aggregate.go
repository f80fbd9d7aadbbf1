package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/careerlens/careers-cli/internal/aggregate"
	"github.com/careerlens/careers-cli/internal/ingest"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Consolidate raw occupation records into careers",
	Long:  "Reads raw occupation records and consolidation definitions, builds the career catalog, and writes it as JSON. With --persist the catalog also replaces the careers in the store.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		acfg := cfg.Aggregate

		if v, _ := cmd.Flags().GetString("records"); v != "" {
			acfg.RecordsPath = v
		}
		if v, _ := cmd.Flags().GetString("definitions"); v != "" {
			acfg.DefinitionsPath = v
		}
		if v, _ := cmd.Flags().GetString("manual"); v != "" {
			acfg.ManualPath = v
		}
		if v, _ := cmd.Flags().GetString("output"); v != "" {
			acfg.OutputPath = v
		}
		if v, _ := cmd.Flags().GetInt("workers"); v > 0 {
			acfg.Workers = v
		}
		persist, _ := cmd.Flags().GetBool("persist")

		// Inputs are all read before anything is written.
		records, err := ingest.LoadOccupations(ctx, acfg.RecordsPath)
		if err != nil {
			return eris.Wrap(err, "aggregate: load records")
		}
		defs, err := ingest.LoadDefinitions(ctx, acfg.DefinitionsPath)
		if err != nil {
			return eris.Wrap(err, "aggregate: load definitions")
		}
		in := aggregate.Input{Records: records, Definitions: defs}
		if acfg.ManualPath != "" {
			if in.Manual, err = ingest.LoadManualCareers(acfg.ManualPath); err != nil {
				return eris.Wrap(err, "aggregate: load manual careers")
			}
		}

		res, err := aggregate.New(acfg).Aggregate(ctx, in)
		if err != nil {
			return err
		}
		if err := aggregate.WriteJSON(acfg.OutputPath, res); err != nil {
			return err
		}

		if persist {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := st.ReplaceCareers(ctx, res.Careers); err != nil {
				return eris.Wrap(err, "aggregate: persist careers")
			}
			zap.L().Info("aggregate: careers persisted", zap.String("run_id", res.RunID), zap.Int("careers", len(res.Careers)))
		}

		formatAggregateStats(os.Stdout, acfg.OutputPath, res)
		return nil
	},
}

func init() {
	aggregateCmd.Flags().String("records", "", "raw occupation records (.json or .csv)")
	aggregateCmd.Flags().String("definitions", "", "consolidation definitions (.yaml, .json, .csv, or .xlsx)")
	aggregateCmd.Flags().String("manual", "", "hand-authored careers (.yaml or .json)")
	aggregateCmd.Flags().String("output", "", "output path for the career catalog")
	aggregateCmd.Flags().Int("workers", 0, "definitions computed in parallel (0 uses config)")
	aggregateCmd.Flags().Bool("persist", false, "also replace the careers in the store")

	rootCmd.AddCommand(aggregateCmd)
}

// formatAggregateStats writes a summary of an aggregation run to w.
func formatAggregateStats(out io.Writer, path string, res *aggregate.Result) {
	s := res.Stats
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", res.RunID)
	_, _ = fmt.Fprintf(w, "Output:\t%s\n", path)
	_, _ = fmt.Fprintf(w, "Raw records:\t%d\n", s.RawRecords)
	_, _ = fmt.Fprintf(w, "Careers:\t%d\n", len(res.Careers))
	_, _ = fmt.Fprintf(w, "  consolidated:\t%d of %d definitions (%d skipped)\n", s.Consolidated, s.Definitions, s.SkippedDefinitions)
	_, _ = fmt.Fprintf(w, "  pass-through:\t%d\n", s.PassThrough)
	_, _ = fmt.Fprintf(w, "  manual:\t%d\n", s.Manual)
	_, _ = fmt.Fprintf(w, "Missing members:\t%d\n", s.MissingMembers)
	_, _ = fmt.Fprintf(w, "Duplicate members:\t%d\n", s.DuplicateMembers)
	_, _ = fmt.Fprintf(w, "Slug collisions:\t%d\n", s.SlugCollisions)
	_, _ = fmt.Fprintf(w, "Degraded (wages/training/risk):\t%d/%d/%d\n", s.DegradedWages, s.DegradedTraining, s.DegradedRisk)
	if len(res.Unclaimed) > 0 {
		_, _ = fmt.Fprintf(w, "Unclaimed codes:\t%d\n", len(res.Unclaimed))
	}
	_ = w.Flush()
}
