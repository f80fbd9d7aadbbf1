package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/careerlens/careers-cli/internal/model"
	"github.com/careerlens/careers-cli/internal/recommend"
)

var activitiesCmd = &cobra.Command{
	Use:   "activities",
	Short: "Find work activities similar to free text",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		query, _ := cmd.Flags().GetString("query")
		limit, _ := cmd.Flags().GetInt("limit")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		svc := recommend.NewService(initEmbedder(), st.Index(), nil, recommend.OptionsFromConfig(cfg.Ranker))
		res, err := svc.Activities(ctx, query, limit)
		if err != nil {
			return err
		}
		if len(res) == 0 {
			fmt.Fprintln(os.Stderr, "No work activities indexed.")
			return nil
		}
		formatActivities(os.Stdout, res)
		return nil
	},
}

func init() {
	activitiesCmd.Flags().String("query", "", "free-text description of the work")
	activitiesCmd.Flags().Int("limit", 10, "max number of activities to return")
	_ = activitiesCmd.MarkFlagRequired("query")

	rootCmd.AddCommand(activitiesCmd)
}

func formatActivities(out io.Writer, res []model.RankedActivity) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tACTIVITY\tSCORE")
	for _, a := range res {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.3f\n", a.ID, a.Title, a.Similarity)
	}
	_ = w.Flush()
}
