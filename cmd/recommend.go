package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/careerlens/careers-cli/internal/model"
	"github.com/careerlens/careers-cli/internal/querycache"
	"github.com/careerlens/careers-cli/internal/recommend"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank careers against an interest profile",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		profilePath, _ := cmd.Flags().GetString("profile")
		profile, err := readProfile(profilePath)
		if err != nil {
			return err
		}

		opts := recommend.OptionsFromConfig(cfg.Ranker)
		if cmd.Flags().Changed("limit") {
			opts.Limit, _ = cmd.Flags().GetInt("limit")
		}
		if all, _ := cmd.Flags().GetBool("all"); all {
			opts.PreferConsolidated = false
		}
		asJSON, _ := cmd.Flags().GetBool("json")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		careers, err := st.ListCareers(ctx)
		if err != nil {
			return eris.Wrap(err, "recommend: list careers")
		}

		cache := querycache.New(st, cfg.Cache)
		svc := recommend.NewService(initEmbedder(), st.Index(), cache, opts).WithCareers(careers)

		ranked, err := svc.Recommend(ctx, profile)
		if err != nil {
			return err
		}
		stats := cache.Stats()
		zap.L().Debug("recommend: cache", zap.Int64("hits", stats.Hits), zap.Int64("misses", stats.Misses))

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(ranked)
		}
		if len(ranked) == 0 {
			fmt.Fprintln(os.Stderr, "No matching careers.")
			return nil
		}
		formatRanked(os.Stdout, ranked, careerTitles(careers))
		return nil
	},
}

func init() {
	recommendCmd.Flags().String("profile", "", "query profile JSON file")
	recommendCmd.Flags().Int("limit", 20, "max number of careers to return (0 for all)")
	recommendCmd.Flags().Bool("all", false, "rank specializations alongside consolidated careers")
	recommendCmd.Flags().Bool("json", false, "print results as JSON")
	_ = recommendCmd.MarkFlagRequired("profile")

	rootCmd.AddCommand(recommendCmd)
}

// readProfile decodes a query profile, rejecting unknown fields.
func readProfile(path string) (model.QueryProfile, error) {
	var p model.QueryProfile
	f, err := os.Open(path)
	if err != nil {
		return p, eris.Wrapf(err, "recommend: open profile %s", path)
	}
	defer f.Close() //nolint:errcheck

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return p, eris.Wrapf(err, "recommend: decode profile %s", path)
	}
	return p, nil
}

func careerTitles(careers []model.ConsolidatedCareer) map[string]string {
	titles := make(map[string]string, len(careers))
	for _, c := range careers {
		titles[c.Slug] = c.Title
	}
	return titles
}

// formatRanked writes ranked careers as a table to w. Specializations show
// their parent career.
func formatRanked(out io.Writer, ranked []model.RankedCareer, titles map[string]string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tCAREER\tSCORE\tTASK\tNARRATIVE\tSKILLS\tPARENT")
	for i, r := range ranked {
		name := r.Slug
		if t, ok := titles[r.Slug]; ok {
			name = t
		}
		parent := ""
		if r.ParentSlug != nil {
			parent = *r.ParentSlug
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%.3f\t%.3f\t%.3f\t%.3f\t%s\n",
			i+1, name, r.Similarity, r.TaskSimilarity, r.NarrativeSimilarity, r.SkillsSimilarity, parent)
	}
	_ = w.Flush()
}
