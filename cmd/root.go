package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/careerlens/careers-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "careers",
	Short: "Career consolidation and similarity matching",
	Long:  "Consolidates fine-grained occupation records into consumer-facing careers, embeds them, and ranks careers against free-form interest profiles.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := setup(cmd, config.Load)
		if err != nil {
			return err
		}
		cfg = c
		return config.InitLogger(cfg.Log)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "override log.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "override log.format (json or console)")
}

// setup loads the configuration, applies command-line log overrides, and
// validates the result.
func setup(cmd *cobra.Command, load func() (*config.Config, error)) (*config.Config, error) {
	c, err := load()
	if err != nil {
		return nil, eris.Wrap(err, "load config")
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		c.Log.Level = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		c.Log.Format = v
	}
	if err := c.Validate(); err != nil {
		return nil, eris.Wrap(err, "validate config")
	}
	return c, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
