package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/careerlens/careers-cli/internal/querycache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Maintain the recommendation query cache",
}

// -- cache sweep --

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired cached queries",
	Long:  "Deletes cached queries whose expiry has passed. With --watch, keeps sweeping on the configured interval until interrupted.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		watch, _ := cmd.Flags().GetBool("watch")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		cache := querycache.New(st, cfg.Cache)
		if watch {
			zap.L().Info("cache: sweeper started", zap.Duration("interval", cfg.Cache.SweepInterval()))
			cache.RunSweeper(ctx, cfg.Cache.SweepInterval())
			fmt.Fprintf(os.Stderr, "Swept %d expired entries.\n", cache.Stats().Swept)
			return nil
		}

		n, err := cache.Sweep(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Swept %d expired entries.\n", n)
		return nil
	},
}

func init() {
	cacheSweepCmd.Flags().Bool("watch", false, "sweep periodically until interrupted")

	cacheCmd.AddCommand(cacheSweepCmd)
	rootCmd.AddCommand(cacheCmd)
}
