package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kikiluvv/shotscan/internal/config"
	"github.com/kikiluvv/shotscan/internal/logging"
	"github.com/kikiluvv/shotscan/internal/metrics"
	"github.com/kikiluvv/shotscan/internal/pipeline"
	"github.com/kikiluvv/shotscan/internal/scenes"
)

var (
	cfgFile     string
	verbose     bool
	metricsAddr string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "shotscan",
	Short: "shotscan - shot boundary detection for video files",
	Long:  "Detects hard cuts, fades and flashes in video files and caches metadata and results per file.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging
		logging.Init(verbose)

		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if metricsAddr != "" {
			cfg.MetricsAddr = metricsAddr
		}
		if cfg.MetricsAddr != "" {
			metrics.StartServer(cmd.Context(), cfg.MetricsAddr, log.Logger)
		}

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./shotscan.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	analyzeCmd.Flags().Bool("json", false, "print results as JSON")
	summaryCmd.Flags().Bool("or-fades", false, "merge fade-out flags into the boundary sequence")
	thumbsCmd.Flags().Int("width", 0, "thumbnail width (0 keeps source width)")
	thumbsCmd.Flags().Bool("all-events", false, "also extract fade and flash frames")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(metaCmd)
	rootCmd.AddCommand(invalidateCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(thumbsCmd)
}

func newPipeline(cmd *cobra.Command) (*pipeline.Pipeline, error) {
	return pipeline.New(logging.NewLogger(), config.FromContext(cmd.Context()))
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [videos...]",
	Short: "Detect shot boundaries in videos",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, err := newPipeline(cmd)
		if err != nil {
			return err
		}

		results, err := pipe.AnalyzeBatch(cmd.Context(), args)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd, results)
		}
		logger := logging.WithComponent("cli")
		for _, res := range results {
			logger.Info().
				Str("video", res.Path).
				Str("status", res.Status).
				Int("events", len(res.Events)).
				Int("shots", len(res.Shots)).
				Str("error", res.Error).
				Msg("result")
		}
		return nil
	},
}

var metaCmd = &cobra.Command{
	Use:   "meta [video]",
	Short: "Print the cached or freshly collected metadata of a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, err := newPipeline(cmd)
		if err != nil {
			return err
		}
		v, err := pipe.Video(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, struct {
			Key    string `json:"key"`
			Status string `json:"status"`
			Cached bool   `json:"cached"`
			Meta   any    `json:"meta"`
		}{v.Key, v.Status().String(), v.Cached(), v.Meta()})
	},
}

var invalidateCmd = &cobra.Command{
	Use:   "invalidate [videos...]",
	Short: "Delete cached metadata and results",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, err := newPipeline(cmd)
		if err != nil {
			return err
		}
		for _, path := range args {
			if err := pipe.Invalidate(path); err != nil {
				return err
			}
		}
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary [video]",
	Short: "Print the portable summary of an analyzed video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, err := newPipeline(cmd)
		if err != nil {
			return err
		}
		orFades, _ := cmd.Flags().GetBool("or-fades")
		s, err := pipe.Summary(cmd.Context(), args[0], orFades)
		if err != nil {
			return err
		}
		return printJSON(cmd, s)
	},
}

var thumbsCmd = &cobra.Command{
	Use:   "thumbs [video] [output dir]",
	Short: "Write a JPEG for every detected boundary",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, err := newPipeline(cmd)
		if err != nil {
			return err
		}

		width, _ := cmd.Flags().GetInt("width")
		opts := pipeline.ThumbnailOptions{OutputDir: args[1], Width: width}
		if all, _ := cmd.Flags().GetBool("all-events"); all {
			opts.Kinds = []scenes.EventKind{scenes.EventBoundary, scenes.EventFadeOut, scenes.EventFlash}
		}

		written, err := pipe.Thumbnails(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}
		for _, path := range written {
			fmt.Fprintln(cmd.OutOrStdout(), path)
		}
		return nil
	},
}
