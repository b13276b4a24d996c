// attitudebot classifies newspaper articles as pro-market or
// pro-government intervention and charts the daily trend.
//
// Usage:
//
//	attitudebot run       # classify the corpus and plot the trend
//	attitudebot extract   # show the dated articles without calling the model
//	attitudebot plot      # re-plot a stored run
//	attitudebot runs      # list stored runs
//	attitudebot version
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: .env file not loaded: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("attitudebot failed", "error", err)
		stop()
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	verbose    bool
}

func rootCmd() *cobra.Command {
	var g globalFlags

	root := &cobra.Command{
		Use:           "attitudebot",
		Short:         "Classify newspaper articles by economic attitude",
		Long:          "attitudebot splits RTF newspaper archives into dated articles, labels each one as pro-market (0) or pro-government intervention (1) with Gemini, and plots the daily mean.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if g.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "config file (default attitudebot.yaml)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "debug logging, including raw model output")

	root.AddCommand(runCmd(&g))
	root.AddCommand(extractCmd(&g))
	root.AddCommand(plotCmd(&g))
	root.AddCommand(runsCmd(&g))
	root.AddCommand(versionCmd())
	return root
}

func runCmd(g *globalFlags) *cobra.Command {
	var o runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Classify every dated article and plot the trend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, g.configPath, &o.overrides)
			if err != nil {
				return err
			}
			return runClassify(cmd.Context(), cfg, o)
		},
	}

	addOverrideFlags(cmd, &o.overrides)
	cmd.Flags().StringVarP(&o.overrides.chart, "out", "o", "", "chart output path (default attitude_trend.png)")
	cmd.Flags().StringVar(&o.overrides.db, "db", "", "SQLite database for run history")
	cmd.Flags().DurationVar(&o.overrides.delay, "delay", 0, "pause between model calls (default 7s)")
	cmd.Flags().IntVarP(&o.limit, "limit", "n", 0, "classify at most n articles")
	cmd.Flags().BoolVar(&o.noStore, "no-store", false, "do not record the run in the database")
	return cmd
}

func extractCmd(g *globalFlags) *cobra.Command {
	var (
		o       overrides
		preview int
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Show the dated articles found in the input directory",
		Long:  "Converts and splits the input files exactly like run does, without contacting the model.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, g.configPath, &o)
			if err != nil {
				return err
			}
			return runExtract(cfg, preview)
		},
	}

	addOverrideFlags(cmd, &o)
	cmd.Flags().IntVar(&preview, "preview", 60, "characters of article text to show")
	return cmd
}

func plotCmd(g *globalFlags) *cobra.Command {
	var (
		o     overrides
		runID string
	)

	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Plot a stored run (latest by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, g.configPath, &o)
			if err != nil {
				return err
			}
			return runPlot(cmd.Context(), cfg, runID)
		},
	}

	cmd.Flags().StringVarP(&o.chart, "out", "o", "", "chart output path (default attitude_trend.png)")
	cmd.Flags().StringVar(&o.db, "db", "", "SQLite database for run history")
	cmd.Flags().StringVar(&runID, "run", "", "run id (default latest)")
	return cmd
}

func runsCmd(g *globalFlags) *cobra.Command {
	var (
		o     overrides
		limit int
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, g.configPath, &o)
			if err != nil {
				return err
			}
			return runListRuns(cmd.Context(), cfg, limit)
		},
	}

	cmd.Flags().StringVar(&o.db, "db", "", "SQLite database for run history")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "show at most n runs (0 for all)")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("attitudebot %s\n", version)
		},
	}
}
