package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/RobinCoderZhao/attitudebot/internal/attitudebot/classifier"
	"github.com/RobinCoderZhao/attitudebot/internal/attitudebot/config"
	"github.com/RobinCoderZhao/attitudebot/internal/attitudebot/corpus"
	"github.com/RobinCoderZhao/attitudebot/internal/attitudebot/report"
	"github.com/RobinCoderZhao/attitudebot/internal/attitudebot/runner"
	"github.com/RobinCoderZhao/attitudebot/internal/attitudebot/store"
	"github.com/RobinCoderZhao/attitudebot/pkg/llm"
	"github.com/RobinCoderZhao/attitudebot/pkg/notify"
)

// overrides are command line values that take precedence over the config
// file. Only flags the user actually set are applied.
type overrides struct {
	dir   string
	chart string
	db    string
	delay time.Duration
}

type runOptions struct {
	overrides
	limit   int
	noStore bool
}

func addOverrideFlags(cmd *cobra.Command, o *overrides) {
	cmd.Flags().StringVarP(&o.dir, "dir", "d", "", "input directory (default data)")
}

func loadConfig(cmd *cobra.Command, path string, o *overrides) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("dir") {
		cfg.InputDir = o.dir
	}
	if flags.Changed("out") {
		cfg.ChartPath = o.chart
	}
	if flags.Changed("db") {
		cfg.DBPath = o.db
	}
	if flags.Changed("delay") {
		cfg.Delay = o.delay
	}
	return cfg, cfg.Validate()
}

func runClassify(ctx context.Context, cfg config.Config, o runOptions) error {
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	articles, stats, err := corpus.BuildDir(cfg.InputDir, cfg.Patterns)
	if err != nil {
		return err
	}
	slog.Info("corpus ready",
		"dir", cfg.InputDir,
		"files", stats.Files,
		"articles", stats.Articles,
		"undated", stats.Undated,
	)
	if len(articles) == 0 {
		fmt.Println("No dated articles found; nothing to classify.")
		return nil
	}

	c, err := classifier.New(cfg.Models, clientFactory(cfg.LLM),
		classifier.WithMaxQuotaErrors(cfg.MaxQuotaErrors),
		classifier.WithMaxContentChars(cfg.MaxContentChars),
	)
	if err != nil {
		return err
	}
	defer c.Close()

	record := store.NewRun(cfg.InputDir, time.Now())
	var st classifier.State
	sum := runner.Run(ctx, articles, c, &st, runner.Options{
		Instruction: cfg.Prompt,
		Delay:       cfg.Delay,
		Limit:       o.limit,
	})
	record.Complete(sum, time.Now())

	slog.Info("classification finished",
		"attempted", sum.Attempted,
		"labelled", len(sum.Results),
		"failed", sum.Failed,
		"halted", sum.Halted,
		"canceled", sum.Canceled,
		"final_model", sum.FinalModel,
		"tokens_in", sum.TokensIn,
		"tokens_out", sum.TokensOut,
		"cost", fmt.Sprintf("$%.4f", sum.Cost),
		"duration", sum.Duration.Round(time.Second),
	)

	points := report.Aggregate(sum.Results)
	printTrend(points)
	if len(points) > 0 {
		if err := report.RenderPNG(points, cfg.ChartPath); err != nil {
			slog.Error("chart not written", "error", err)
		} else {
			fmt.Printf("Chart written to %s\n", cfg.ChartPath)
		}
	} else {
		fmt.Println("No articles were labelled; no chart written.")
	}

	if cfg.DBPath != "" && !o.noStore {
		// The run context may already be canceled; saving must still work.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := saveRun(saveCtx, cfg.DBPath, record, sum.Results); err != nil {
			slog.Warn("run not recorded", "db", cfg.DBPath, "error", err)
		} else {
			fmt.Printf("Run %s recorded in %s\n", record.ID, cfg.DBPath)
		}
	}

	if d := notify.NewDispatcher(cfg.Notify); d.Enabled() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := d.Send(sendCtx, runMessage(record, sum, points)); err != nil {
			slog.Warn("run notification failed", "error", err)
		}
	}

	if sum.Halted {
		fmt.Println("Stopped early: every model reported quota exhaustion.")
	}
	return nil
}

// runMessage summarizes a finished run for notification channels.
func runMessage(run store.Run, sum runner.Summary, points []report.DailyPoint) notify.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Labelled %d of %d articles (%d failed)\n", len(sum.Results), sum.Attempted, sum.Failed)
	if mean, n := report.Overall(points); n > 0 {
		fmt.Fprintf(&b, "Mean attitude %.3f over %d days (%s to %s)\n", mean, len(points),
			points[0].Date.Format(time.DateOnly), points[len(points)-1].Date.Format(time.DateOnly))
	}
	fmt.Fprintf(&b, "Final model: %s\n", sum.FinalModel)
	switch {
	case sum.Halted:
		b.WriteString("Stopped early after repeated quota exhaustion\n")
	case sum.Canceled:
		b.WriteString("Canceled before completion\n")
	}
	fmt.Fprintf(&b, "Run %s", run.ID)
	return notify.Message{Title: "attitudebot run finished", Body: b.String()}
}

func clientFactory(base llm.Config) classifier.ClientFactory {
	return func(model string) (llm.Client, error) {
		return llm.NewClient(base.WithModel(model))
	}
}

func saveRun(ctx context.Context, path string, run store.Run, results []runner.Result) error {
	s, err := store.Open(ctx, path)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.SaveRun(ctx, run, results)
}

func runExtract(cfg config.Config, preview int) error {
	articles, stats, err := corpus.BuildDir(cfg.InputDir, cfg.Patterns)
	if err != nil {
		return err
	}
	printArticles(articles, preview)
	fmt.Printf("%d files, %d spans, %d dated articles, %d without a date\n",
		stats.Files, stats.Spans, stats.Articles, stats.Undated)
	return nil
}

func runPlot(ctx context.Context, cfg config.Config, runID string) error {
	if cfg.DBPath == "" {
		return errors.New("no database configured: pass --db or set db in the config file")
	}
	s, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	var run store.Run
	if runID == "" {
		run, err = s.LatestRun(ctx)
	} else {
		run, err = s.GetRun(ctx, runID)
	}
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no stored run found in %s", cfg.DBPath)
	}
	if err != nil {
		return err
	}

	results, err := s.Results(ctx, run.ID)
	if err != nil {
		return err
	}
	points := report.Aggregate(results)
	printTrend(points)
	if err := report.RenderPNG(points, cfg.ChartPath); err != nil {
		return err
	}
	fmt.Printf("Chart for run %s written to %s\n", run.ID, cfg.ChartPath)
	return nil
}

func runListRuns(ctx context.Context, cfg config.Config, limit int) error {
	if cfg.DBPath == "" {
		return errors.New("no database configured: pass --db or set db in the config file")
	}
	s, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}
	printRuns(runs)
	return nil
}
