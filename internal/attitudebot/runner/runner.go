// Package runner drives a classification run over a corpus.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/RobinCoderZhao/attitudebot/internal/attitudebot/classifier"
	"github.com/RobinCoderZhao/attitudebot/internal/attitudebot/corpus"
)

// Labeler classifies one article under a shared fallback state.
type Labeler interface {
	Classify(ctx context.Context, st *classifier.State, content, instruction string) (classifier.Result, error)
	ActiveModel(st *classifier.State) string
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Result is a labelled article.
type Result struct {
	Date   time.Time        `json:"date"`
	Label  classifier.Label `json:"label"`
	Model  string           `json:"model"`
	Source string           `json:"source,omitempty"`
}

// Options controls a run.
type Options struct {
	Instruction string
	// Delay is waited between consecutive classification attempts.
	Delay time.Duration
	// Limit caps the number of articles attempted; 0 means all.
	Limit   int
	Sleeper Sleeper
}

// Summary is the outcome of a run. Results holds only successful labels.
type Summary struct {
	Results    []Result      `json:"results"`
	Articles   int           `json:"articles"`
	Attempted  int           `json:"attempted"`
	Failed     int           `json:"failed"`
	Halted     bool          `json:"halted"`
	Canceled   bool          `json:"canceled"`
	FinalModel string        `json:"final_model"`
	TokensIn   int           `json:"tokens_in"`
	TokensOut  int           `json:"tokens_out"`
	Cost       float64       `json:"cost"`
	Duration   time.Duration `json:"duration"`
}

// Run classifies articles in order. It stops early once st is halted or ctx
// is canceled; whatever was labelled until then is returned.
func Run(ctx context.Context, articles []corpus.Article, l Labeler, st *classifier.State, opts Options) Summary {
	start := time.Now()
	sleep := opts.Sleeper
	if sleep == nil {
		sleep = Sleep
	}

	todo := articles
	if opts.Limit > 0 && opts.Limit < len(todo) {
		todo = todo[:opts.Limit]
	}

	sum := Summary{Articles: len(articles)}
	for i, a := range todo {
		if st.Halted {
			slog.Warn("quota exhausted, skipping remaining articles", "remaining", len(todo)-i)
			break
		}
		if ctx.Err() != nil {
			sum.Canceled = true
			break
		}
		if i > 0 && opts.Delay > 0 {
			if err := sleep(ctx, opts.Delay); err != nil {
				sum.Canceled = true
				break
			}
		}

		sum.Attempted++
		res, err := l.Classify(ctx, st, a.Content, opts.Instruction)
		sum.TokensIn += res.TokensIn
		sum.TokensOut += res.TokensOut
		sum.Cost += res.Cost
		if err != nil {
			if errors.Is(err, classifier.ErrHalted) {
				sum.Failed++
				break
			}
			if ctx.Err() != nil {
				sum.Canceled = true
				break
			}
			sum.Failed++
			slog.Warn("article not labelled",
				"n", i+1,
				"date", a.Date.Format(time.DateOnly),
				"source", a.Source,
				"error", err,
			)
			continue
		}

		sum.Results = append(sum.Results, Result{
			Date:   a.Date,
			Label:  res.Label,
			Model:  res.Model,
			Source: a.Source,
		})
		slog.Info("article labelled",
			"n", i+1,
			"of", len(todo),
			"date", a.Date.Format(time.DateOnly),
			"label", int(res.Label),
			"model", res.Model,
		)
	}

	sum.Halted = st.Halted
	sum.FinalModel = l.ActiveModel(st)
	sum.Duration = time.Since(start)
	return sum
}

// Sleep waits for d, returning early with ctx's error if it is canceled.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
