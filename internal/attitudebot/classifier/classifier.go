// Package classifier labels articles with a language model. It owns the
// quota fallback policy: on quota exhaustion it walks an ordered model
// sequence, retries a bounded number of times on the last model, and then
// halts for the rest of the run.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/RobinCoderZhao/attitudebot/internal/attitudebot/prompt"
	"github.com/RobinCoderZhao/attitudebot/pkg/llm"
)

const (
	defaultMaxQuotaErrors  = 5
	defaultMaxContentChars = 100_000
)

// State is the run-wide fallback state. The zero value starts on the first
// model. Only Classify mutates it: ActiveIndex only moves forward and Halted
// is never cleared.
type State struct {
	ActiveIndex int `json:"active_index"`
	// SaturationCount counts quota errors seen on the last model.
	SaturationCount int  `json:"saturation_count"`
	Halted          bool `json:"halted"`
}

// ClientFactory builds a client for one model of the fallback sequence.
type ClientFactory func(model string) (llm.Client, error)

// Result is a successful classification.
type Result struct {
	Label     Label   `json:"label"`
	Model     string  `json:"model"`
	Raw       string  `json:"raw"`
	TokensIn  int     `json:"tokens_in"`
	TokensOut int     `json:"tokens_out"`
	Cost      float64 `json:"cost"`
}

// Classifier sends articles to the active model of its fallback sequence.
type Classifier struct {
	models          []string
	newClient       ClientFactory
	maxQuotaErrors  int
	maxContentChars int

	client      llm.Client
	clientIndex int
}

// Option customizes the classifier.
type Option func(*Classifier)

// WithMaxQuotaErrors sets how many quota errors the last model may return
// before the run halts (defaults to 5).
func WithMaxQuotaErrors(n int) Option {
	return func(c *Classifier) {
		if n >= 0 {
			c.maxQuotaErrors = n
		}
	}
}

// WithMaxContentChars sets the article truncation length (defaults to 100000).
func WithMaxContentChars(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.maxContentChars = n
		}
	}
}

// New creates a classifier over the given fallback sequence.
func New(models []string, factory ClientFactory, opts ...Option) (*Classifier, error) {
	if len(models) == 0 {
		return nil, errors.New("classifier: at least one model is required")
	}
	if factory == nil {
		return nil, errors.New("classifier: client factory is required")
	}
	c := &Classifier{
		models:          append([]string(nil), models...),
		newClient:       factory,
		maxQuotaErrors:  defaultMaxQuotaErrors,
		maxContentChars: defaultMaxContentChars,
		clientIndex:     -1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Models returns the fallback sequence.
func (c *Classifier) Models() []string {
	return append([]string(nil), c.models...)
}

// ActiveModel returns the model st currently points at.
func (c *Classifier) ActiveModel(st *State) string {
	return c.models[c.index(st)]
}

// Classify labels one article. It returns ErrHalted without contacting the
// endpoint once st is halted; every failure wraps ErrNoLabel.
func (c *Classifier) Classify(ctx context.Context, st *State, content, instruction string) (Result, error) {
	if st.Halted {
		return Result{}, ErrHalted
	}

	req := llm.UserPrompt(prompt.Compose(instruction, Truncate(content, c.maxContentChars)))

	// Each attempt either returns, advances the model pointer, or spends one
	// of the last model's retries, so this bound is never the exit path.
	maxAttempts := len(c.models) + c.maxQuotaErrors
	for attempt := 0; attempt < maxAttempts; attempt++ {
		client, err := c.clientFor(st)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrRemote, err)
		}

		resp, err := client.Generate(ctx, req)
		if err == nil {
			slog.Debug("model output", "model", client.Model(), "raw", resp.Content)
			res := Result{
				Model:     client.Model(),
				Raw:       resp.Content,
				TokensIn:  resp.TokensIn,
				TokensOut: resp.TokensOut,
				Cost:      resp.Cost,
			}
			res.Label, err = ParseLabel(resp.Content)
			return res, err
		}

		if !llm.IsQuotaExhausted(err) {
			return Result{Model: client.Model()}, fmt.Errorf("%w: %w", ErrRemote, err)
		}
		if c.onQuotaExhausted(st) {
			return Result{}, ErrHalted
		}
	}

	slog.Error("retry budget spent without halting, stopping API calls",
		"model", c.models[c.index(st)],
		"quota_errors", st.SaturationCount,
		"attempts", maxAttempts,
	)
	st.Halted = true
	return Result{}, ErrHalted
}

// onQuotaExhausted applies one quota-error transition and reports whether
// the run is now halted.
func (c *Classifier) onQuotaExhausted(st *State) bool {
	last := len(c.models) - 1
	if c.index(st) < last {
		st.ActiveIndex = c.index(st) + 1
		slog.Warn("quota exhausted, switching model",
			"from", c.models[st.ActiveIndex-1],
			"to", c.models[st.ActiveIndex],
		)
		return false
	}

	st.SaturationCount++
	if st.SaturationCount > c.maxQuotaErrors {
		st.Halted = true
		slog.Error("quota exhausted on every model, stopping API calls",
			"model", c.models[last],
			"quota_errors", st.SaturationCount,
		)
		return true
	}
	slog.Warn("quota exhausted on last model, retrying",
		"model", c.models[last],
		"quota_errors", st.SaturationCount,
		"max_quota_errors", c.maxQuotaErrors,
	)
	return false
}

// clientFor returns the client of the active model, building a new one
// whenever the pointer has moved.
func (c *Classifier) clientFor(st *State) (llm.Client, error) {
	idx := c.index(st)
	if c.client != nil && c.clientIndex == idx {
		return c.client, nil
	}
	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
	client, err := c.newClient(c.models[idx])
	if err != nil {
		return nil, fmt.Errorf("initialize model %s: %w", c.models[idx], err)
	}
	c.client, c.clientIndex = client, idx
	return client, nil
}

func (c *Classifier) index(st *State) int {
	switch {
	case st.ActiveIndex < 0:
		return 0
	case st.ActiveIndex >= len(c.models):
		return len(c.models) - 1
	default:
		return st.ActiveIndex
	}
}

// Close releases the active client.
func (c *Classifier) Close() error {
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}
