// Package llm provides a unified interface for text generation backends.
// It supports the Gemini REST API, the official genai SDK, and local Ollama
// models, with typed API errors and optional retries for transient failures.
package llm

import (
	"context"
	"fmt"
	"time"
)

// Provider represents an LLM provider.
type Provider string

const (
	Gemini Provider = "gemini"
	GenAI  Provider = "genai"
	Ollama Provider = "ollama"
)

// Config holds configuration for an LLM client.
type Config struct {
	Provider    Provider      `yaml:"provider" json:"provider" env:"LLM_PROVIDER"`
	Model       string        `yaml:"model" json:"model"`
	APIKey      string        `yaml:"api_key" json:"api_key" env:"GEMINI_API_KEY"`
	BaseURL     string        `yaml:"base_url" json:"base_url" env:"LLM_BASE_URL"`
	MaxRetries  int           `yaml:"max_retries" json:"max_retries"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout" env:"LLM_TIMEOUT"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens"`
	Temperature float64       `yaml:"temperature" json:"temperature"`
	TopP        float64       `yaml:"top_p" json:"top_p"`
	TopK        int           `yaml:"top_k" json:"top_k"`
}

// DefaultConfig returns the generation settings used for article classification.
func DefaultConfig() Config {
	return Config{
		Provider:    Gemini,
		Model:       "gemini-1.5-flash",
		MaxRetries:  1,
		Timeout:     60 * time.Second,
		MaxTokens:   50,
		Temperature: 0.85,
		TopP:        0.95,
		TopK:        40,
	}
}

// RequiresAPIKey reports whether the provider authenticates with an API key.
func (p Provider) RequiresAPIKey() bool {
	return p != Ollama
}

// Client is the unified interface for LLM interactions.
type Client interface {
	// Generate sends a prompt and returns the LLM response.
	Generate(ctx context.Context, req *Request) (*Response, error)

	// Provider returns the name of the provider.
	Provider() Provider

	// Model returns the model identifier requests are sent to.
	Model() string

	// Close releases any resources held by the client.
	Close() error
}

// Message represents a single message in a conversation.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Request holds the parameters for an LLM generation request.
// Zero-valued sampling fields fall back to the client Config.
type Request struct {
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
	TopK        int       `json:"top_k,omitempty"`
	JSONMode    bool      `json:"json_mode,omitempty"`
}

// Response holds the result of an LLM generation.
type Response struct {
	Content      string  `json:"content"`
	FinishReason string  `json:"finish_reason,omitempty"`
	TokensIn     int     `json:"tokens_in"`
	TokensOut    int     `json:"tokens_out"`
	Cost         float64 `json:"cost"`
	Model        string  `json:"model"`
	LatencyMs    int64   `json:"latency_ms"`
}

// NewClient creates a new LLM client based on the provided config.
func NewClient(cfg Config) (Client, error) {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	switch cfg.Provider {
	case Gemini, "":
		return newGeminiClient(cfg)
	case GenAI:
		return newGenAIClient(cfg)
	case Ollama:
		return newOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// UserPrompt builds a history-less single-turn request.
func UserPrompt(prompt string) *Request {
	return &Request{Messages: []Message{{Role: "user", Content: prompt}}}
}

func (cfg Config) maxTokens(req *Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return cfg.MaxTokens
}

func (cfg Config) temperature(req *Request) float64 {
	if req.Temperature > 0 {
		return req.Temperature
	}
	return cfg.Temperature
}

func (cfg Config) topP(req *Request) float64 {
	if req.TopP > 0 {
		return req.TopP
	}
	return cfg.TopP
}

func (cfg Config) topK(req *Request) int {
	if req.TopK > 0 {
		return req.TopK
	}
	return cfg.TopK
}
