package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// genaiClient implements the Client interface on top of the official
// Google Gen AI SDK, talking to the Gemini API backend.
type genaiClient struct {
	cfg    Config
	client *genai.Client
}

func newGenAIClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("GenAI model is required")
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return wrapWithRetry(&genaiClient{cfg: cfg, client: client}, cfg.MaxRetries), nil
}

func (c *genaiClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	gc := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(c.cfg.maxTokens(req)),
	}
	if t := c.cfg.temperature(req); t > 0 {
		gc.Temperature = float32Ptr(t)
	}
	if p := c.cfg.topP(req); p > 0 {
		gc.TopP = float32Ptr(p)
	}
	if k := c.cfg.topK(req); k > 0 {
		gc.TopK = float32Ptr(float64(k))
	}
	if req.System != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSONMode {
		gc.ResponseMIMEType = "application/json"
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, contents, gc)
	if err != nil {
		return nil, fmt.Errorf("GenAI generate failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no content in GenAI response")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}

	out := &Response{
		Content:      text.String(),
		FinishReason: string(resp.Candidates[0].FinishReason),
		Model:        c.cfg.Model,
		LatencyMs:    time.Since(start).Milliseconds(),
	}
	if resp.UsageMetadata != nil {
		out.TokensIn = int(resp.UsageMetadata.PromptTokenCount)
		out.TokensOut = int(resp.UsageMetadata.CandidatesTokenCount)
		out.Cost = EstimateCost(c.cfg.Model, out.TokensIn, out.TokensOut)
	}
	return out, nil
}

func (c *genaiClient) Provider() Provider { return GenAI }
func (c *genaiClient) Model() string      { return c.cfg.Model }
func (c *genaiClient) Close() error       { return nil }

func float32Ptr(v float64) *float32 {
	f := float32(v)
	return &f
}
