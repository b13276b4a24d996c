package llm

import "os"

// APIKeyEnvVars lists the environment variables consulted for the API key,
// in priority order.
var APIKeyEnvVars = []string{"GEMINI_API_KEY", "LLM_API_KEY"}

// APIKeyFromEnv returns the first non-empty API key from APIKeyEnvVars.
func APIKeyFromEnv() string {
	for _, key := range APIKeyEnvVars {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// WithModel returns a copy of cfg targeting model.
func (cfg Config) WithModel(model string) Config {
	cfg.Model = model
	return cfg
}
