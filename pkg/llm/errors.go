package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// APIError is a non-success reply from a provider endpoint.
type APIError struct {
	Provider   Provider
	StatusCode int
	Status     string // provider status, e.g. "RESOURCE_EXHAUSTED"
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%s API error (%d %s): %s", e.Provider, e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.StatusCode, e.Message)
}

// quotaMessage is the text Gemini puts in 429 replies.
const quotaMessage = "resource has been exhausted"

// IsQuotaExhausted reports whether err signals that the current model has
// run out of quota. Other rate-limit-like failures (5xx, timeouts) are not
// quota errors.
func IsQuotaExhausted(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED"
	}

	var sdkErr genai.APIError
	if errors.As(err, &sdkErr) {
		return sdkErr.Code == http.StatusTooManyRequests || sdkErr.Status == "RESOURCE_EXHAUSTED"
	}
	var sdkErrPtr *genai.APIError
	if errors.As(err, &sdkErrPtr) && sdkErrPtr != nil {
		return sdkErrPtr.Code == http.StatusTooManyRequests || sdkErrPtr.Status == "RESOURCE_EXHAUSTED"
	}

	return strings.Contains(strings.ToLower(err.Error()), quotaMessage)
}

// isRetryableError determines if an error is a transient failure worth
// retrying on the same model. Quota exhaustion is excluded:
// callers handle it by switching models.
func isRetryableError(err error) bool {
	if err == nil || IsQuotaExhausted(err) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}

	errStr := strings.ToLower(err.Error())
	for _, keyword := range []string{"500", "502", "503", "timeout", "connection reset"} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}
