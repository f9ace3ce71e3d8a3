package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"promptiq/m/v2/app/lib"

	"google.golang.org/genai"
)

var quotaMarkers = []string{"quota", "rate limit", "resource exhausted", "resource_exhausted", "429"}

// classifyError maps provider failures onto lib sentinels so callers only need errors.Is.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, lib.ErrProviderQuotaExceeded) || errors.Is(err, lib.ErrGenerationFailed) {
		return err
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED" {
			return fmt.Errorf("%w: %s", lib.ErrProviderQuotaExceeded, apiErr.Message)
		}
		return fmt.Errorf("%w: gemini %d %s: %s", lib.ErrGenerationFailed, apiErr.Code, apiErr.Status, apiErr.Message)
	}

	message := strings.ToLower(err.Error())
	for _, marker := range quotaMarkers {
		if strings.Contains(message, marker) {
			return fmt.Errorf("%w: %v", lib.ErrProviderQuotaExceeded, err)
		}
	}
	return fmt.Errorf("%w: %v", lib.ErrGenerationFailed, err)
}
