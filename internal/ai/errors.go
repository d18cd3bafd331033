package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrCredentialExpired = errors.New("credential expired or rejected")
	ErrAnalysisFailed    = errors.New("script analysis failed")
	ErrStoryboardFailed  = errors.New("storyboard generation failed")
	ErrVideoFailed       = errors.New("video generation failed")
)

// credentialExpiredMarker is the message fragment the backend returns once an
// ephemeral API session stops existing.
const credentialExpiredMarker = "Requested entity was not found"

// classifyBackendError maps a backend failure onto the package sentinels so
// callers match with errors.Is instead of sniffing message strings.
func classifyBackendError(status int, message string) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden ||
		strings.Contains(message, credentialExpiredMarker) {
		return fmt.Errorf("%w: %s", ErrCredentialExpired, message)
	}
	return fmt.Errorf("backend error: %s", message)
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
