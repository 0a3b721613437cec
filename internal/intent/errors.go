package intent

import (
	"fmt"
	"strings"
)

// ServiceError represents a failed HTTP exchange with the analysis service or
// a resolved backend endpoint.
type ServiceError struct {
	Op         string // "start", "analyze" or "execute"
	StatusCode int
	Reason     string
	Cause      error
}

func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("intent %s failed: %s: %v", e.Op, e.Reason, e.Cause)
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("intent %s failed (HTTP %d): %s", e.Op, e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("intent %s failed: %s", e.Op, e.Reason)
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// SessionInvalid reports whether the failure means the conversation session
// expired on the service side. The service answers 403 for stale sessions,
// and some deployments return 4xx with a message naming the conversation.
func (e *ServiceError) SessionInvalid() bool {
	if e.Op != "analyze" {
		return false
	}
	if e.StatusCode == 403 {
		return true
	}
	return strings.Contains(strings.ToLower(e.Reason), "conversation")
}
