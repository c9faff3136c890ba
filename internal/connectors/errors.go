package connectors

import (
	"fmt"
	"time"
)

// DefaultRetryAfter — пауза, когда провайдер не сообщил свою.
const DefaultRetryAfter = 5 * time.Second

type ThrottleError struct {
	RetryAfter time.Duration
	Cause      error
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("throttled: retry after %v (cause: %v)", e.RetryAfter, e.Cause)
}

func (e *ThrottleError) Unwrap() error {
	return e.Cause
}
