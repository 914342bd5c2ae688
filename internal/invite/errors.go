package invite

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound indicates the invitation does not exist.
	ErrNotFound = errors.New("invitation not found")
	// ErrRevoked indicates the invitation was revoked. This is checked
	// against storage independently of token validity: a cryptographically
	// valid token cannot be invalidated by signature alone.
	ErrRevoked = errors.New("invitation revoked")
	// ErrAlreadyRevoked indicates a double revoke.
	ErrAlreadyRevoked = errors.New("invitation already revoked")
	// ErrCompleted indicates a transition attempted on a completed
	// invitation; completed is terminal alongside revoked.
	ErrCompleted = errors.New("invitation already completed")
	// ErrRateLimited indicates the caller exceeded its window budget.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// RateLimitedError carries the retry hint for a denied call. It matches
// ErrRateLimited under errors.Is.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

func (e *RateLimitedError) Is(target error) bool { return target == ErrRateLimited }
