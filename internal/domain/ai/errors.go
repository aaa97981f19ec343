package ai

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrNotConfigured is returned when no model client was wired (missing API key).
var ErrNotConfigured = errors.New("ai client not configured")

// ErrUnauthorized indicates the provider rejected the credentials (HTTP 401/403).
var ErrUnauthorized = errors.New("ai credentials rejected")

// ErrEmptyReply indicates the model answered without any content, e.g. a
// reasoning model that spent its whole token budget.
var ErrEmptyReply = errors.New("model returned an empty reply")

// ErrTimeout indicates the model call did not complete in time.
var ErrTimeout = errors.New("ai request timed out")
