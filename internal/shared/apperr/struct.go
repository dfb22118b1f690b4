package apperr

type Kind string

// Advice is user-facing guidance attached to a failure. It is surfaced
// verbatim in the JSON error envelope; callers branch on Retryable to decide
// whether to offer a retry affordance.
type Advice struct {
	Suggestion string
	Action     string // "retry" | "fix_funding" | "fix_recipient" | "contact_support" | "none"
	Severity   string // "warning" | "error"
	Retryable  bool
}

type AppError struct {
	Kind      Kind
	Code      string            // short machine code (provider error code when known)
	PublicMsg string            // safe to show to the caller
	Fields    map[string]string // field-level validation errors (optional)
	Advice    Advice            // envelope guidance; zero value gets defaults
	Err       error             // internal error (for logs)
}
