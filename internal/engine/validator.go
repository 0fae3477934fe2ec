package engine

import "github.com/nsridhar76/go-orderflow/internal/domain"

// ValidationResult is a validator's verdict on a transition attempt.
type ValidationResult struct {
	Passed bool
	Reason string
}

// Passed returns a passing result.
func Passed() ValidationResult { return ValidationResult{Passed: true} }

// Failed returns a failing result with an optional human-readable reason.
func Failed(reason string) ValidationResult { return ValidationResult{Reason: reason} }

// Validator inspects the aggregate snapshot before a transition is applied.
// Registered per transition kind; a kind with no validator always passes.
type Validator func(order domain.Order) ValidationResult
