package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes used across the engine
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidState       = "INVALID_STATE"
	CodeConsistency        = "CONSISTENCY_ERROR"
	CodeTransactionTimeout = "TRANSACTION_TIMEOUT"
	CodeNotFound           = "NOT_FOUND"
	CodeConcurrency        = "CONCURRENCY_CONFLICT"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrency, "Resource was modified by another process")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrTransactionTimeout  = NewDomainError(CodeTransactionTimeout, "Workflow exceeded its bounded execution time")
)

// NewValidationError creates a validation error for malformed caller input.
// Validation errors are the caller's fault and are never retried.
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// NewConsistencyError creates a consistency error. A consistency error means
// an attempted mutation would violate a ledger invariant; it indicates a bug
// or a lock-discipline violation and always aborts the enclosing transaction.
func NewConsistencyError(message string) *DomainError {
	return NewDomainError(CodeConsistency, message)
}

// NewInvalidStateError creates an invalid-state error for a workflow
// transition attempted from a terminal or otherwise wrong state.
func NewInvalidStateError(message string) *DomainError {
	return NewDomainError(CodeInvalidState, message)
}
