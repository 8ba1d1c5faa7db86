package generation

import "fmt"

// ValidationError reports malformed input, rejected before any side effect.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// AgentAccessDeniedError reports an agent that does not exist or is not
// owned by the caller. Raised before any provider call.
type AgentAccessDeniedError struct {
	AgentID string
	UserID  string
}

func (e *AgentAccessDeniedError) Error() string {
	return fmt.Sprintf("agent %s not accessible by user %s", e.AgentID, e.UserID)
}

// ProviderUnavailableError reports a resolved provider with no configured
// adapter, typically because its credentials were absent at startup.
type ProviderUnavailableError struct {
	Provider string
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("provider %s is not configured", e.Provider)
}

// ProviderError wraps an upstream API failure: timeout, auth rejection,
// rate limiting. The wrapped error is the adapter's original error.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// PersistenceError wraps a datastore failure while writing a Generation
// or incrementing Agent usage.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
