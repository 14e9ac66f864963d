// Package taxonomy classifies pipeline errors by kind rather than by type
// name, matching the propagation policy every phase follows: ConfigMissing
// aborts the whole run, Transient is retried with backoff, InputInvalid
// fails only the owning item, StateConflict is treated as success, and
// IntegrityViolation is logged and skipped.
package taxonomy

import "errors"

// ConfigMissingError wraps a missing required setting or credential. A
// phase encountering one must abort the run immediately (exit code 2);
// never substitute a default.
type ConfigMissingError struct {
	Key string
	Err error
}

func (e *ConfigMissingError) Error() string {
	if e.Err != nil {
		return "config missing (" + e.Key + "): " + e.Err.Error()
	}
	return "config missing: " + e.Key
}

func (e *ConfigMissingError) Unwrap() error { return e.Err }

func NewConfigMissing(key string) *ConfigMissingError {
	return &ConfigMissingError{Key: key}
}

// TransientError wraps a retryable failure: network timeout, 5xx response,
// or rate limiting. Callers retry with exponential backoff up to a
// per-operation limit before giving up.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return "transient (" + e.Op + "): " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

func NewTransient(op string, err error) *TransientError {
	return &TransientError{Op: op, Err: err}
}

// InputInvalidError wraps a malformed single item: a bad RSS entry, an
// unplayable audio file, a schema-violating LLM response. The owning item
// is marked failed; its siblings continue processing.
type InputInvalidError struct {
	Reason string
	Err    error
}

func (e *InputInvalidError) Error() string {
	if e.Err != nil {
		return "invalid input (" + e.Reason + "): " + e.Err.Error()
	}
	return "invalid input: " + e.Reason
}

func (e *InputInvalidError) Unwrap() error { return e.Err }

func NewInputInvalid(reason string, err error) *InputInvalidError {
	return &InputInvalidError{Reason: reason, Err: err}
}

// StateConflictError wraps a unique-constraint violation hit on a re-run.
// Callers treat this as success, not failure — it is the expected shape of
// idempotent re-execution.
type StateConflictError struct {
	Err error
}

func (e *StateConflictError) Error() string { return "state conflict: " + e.Err.Error() }
func (e *StateConflictError) Unwrap() error { return e.Err }

func NewStateConflict(err error) *StateConflictError {
	return &StateConflictError{Err: err}
}

// ResourceExhaustedError wraps disk-full/OOM-class failures. The owning
// phase aborts and records the failure; Retention still runs afterward to
// try to free space.
type ResourceExhaustedError struct {
	Resource string
	Err      error
}

func (e *ResourceExhaustedError) Error() string {
	return "resource exhausted (" + e.Resource + "): " + e.Err.Error()
}
func (e *ResourceExhaustedError) Unwrap() error { return e.Err }

func NewResourceExhausted(resource string, err error) *ResourceExhaustedError {
	return &ResourceExhaustedError{Resource: resource, Err: err}
}

// IntegrityViolationError wraps a referential inconsistency discovered at
// read time, e.g. a digest referencing an episode id that no longer exists.
// The offending row is logged and skipped; the phase never crashes over it.
type IntegrityViolationError struct {
	Detail string
	Err    error
}

func (e *IntegrityViolationError) Error() string {
	if e.Err != nil {
		return "integrity violation (" + e.Detail + "): " + e.Err.Error()
	}
	return "integrity violation: " + e.Detail
}

func (e *IntegrityViolationError) Unwrap() error { return e.Err }

func NewIntegrityViolation(detail string, err error) *IntegrityViolationError {
	return &IntegrityViolationError{Detail: detail, Err: err}
}

// IsTransient reports whether err (or anything it wraps) is a TransientError.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// IsConfigMissing reports whether err (or anything it wraps) is a
// ConfigMissingError.
func IsConfigMissing(err error) bool {
	var c *ConfigMissingError
	return errors.As(err, &c)
}

// IsStateConflict reports whether err (or anything it wraps) is a
// StateConflictError.
func IsStateConflict(err error) bool {
	var s *StateConflictError
	return errors.As(err, &s)
}
