// Package faults defines the error taxonomy shared by ingestion, scoring,
// and merge: not-found references are skippable, storage failures escalate,
// adapter failures stay local to one candidate, and validation failures are
// rejected before anything is written.
package faults

import (
	"errors"
	"fmt"
)

// NotFoundError marks a referenced product or signal that no longer exists.
type NotFoundError struct {
	Kind string
	Ref  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Ref)
}

// StorageError wraps a persistence failure. The batch driver retries these;
// they are never swallowed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// AdapterError marks a source adapter failure for one candidate. Always
// caught at the per-candidate level; the batch continues.
type AdapterError struct {
	Source    string
	Candidate string
	Err       error
}

func (e *AdapterError) Error() string {
	if e.Candidate == "" {
		return fmt.Sprintf("adapter %s failed: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("adapter %s failed for %q: %v", e.Source, e.Candidate, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// ValidationError marks a malformed reading or an illegal state transition.
// Nothing is partially stored when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func NotFound(kind, ref string) error {
	return &NotFoundError{Kind: kind, Ref: ref}
}

func Storage(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

func Adapter(source, candidate string, err error) error {
	return &AdapterError{Source: source, Candidate: candidate, Err: err}
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsStorage(err error) bool {
	var target *StorageError
	return errors.As(err, &target)
}

func IsAdapter(err error) bool {
	var target *AdapterError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
