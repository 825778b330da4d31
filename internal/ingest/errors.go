package ingest

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// FailureClass buckets pipeline failures so the governor and run report can
// act on them without inspecting source-specific detail.
type FailureClass string

// Failure classes, ordered roughly by severity.
const (
	// ClassTransient covers timeouts and network flakes; retried with backoff.
	ClassTransient FailureClass = "transient"
	// ClassBlocked marks an explicit anti-bot challenge; retried only after a
	// forced identity rotation and a longer cool-down.
	ClassBlocked FailureClass = "blocked"
	// ClassStructural signals expected anchors are gone, i.e. a likely site
	// layout change. Never retried within a run; needs a human.
	ClassStructural FailureClass = "structural"
	// ClassEmptyResult is a zero-yield page load, not a failure.
	ClassEmptyResult FailureClass = "empty_result"
	// ClassEmptyContent is an item whose cleaned text came out empty.
	ClassEmptyContent FailureClass = "empty_content"
	// ClassTranslation is a provider failure; retried on the next run.
	ClassTranslation FailureClass = "translation_unavailable"
	// ClassPersistence is a store failure; unrecoverable instances abort the run.
	ClassPersistence FailureClass = "persistence"
)

// ClassifiedError wraps a cause with its failure class.
type ClassifiedError struct {
	Class FailureClass
	Err   error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Class, e.Err)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retryable transient failure.
func Transient(err error) error {
	return &ClassifiedError{Class: ClassTransient, Err: err}
}

// Blocked wraps err as an anti-bot block.
func Blocked(err error) error {
	return &ClassifiedError{Class: ClassBlocked, Err: err}
}

// Structural wraps err as a layout-change failure.
func Structural(err error) error {
	return &ClassifiedError{Class: ClassStructural, Err: err}
}

// EmptyResult marks a page that loaded but yielded no extractable items.
func EmptyResult(msg string) error {
	return &ClassifiedError{Class: ClassEmptyResult, Err: errors.New(msg)}
}

// EmptyContent marks an item whose cleaned text is empty after stripping.
func EmptyContent(msg string) error {
	return &ClassifiedError{Class: ClassEmptyContent, Err: errors.New(msg)}
}

// TranslationUnavailable wraps a translation provider failure.
func TranslationUnavailable(err error) error {
	return &ClassifiedError{Class: ClassTranslation, Err: err}
}

// PersistenceFailure wraps a store-level failure.
func PersistenceFailure(err error) error {
	return &ClassifiedError{Class: ClassPersistence, Err: err}
}

// Classify returns the failure class of err. Unwrapped network timeouts and
// context deadlines classify as transient; anything unknown does too, so the
// governor errs toward retrying rather than dropping.
func Classify(err error) FailureClass {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTransient
	}
	return ClassTransient
}

// IsClass reports whether err carries the given failure class.
func IsClass(err error, class FailureClass) bool {
	return err != nil && Classify(err) == class
}

// IsZeroYield reports whether err is an empty-result or empty-content outcome,
// which count in the report but are not failures.
func IsZeroYield(err error) bool {
	c := Classify(err)
	return c == ClassEmptyResult || c == ClassEmptyContent
}
