package s3vkit

import (
	"errors"
	"fmt"

	"github.com/hupe1980/s3vkit/config"
	"github.com/hupe1980/s3vkit/vectorstore"
)

// Stage names the workflow step an error originated from.
type Stage string

const (
	// StageProvision covers bucket and index creation.
	StageProvision Stage = "provision"
	// StageWrite covers vector insertion.
	StageWrite Stage = "write"
	// StageQuery covers similarity queries.
	StageQuery Stage = "query"
	// StageCleanup covers deletion of written vectors.
	StageCleanup Stage = "cleanup"
)

var (
	// ErrConfig is returned for missing or malformed configuration.
	ErrConfig = config.ErrConfig

	// ErrValidation is returned when input is rejected client side, before
	// any request is sent (dimension mismatch, malformed filter, bad keys).
	ErrValidation = errors.New("validation error")

	// ErrProvision matches failures of the provision stage.
	ErrProvision = errors.New("provision error")

	// ErrWrite matches failures of the write stage.
	ErrWrite = errors.New("write error")

	// ErrQuery matches failures of the query stage.
	ErrQuery = errors.New("query error")

	// ErrCleanup matches failures of the cleanup stage.
	ErrCleanup = errors.New("cleanup error")

	// ErrTransient matches timeouts, throttling and temporary unavailability.
	// Such failures are eligible for a caller-side retry; they are never
	// retried by this package.
	ErrTransient = vectorstore.ErrTransient

	// ErrIndexMismatch is returned when an existing index has a different
	// layout than requested.
	ErrIndexMismatch = errors.New("existing index does not match requested layout")

	// ErrFilterMismatch is returned when returned matches do not satisfy the
	// query filter on client-side verification.
	ErrFilterMismatch = errors.New("results do not satisfy filter")
)

func (s Stage) sentinel() error {
	switch s {
	case StageProvision:
		return ErrProvision
	case StageWrite:
		return ErrWrite
	case StageQuery:
		return ErrQuery
	case StageCleanup:
		return ErrCleanup
	default:
		return nil
	}
}

// StageError reports a failure together with the stage and operation that
// produced it.
//
// errors.Is matches the stage sentinel (ErrProvision, ErrWrite, ErrQuery,
// ErrCleanup). The underlying cause can be accessed via errors.Unwrap, so
// ErrValidation and ErrTransient match through the chain as well.
type StageError struct {
	Stage Stage
	Op    string
	cause error
}

func newStageError(stage Stage, op string, cause error) *StageError {
	return &StageError{Stage: stage, Op: op, cause: cause}
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Op, e.cause)
}

func (e *StageError) Unwrap() error { return e.cause }

// Is reports whether target is the sentinel of e's stage.
func (e *StageError) Is(target error) bool {
	s := e.Stage.sentinel()
	return s != nil && target == s
}

// ErrDimensionMismatch indicates a vector whose length differs from the
// index dimension. It matches ErrValidation.
type ErrDimensionMismatch struct {
	Key      string
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
	}
	return fmt.Sprintf("dimension mismatch for %q: expected %d, got %d", e.Key, e.Expected, e.Actual)
}

// Is reports whether target is ErrValidation.
func (e *ErrDimensionMismatch) Is(target error) bool { return target == ErrValidation }

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
