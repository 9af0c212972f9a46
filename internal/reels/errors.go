package reels

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound reports that no reel exists under the requested id.
var ErrNotFound = errors.New("reel not found")

// ValidationError reports a missing or malformed caller-supplied input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validationErr(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Pipeline stages, used to label dependency failures.
const (
	StageUpload    = "upload"
	StageTranscode = "transcode"
	StagePersist   = "persist"
	StageList      = "list"
	StageLike      = "like"
)

// DependencyError reports a failed call to one of the downstream services.
// Timeout is set when the call exceeded its bound rather than being rejected.
type DependencyError struct {
	Stage   string
	Timeout bool
	Err     error
}

func (e *DependencyError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s timed out: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

func dependencyErr(stage string, err error) error {
	return &DependencyError{
		Stage:   stage,
		Timeout: errors.Is(err, context.DeadlineExceeded),
		Err:     err,
	}
}
