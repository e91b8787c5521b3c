package splitter

import (
	"errors"
	"fmt"
)

// Kind sentinels. Match a failed split with errors.Is(err, ErrNoMarkers).
var (
	ErrInvalidInput = errors.New("input is empty or corrupted")
	ErrNoMarkers    = errors.New("no closing markers found")
	ErrWrite        = errors.New("failed to write output")
	ErrUnexpected   = errors.New("unexpected error")
)

// NoMarkersMessage is shown when a readable PDF has no closing marker.
const NoMarkersMessage = "No documents were found to split. Check if the PDF contains 'Page X of X' markers."

// SplitError is the single failure type returned by Split. Message is meant
// to be shown to the user verbatim.
type SplitError struct {
	Kind    error
	Message string
	Err     error
}

func (e *SplitError) Error() string {
	return e.Message
}

func (e *SplitError) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinel as well as the wrapped cause.
func (e *SplitError) Is(target error) bool {
	return target == e.Kind
}

func inputError(path string, err error) *SplitError {
	return &SplitError{
		Kind:    ErrInvalidInput,
		Message: fmt.Sprintf("The PDF %s is empty or corrupted: %v", path, err),
		Err:     err,
	}
}

func noMarkersError() *SplitError {
	return &SplitError{Kind: ErrNoMarkers, Message: NoMarkersMessage}
}

func writeError(path string, err error) *SplitError {
	return &SplitError{
		Kind:    ErrWrite,
		Message: fmt.Sprintf("Failed to write %s: %v", path, err),
		Err:     err,
	}
}

func unexpectedError(err error) *SplitError {
	return &SplitError{
		Kind:    ErrUnexpected,
		Message: fmt.Sprintf("An unexpected error occurred: %v", err),
		Err:     err,
	}
}

// KindName returns a short machine-readable name for err's kind, or "" when
// err is not a split failure.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNoMarkers):
		return "no_markers"
	case errors.Is(err, ErrWrite):
		return "write"
	case errors.Is(err, ErrUnexpected):
		return "unexpected"
	}
	return ""
}
