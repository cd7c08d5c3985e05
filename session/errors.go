package session

import "errors"

// Failure taxonomy surfaced at the workflow boundary. Every kind resets the
// session to the empty phase; none is retried.
var (
	ErrCredential = errors.New("credential rejected")
	ErrExtraction = errors.New("document extraction failed")
	ErrIndex      = errors.New("index build failed")
	ErrGeneration = errors.New("generation call failed")
)
