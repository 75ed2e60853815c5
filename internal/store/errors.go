package store

import "errors"

var (
	// ErrNotFound is returned when a requested record is not found
	ErrNotFound = errors.New("not found")

	// ErrNoArtifact is returned when a user has no trained optimizer artifact
	ErrNoArtifact = errors.New("no artifact")
)
