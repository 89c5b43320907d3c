package util

import "github.com/google/uuid"

// NewID returns a new UUID string used to correlate runs, events and
// function calls across the framework.
func NewID() string { return uuid.NewString() }
