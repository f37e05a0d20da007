package store

import "errors"

// ErrNotFound is returned when a requested row does not exist. For user
// lookups it distinguishes "never seen" from "explicitly reset to neutral";
// callers that treat absence as a valid state map it themselves.
var ErrNotFound = errors.New("not found")
