package repository

import "errors"

// ErrStaleWrite is returned when a conditional update matched no row because
// the stored record no longer satisfies the write precondition.
var ErrStaleWrite = errors.New("stale write")
