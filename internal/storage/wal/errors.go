package wal

import (
	"errors"
	"fmt"
)

var (
	// ErrWALClosed is returned by Enqueue once the batching writer has shut down.
	ErrWALClosed = errors.New("wal: writer closed")
	// ErrNoAvailableSlot is returned only if a pool was constructed with zero slots.
	ErrNoAvailableSlot = errors.New("wal: pool has no slots")
)

// DecodeError reports a malformed record at a specific byte offset within a
// segment. It is not returned for an incomplete trailing record; that case
// is represented by Next returning ok=false with a nil error.
type DecodeError struct {
	Offset int64
	Cause  string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("wal: decode error at offset %d: %s", e.Offset, e.Cause)
}

func (e *DecodeError) Unwrap() error { return errDecode }

var errDecode = errors.New("wal: malformed record")
