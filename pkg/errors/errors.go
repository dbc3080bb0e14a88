package errors

import "errors"

// ErrOptimisticLock reports that a row changed between read and conditional write.
// It never leaves the service layer: callers re-read and retry.
var ErrOptimisticLock = errors.New("record was modified concurrently")
