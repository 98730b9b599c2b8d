package repository

import "errors"

// Sentinel kinds for snapshot errors.
var (
	ErrCorruptSnapshot = errors.New("corrupt karma snapshot")
	ErrWriteSnapshot   = errors.New("write karma snapshot")
)
