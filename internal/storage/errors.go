package storage

import "errors"

var (
	// ErrStorageUnavailable means the configured root cannot be reached, for
	// example because the network share is not mounted. It is an
	// infrastructure fault and is logged apart from other failures.
	ErrStorageUnavailable = errors.New("video storage is unavailable")

	ErrInvalidDate     = errors.New("date folder must be formatted DD-MM-YYYY")
	ErrInvalidFilename = errors.New("invalid video file name")
	ErrVideoNotFound   = errors.New("video not found")
)
