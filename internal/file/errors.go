package file

import "errors"

var (
	// ErrFileNotFound signals that the file is unknown, exhausted or only half present.
	ErrFileNotFound = errors.New("file not found")
	// ErrMissingKey rejects uploads without an identity key.
	ErrMissingKey = errors.New("missing identity key")
	// ErrInvalidDownloadLimit rejects a download limit that is not a positive integer.
	ErrInvalidDownloadLimit = errors.New("invalid download limit")
	// ErrStorage wraps blob store failures.
	ErrStorage = errors.New("storage error")
	// ErrPersistence wraps metadata store failures.
	ErrPersistence = errors.New("persistence error")
)
