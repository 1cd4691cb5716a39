package syncengine

import "errors"

// Error taxonomy surfaced to callers. None of these are retried
// internally; the UI decides whether to offer a retry.
var (
	// ErrAuthRequired means no authenticated session was supplied.
	ErrAuthRequired = errors.New("auth required")

	// ErrTransport wraps network/storage I/O failures talking to either
	// the remote document store or the local database.
	ErrTransport = errors.New("transport error")

	// ErrRemoteEmpty is returned when OVERWRITE_LOCAL is requested but no
	// remote document exists.
	ErrRemoteEmpty = errors.New("remote snapshot is empty")

	// ErrSyncFailed wraps any other failure during execution. Local rows
	// written by a failed merge are rolled back by the surrounding
	// transaction; a failed remote push after a committed merge is not.
	ErrSyncFailed = errors.New("sync failed")
)
