package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// and services translate them into domain errors:
//   - ErrNotFound: no row in the visibility set the caller asked for
//   - ErrConflict: a uniqueness constraint rejected the write
//   - ErrInvalidInput: the storage engine rejected the values (not null, check, length)
//   - ErrUnavailable: the storage engine could not be reached
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("unavailable")
)
