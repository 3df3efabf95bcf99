package matcherrors

import "errors"

// Sentinel errors shared by config, input, api and game so none of them has to
// import another just to compare errors.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrKeyConflict   = errors.New("key bound more than once")
	ErrUnknownPlayer = errors.New("unknown player")
)
