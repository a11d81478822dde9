package beer

import "errors"

var (
	ErrNotFound     = errors.New("beer not found")
	ErrInvalidID    = errors.New("invalid beer id")
	ErrUnknownStyle = errors.New("unknown beer style")
)
