package types

import "errors"

// Domain errors for validation
var (
	ErrInvalidMetadata = errors.New("invalid metadata")
	ErrInvalidChunk    = errors.New("invalid chunk")
	ErrEmptyContent    = errors.New("content cannot be empty")
	ErrEmptyVector     = errors.New("vector cannot be empty")
)
