package core

import (
	"errors"
)

var (
	ErrInvalidPath         = errors.New("invalid source file path")
	ErrUnsupportedFormat   = errors.New("unsupported source file format")
	ErrEmptyGeometry       = errors.New("source file contains no geometry")
	ErrCannotAllocateChunk = errors.New("cannot allocate asset chunk")
	ErrUnknown             = errors.New("unknown")
)
