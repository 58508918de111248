package graphicsstate

import "errors"

var (
	// ErrStackUnderflow is returned by Pop when no q scope is open.
	ErrStackUnderflow = errors.New("graphicsstate: graphics state stack underflow")

	// ErrUnmatchedMarked is returned by PopMarked when no marked-content
	// scope is open.
	ErrUnmatchedMarked = errors.New("graphicsstate: EMC without matching BMC/BDC")
)
