package docmodel

import "errors"

var (
	// ErrPageOutOfRange is returned for a page index outside the document.
	ErrPageOutOfRange = errors.New("docmodel: page index out of range")

	// ErrUnknownResource is returned when an image is requested for an
	// identifier the document does not know.
	ErrUnknownResource = errors.New("docmodel: unknown resource")
)
