package match

import "errors"

// ErrInvalidConfig is returned for matcher settings that cannot produce a
// meaningful pass.
var ErrInvalidConfig = errors.New("match: invalid configuration")
