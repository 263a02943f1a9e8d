package run

import "errors"

// ErrMissingInput reports a required slot with no usable source. The run
// aborts before the external program is invoked.
var ErrMissingInput = errors.New("missing required input")

// ErrAmbiguousInput reports a slot with both a local path and a storage key
// while strict slot validation is enabled. The default policy resolves the
// ambiguity by precedence instead (storage key wins).
var ErrAmbiguousInput = errors.New("ambiguous input: both path and key set")
