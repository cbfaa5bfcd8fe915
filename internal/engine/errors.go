package engine

import "errors"

// ErrConfiguration marks invalid session configuration: unsupported
// quantization, missing repository identifiers. Reported before any model
// work starts.
var ErrConfiguration = errors.New("invalid configuration")

// ErrModel marks a failure raised by the frame producer itself. Fatal; the
// session does not retry inference.
var ErrModel = errors.New("model inference failed")
