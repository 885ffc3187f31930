package eventstream

import "errors"

// ErrNilReadingEvent indicates a nil reading event payload was provided to a publisher.
var ErrNilReadingEvent = errors.New("nil reading event")
