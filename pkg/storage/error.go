package storage

import "errors"

// ErrNilReading is returned by Put for a nil reading.
var ErrNilReading = errors.New("cannot store nil reading")

// NotFoundError is returned when a reading doesn't exist in the store.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return "reading not found"
	}

	return "reading not found: " + e.ID
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
