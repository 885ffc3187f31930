package bazi

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedPillar is matched by MalformedPillarError.
	ErrMalformedPillar = errors.New("malformed stem-branch string")

	// ErrUnknownStem is matched by UnknownStemError.
	ErrUnknownStem = errors.New("unknown heavenly stem")

	// ErrBirthOutOfRange is returned for birth years outside 1900-2100.
	ErrBirthOutOfRange = errors.New("birth year must be between 1900 and 2100")
)

// MalformedPillarError reports a stem-branch string shorter than two characters.
type MalformedPillarError struct {
	Value string
}

func (e *MalformedPillarError) Error() string {
	return fmt.Sprintf("malformed stem-branch string %q: need at least 2 characters", e.Value)
}

func (e *MalformedPillarError) Unwrap() error {
	return ErrMalformedPillar
}

// UnknownStemError reports a day stem outside the ten-stem alphabet.
type UnknownStemError struct {
	Stem string
}

func (e *UnknownStemError) Error() string {
	return fmt.Sprintf("unknown heavenly stem %q", e.Stem)
}

func (e *UnknownStemError) Unwrap() error {
	return ErrUnknownStem
}
