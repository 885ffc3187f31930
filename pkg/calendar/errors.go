package calendar

import (
	"errors"
	"fmt"
	"strings"
)

// ErrGateway is matched by every GatewayError via errors.Is.
var ErrGateway = errors.New("calendar gateway error")

// GatewayError reports a failed calendar lookup. Exactly one of StatusCode,
// Code or Err usually explains the failure; Msg carries the service's message
// or a description of the malformed payload.
type GatewayError struct {
	Op         string
	StatusCode int
	Code       int
	Msg        string
	Err        error
}

func (e *GatewayError) Error() string {
	var b strings.Builder
	b.WriteString("calendar ")
	b.WriteString(e.Op)
	b.WriteString(":")

	switch {
	case e.StatusCode != 0:
		fmt.Fprintf(&b, " http status %d", e.StatusCode)
	case e.Code != 0:
		fmt.Fprintf(&b, " api code %d", e.Code)
	}
	if e.Msg != "" {
		b.WriteString(" ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Is makes every GatewayError match ErrGateway.
func (e *GatewayError) Is(target error) bool { return target == ErrGateway }
