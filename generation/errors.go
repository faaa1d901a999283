package generation

import (
	"errors"
	"fmt"
)

// ErrUpstream wraps transport failures and non-2xx replies from the
// generation service.
var ErrUpstream = errors.New("generation service request failed")

// ParseError reports a reply that could not be turned into a record. Raw
// holds the reply text for diagnostics.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse generation response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
