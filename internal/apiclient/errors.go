package apiclient

import "fmt"

const DefaultErrorMessage = "request failed"

// Error is returned by every Client method. Transport, HTTP status and
// decoding failures all surface as this one type; Status is zero when no
// response was received.
type Error struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, DefaultErrorMessage)
	}
	return DefaultErrorMessage
}

func (e *Error) Unwrap() error {
	return e.Err
}
