package api

import "fmt"

// Error is an application-level failure: the backend answered with a non-ok
// payload. Its message is surfaced to the user verbatim and the command is
// not retried.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend rejected request (status %d)", e.StatusCode)
	}
	return e.Message
}
