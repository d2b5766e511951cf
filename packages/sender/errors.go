package sender

import "errors"

var (
	// ErrConfiguration marks store lookups and transport construction
	// failures. These are returned from Send.
	ErrConfiguration = errors.New("configuration error")
	ErrRender        = errors.New("render failed")
	ErrURL           = errors.New("invalid url")
	ErrNetwork       = errors.New("network error")
	ErrBodyRead      = errors.New("body read failed")
	ErrStream        = errors.New("response stream failed")
	ErrAuth          = errors.New("authentication failed")
	// ErrCancelled is recorded when the caller cancels a send.
	ErrCancelled = errors.New("Request was cancelled")
)

const ephemeralCancelled = "Ephemeral request was cancelled"

// sendError keeps the message of err while matching kind with errors.Is.
type sendError struct {
	kind error
	err  error
}

func (e *sendError) Error() string   { return e.err.Error() }
func (e *sendError) Unwrap() []error { return []error{e.kind, e.err} }

func wrap(kind, err error) error {
	if err == nil {
		return nil
	}
	return &sendError{kind: kind, err: err}
}
