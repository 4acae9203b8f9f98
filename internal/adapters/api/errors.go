package api

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidURL      = errors.New("invalid url")
	ErrInvalidResponse = errors.New("invalid response")
	ErrNoData          = errors.New("no data")
	ErrDecoding        = errors.New("decoding error")
)

const (
	MsgAuthFailed   = "Authentication failed. Please log in again."
	MsgAuthRequired = "Authentication required. Please log in."
	MsgEncodeFailed = "Failed to encode request body"
)

// ErrAuthRequired is returned by authenticated calls made without a token.
var ErrAuthRequired error = &CustomError{Message: MsgAuthRequired}

// ServerError is a non-2xx response without a "detail" string.
// Body is kept so callers can decode e.g. 422 validation errors.
type ServerError struct {
	StatusCode int
	Body       []byte
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (%d)", e.StatusCode)
}

// CustomError carries a message meant for the user: transport failures,
// encoding failures, 401 and server-provided details.
type CustomError struct {
	Message string
	Err     error
}

func (e *CustomError) Error() string { return e.Message }
func (e *CustomError) Unwrap() error { return e.Err }

// Message turns any dispatcher error into a user-displayable string.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var custom *CustomError
	if errors.As(err, &custom) {
		return custom.Message
	}
	var srv *ServerError
	if errors.As(err, &srv) {
		return fmt.Sprintf("Server error (%d).", srv.StatusCode)
	}

	switch {
	case errors.Is(err, ErrInvalidURL):
		return "Invalid request address."
	case errors.Is(err, ErrInvalidResponse):
		return "The server returned an invalid response."
	case errors.Is(err, ErrNoData):
		return "The server response contained no data."
	case errors.Is(err, ErrDecoding):
		return "Could not process the server data."
	}
	return err.Error()
}
