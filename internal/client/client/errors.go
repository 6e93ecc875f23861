package client

import "errors"

var (
	// ErrUnavailable wraps transport failures: the server could not be
	// reached or did not answer.
	ErrUnavailable = errors.New("server unavailable")
	// ErrMalformedResponse is returned when a response cannot be decoded.
	ErrMalformedResponse = errors.New("malformed server response")
)
