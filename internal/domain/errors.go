package domain

import "errors"

var (
	// ErrDecode is returned when raw capture data cannot be decoded as an image
	ErrDecode = errors.New("image could not be decoded")

	// ErrEncode is returned when the normalized image cannot be re-encoded
	ErrEncode = errors.New("image could not be encoded")

	// ErrRequestFailed is returned when the inference request fails in transport,
	// at the server, or with a response that breaks the response invariants
	ErrRequestFailed = errors.New("inference request failed")

	// ErrInvalidParams is returned when inference parameters are out of range
	ErrInvalidParams = errors.New("invalid inference parameters")

	// ErrPreviewNotFound is returned when a preview ref is unknown, revoked or expired
	ErrPreviewNotFound = errors.New("preview not found")
)

// RequestError carries the best available human-readable diagnostic for a
// failed inference request. It matches ErrRequestFailed with errors.Is.
type RequestError struct {
	StatusCode int    // 0 when no HTTP response was received
	Message    string // server-provided message or generic transport message
	Err        error
}

// Error returns the human-readable message.
func (e *RequestError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return ErrRequestFailed.Error()
}

// Unwrap exposes the transport cause.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrRequestFailed.
func (e *RequestError) Is(target error) bool {
	return target == ErrRequestFailed
}
