package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidURI is returned when the request URI cannot be built
	ErrInvalidURI = errors.New("invalid request uri")
	// ErrMissingPathVariable is returned when a path placeholder has no value
	ErrMissingPathVariable = errors.New("missing path variable")
	// ErrMissingBody is returned by form requests sent without a body
	ErrMissingBody = errors.New("request body is required")
	// ErrEncodeBody is returned when the request body cannot be serialized
	ErrEncodeBody = errors.New("failed to encode request body")
	// ErrDecodeResponse is returned when a success body does not fit the target type
	ErrDecodeResponse = errors.New("failed to decode response body")
)

const maxErrorBodyInMessage = 512

// GatewayError is returned for every downstream response with a 4xx or 5xx
// status. Body holds the raw response text, undecoded.
type GatewayError struct {
	Status int
	Body   string
	Header http.Header
}

func (e *GatewayError) Error() string {
	body := e.Body
	if len(body) > maxErrorBodyInMessage {
		body = body[:maxErrorBodyInMessage] + "..."
	}
	if body == "" {
		return fmt.Sprintf("gateway: downstream responded %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("gateway: downstream responded %d %s: %s", e.Status, http.StatusText(e.Status), body)
}

// IsClientError reports a 4xx status
func (e *GatewayError) IsClientError() bool {
	return e.Status >= 400 && e.Status < 500
}

// IsServerError reports a 5xx status
func (e *GatewayError) IsServerError() bool {
	return e.Status >= 500 && e.Status < 600
}

// AsGatewayError unwraps err into a *GatewayError if it holds one.
func AsGatewayError(err error) (*GatewayError, bool) {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr, true
	}
	return nil, false
}

// IsErrorStatus reports whether a status code is classified as a gateway error.
func IsErrorStatus(code int) bool {
	return code >= 400 && code < 600
}
