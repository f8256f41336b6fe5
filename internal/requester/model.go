package requester

import (
	"errors"
	"net/http"
)

// ErrTransport wraps every failure to get a response from the downstream service.
var ErrTransport = errors.New("request failed")

// Transport issues one HTTP request and returns the fully read response.
// Implementations must be safe for concurrent use.
type Transport interface {
	// ResolveURL turns a resolved gateway URI into an absolute request URL
	ResolveURL(uri string) (string, error)
	// Do executes the request without interpreting the status code
	Do(req *http.Request) (*Response, error)
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}
