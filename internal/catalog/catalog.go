// Package catalog provides named request templates for the gateway, read from
// OpenAPI/Swagger documents or from YAML request files.
package catalog

import "errors"

var (
	// ErrOperationNotFound is returned for an unknown OpenAPI operation id
	ErrOperationNotFound = errors.New("operation not found")
	// ErrRequestNotFound is returned for an unknown request name
	ErrRequestNotFound = errors.New("request not found")
)
