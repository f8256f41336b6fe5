package catalog

import (
	"fmt"
	"os"
	"sort"

	"github.com/brizzai/rest-gateway/internal/gateway"
	"gopkg.in/yaml.v3"
)

// RequestSpec is a named request as written in a requests file
type RequestSpec struct {
	Path          string            `yaml:"path"`
	Method        string            `yaml:"method,omitempty"`
	Encoding      string            `yaml:"encoding,omitempty"`
	Query         map[string]string `yaml:"query,omitempty"`
	PathVariables map[string]string `yaml:"path_variables,omitempty"`
	Headers       map[string]string `yaml:"headers,omitempty"`
	Body          any               `yaml:"body,omitempty"`
}

// RequestFile is a set of named requests:
//
//	requests:
//	  get-user:
//	    path: /users/{id}
//	    path_variables: {id: "7"}
type RequestFile struct {
	Requests map[string]RequestSpec `yaml:"requests"`
}

// LoadRequestFile reads and validates a requests file
func LoadRequestFile(path string) (*RequestFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read requests file: %w", err)
	}

	var file RequestFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse requests file %s: %w", path, err)
	}

	for name, spec := range file.Requests {
		if spec.Path == "" {
			return nil, fmt.Errorf("request %q: path is required", name)
		}
		if _, err := parseEncoding(spec.Encoding); err != nil {
			return nil, fmt.Errorf("request %q: %w", name, err)
		}
	}
	return &file, nil
}

// Names returns the request names in sorted order
func (f *RequestFile) Names() []string {
	names := make([]string, 0, len(f.Requests))
	for name := range f.Requests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the named request as a gateway request
func (f *RequestFile) Lookup(name string) (*gateway.Request, error) {
	spec, ok := f.Requests[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRequestNotFound, name)
	}
	encoding, err := parseEncoding(spec.Encoding)
	if err != nil {
		return nil, err
	}

	return &gateway.Request{
		Path:          spec.Path,
		Method:        spec.Method,
		Body:          normalizeKeys(spec.Body),
		Encoding:      encoding,
		Query:         spec.Query,
		PathVariables: spec.PathVariables,
		Headers:       spec.Headers,
	}, nil
}

func parseEncoding(s string) (gateway.Encoding, error) {
	switch e := gateway.Encoding(s); e {
	case gateway.EncodingAuto, gateway.EncodingNone, gateway.EncodingJSON, gateway.EncodingForm:
		return e, nil
	default:
		return "", fmt.Errorf("unknown encoding %q", s)
	}
}
