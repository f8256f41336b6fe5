package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/brizzai/rest-gateway/internal/requester"
	"go.uber.org/fx"
)

// Encoding selects how a request body is serialized.
type Encoding string

const (
	// EncodingAuto sends Body as JSON when it is non-nil and no body otherwise
	EncodingAuto Encoding = ""
	EncodingNone Encoding = "none"
	EncodingJSON Encoding = "json"
	EncodingForm Encoding = "form"
)

// Request describes a single gateway call. Nil maps mean "omit".
type Request struct {
	Path          string
	Method        string
	Body          any
	Encoding      Encoding
	Query         map[string]string
	PathVariables map[string]string
	Headers       map[string]string
}

// Service sends requests to downstream REST endpoints. out is the decode target
// for a success body and may be nil to discard it.
type Service interface {
	SendRequest(ctx context.Context, path string, body any, method string, queryParams, pathVariables, headers map[string]string, out any) error
	SendFormRequest(ctx context.Context, path string, body any, method string, queryParams, pathVariables, headers map[string]string, out any) error
	GetRequest(ctx context.Context, path string, queryParams, pathVariables, headers map[string]string, out any) error
	Do(ctx context.Context, req *Request, out any) error
}

// Client is the Service implementation. It holds no per-call state and is safe
// for concurrent use as long as its Transport is.
type Client struct {
	transport requester.Transport
	codec     Codec
}

type ClientParams struct {
	fx.In

	Transport requester.Transport
	Codec     Codec `optional:"true"`
}

var _ Service = (*Client)(nil)

func NewClient(params ClientParams) *Client {
	codec := params.Codec
	if codec == nil {
		codec = NewJSONCodec()
	}
	return &Client{
		transport: params.Transport,
		codec:     codec,
	}
}

// SendRequest sends body as JSON, or no body at all when body is nil.
func (c *Client) SendRequest(ctx context.Context, path string, body any, method string, queryParams, pathVariables, headers map[string]string, out any) error {
	return c.Do(ctx, &Request{
		Path:          path,
		Method:        method,
		Body:          body,
		Encoding:      EncodingJSON,
		Query:         queryParams,
		PathVariables: pathVariables,
		Headers:       headers,
	}, out)
}

// SendFormRequest sends body as an urlencoded form. body is required.
func (c *Client) SendFormRequest(ctx context.Context, path string, body any, method string, queryParams, pathVariables, headers map[string]string, out any) error {
	return c.Do(ctx, &Request{
		Path:          path,
		Method:        method,
		Body:          body,
		Encoding:      EncodingForm,
		Query:         queryParams,
		PathVariables: pathVariables,
		Headers:       headers,
	}, out)
}

// GetRequest sends a GET without a body.
func (c *Client) GetRequest(ctx context.Context, path string, queryParams, pathVariables, headers map[string]string, out any) error {
	return c.Do(ctx, &Request{
		Path:          path,
		Method:        http.MethodGet,
		Encoding:      EncodingNone,
		Query:         queryParams,
		PathVariables: pathVariables,
		Headers:       headers,
	}, out)
}

// Do performs req and decodes a success body into out.
func (c *Client) Do(ctx context.Context, req *Request, out any) error {
	if req == nil {
		return fmt.Errorf("request is nil")
	}

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return err
	}

	resp, err := c.transport.Do(httpReq)
	if err != nil {
		return err
	}

	if IsErrorStatus(resp.StatusCode) {
		return &GatewayError{
			Status: resp.StatusCode,
			Body:   string(resp.Body),
			Header: resp.Headers,
		}
	}

	return c.decode(resp.Body, out)
}

func (c *Client) buildRequest(ctx context.Context, req *Request) (*http.Request, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	uri, err := ResolveURI(req.Path, req.Query, req.PathVariables)
	if err != nil {
		return nil, err
	}
	target, err := c.transport.ResolveURL(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURI, err)
	}

	body, contentType, err := c.encodeBody(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURI, err)
	}

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	return httpReq, nil
}

// encodeBody returns a nil reader when no body frame should be sent.
func (c *Client) encodeBody(req *Request) (io.Reader, string, error) {
	absent := isNilBody(req.Body)
	encoding := req.Encoding
	if encoding == EncodingAuto {
		encoding = EncodingNone
		if !absent {
			encoding = EncodingJSON
		}
	}

	switch encoding {
	case EncodingNone:
		if !absent {
			return nil, "", fmt.Errorf("%w: body given with encoding %q", ErrEncodeBody, EncodingNone)
		}
		return nil, "", nil

	case EncodingJSON:
		if absent {
			return nil, "", nil
		}
		data, err := c.codec.Marshal(req.Body)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %w", ErrEncodeBody, err)
		}
		return bytes.NewReader(data), ContentTypeJSON, nil

	case EncodingForm:
		values, err := EncodeForm(c.codec, req.Body)
		if err != nil {
			return nil, "", err
		}
		return strings.NewReader(values.Encode()), ContentTypeForm, nil

	default:
		return nil, "", fmt.Errorf("%w: unknown encoding %q", ErrEncodeBody, encoding)
	}
}

// isNilBody reports a missing body: untyped nil, or a nil pointer, map, slice
// or interface hidden in the any.
func isNilBody(body any) bool {
	if body == nil {
		return true
	}
	switch v := reflect.ValueOf(body); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

func (c *Client) decode(body []byte, out any) error {
	if out == nil || len(body) == 0 {
		return nil
	}

	switch target := out.(type) {
	case *string:
		*target = string(body)
	case *[]byte:
		*target = append((*target)[:0], body...)
	default:
		if err := c.codec.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%w: %w", ErrDecodeResponse, err)
		}
	}
	return nil
}
