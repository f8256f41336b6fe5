package gateway

import (
	jsoniter "github.com/json-iterator/go"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// Codec serializes request bodies and deserializes success responses.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec is the default Codec, backed by json-iterator in its
// encoding/json compatible mode so struct tags behave as usual.
type JSONCodec struct {
	api jsoniter.API
}

func NewJSONCodec() *JSONCodec {
	return &JSONCodec{api: jsoniter.ConfigCompatibleWithStandardLibrary}
}

func (c *JSONCodec) Marshal(v any) ([]byte, error) {
	return c.api.Marshal(v)
}

func (c *JSONCodec) Unmarshal(data []byte, v any) error {
	return c.api.Unmarshal(data, v)
}

// formTreeAPI decodes numbers as json.Number so form values keep their exact text.
var formTreeAPI = jsoniter.Config{
	EscapeHTML: true,
	UseNumber:  true,
}.Froze()
