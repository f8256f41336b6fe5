package catalog

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/brizzai/rest-gateway/internal/gateway"
	"github.com/brizzai/rest-gateway/internal/logger"
	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Operation is one callable endpoint of an OpenAPI document
type Operation struct {
	ID          string
	Method      string
	Path        string
	Summary     string
	QueryParams []string
	PathParams  []string
	FormEncoded bool
}

// Request builds a gateway request for the operation. The body is sent as a
// form when the operation only accepts urlencoded forms, as JSON otherwise.
func (o *Operation) Request(body any, queryParams, pathVariables, headers map[string]string) *gateway.Request {
	encoding := gateway.EncodingAuto
	if o.FormEncoded {
		encoding = gateway.EncodingForm
	}
	return &gateway.Request{
		Path:          o.Path,
		Method:        o.Method,
		Body:          body,
		Encoding:      encoding,
		Query:         queryParams,
		PathVariables: pathVariables,
		Headers:       headers,
	}
}

// OpenAPICatalog indexes the operations of an OpenAPI 3 or Swagger 2 document
type OpenAPICatalog struct {
	doc        *openapi3.T
	operations map[string]*Operation
}

// NewOpenAPICatalog creates an empty catalog
func NewOpenAPICatalog() *OpenAPICatalog {
	return &OpenAPICatalog{
		operations: make(map[string]*Operation),
	}
}

// Load parses the document at path, JSON or YAML
func (c *OpenAPICatalog) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read spec file: %w", err)
	}
	return c.parse(data)
}

// ParseReader parses a document from a reader
func (c *OpenAPICatalog) ParseReader(reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read spec: %w", err)
	}
	return c.parse(data)
}

// Lookup returns the operation with the given id
func (c *OpenAPICatalog) Lookup(id string) (*Operation, error) {
	op, ok := c.operations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOperationNotFound, id)
	}
	return op, nil
}

// List returns all operations sorted by id
func (c *OpenAPICatalog) List() []*Operation {
	ops := make([]*Operation, 0, len(c.operations))
	for _, op := range c.operations {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].ID < ops[j].ID })
	return ops
}

func (c *OpenAPICatalog) parse(data []byte) error {
	// YAML is a superset of JSON, so one decoder covers both formats
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid OpenAPI document: %w", err)
	}

	swaggerVersion, hasSwagger := raw["swagger"]
	openapiVersion, hasOpenAPI := raw["openapi"]
	if !hasSwagger && !hasOpenAPI {
		return fmt.Errorf("document is missing 'swagger' or 'openapi' version field")
	}

	jsonData, err := json.Marshal(normalizeKeys(raw))
	if err != nil {
		return fmt.Errorf("failed to normalize OpenAPI document: %w", err)
	}

	var doc *openapi3.T
	if hasSwagger {
		doc, err = convertSwagger2(jsonData, swaggerVersion)
	} else {
		if ver, ok := openapiVersion.(string); !ok || !strings.HasPrefix(ver, "3.") {
			return fmt.Errorf("unsupported OpenAPI version: %v", openapiVersion)
		}
		doc, err = openapi3.NewLoader().LoadFromData(jsonData)
	}
	if err != nil {
		return fmt.Errorf("failed to parse OpenAPI spec: %w", err)
	}
	if doc == nil || doc.Paths == nil {
		return fmt.Errorf("failed to parse OpenAPI spec: document is empty")
	}

	c.doc = doc
	c.operations = make(map[string]*Operation)
	c.index()
	logger.Info("Loaded OpenAPI operations", zap.Int("count", len(c.operations)))
	return nil
}

func convertSwagger2(data []byte, swaggerVersion any) (*openapi3.T, error) {
	var swagger2Doc openapi2.T
	if err := json.Unmarshal(data, &swagger2Doc); err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI 2.0 spec: %w", err)
	}
	if swagger2Doc.Swagger != "2.0" {
		return nil, fmt.Errorf("unsupported Swagger version: %v", swaggerVersion)
	}

	logger.Debug("Detected OpenAPI 2.0 spec, converting to OpenAPI 3.0")
	doc, err := openapi2conv.ToV3(&swagger2Doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert OpenAPI 2.0 to 3.0: %w", err)
	}
	return doc, nil
}

func (c *OpenAPICatalog) index() {
	for path, pathItem := range c.doc.Paths.Map() {
		methods := []struct {
			Method    string
			Operation *openapi3.Operation
		}{
			{http.MethodGet, pathItem.Get},
			{http.MethodPost, pathItem.Post},
			{http.MethodPut, pathItem.Put},
			{http.MethodDelete, pathItem.Delete},
			{http.MethodPatch, pathItem.Patch},
		}

		for _, m := range methods {
			if m.Operation == nil {
				continue
			}
			op := newOperation(path, m.Method, pathItem.Parameters, m.Operation)
			if _, dup := c.operations[op.ID]; dup {
				logger.Warn("Duplicate operation id, keeping first", zap.String("id", op.ID))
				continue
			}
			c.operations[op.ID] = op
		}
	}
}

func newOperation(path, method string, shared openapi3.Parameters, operation *openapi3.Operation) *Operation {
	op := &Operation{
		ID:          operation.OperationID,
		Method:      method,
		Path:        path,
		Summary:     operation.Summary,
		PathParams:  gateway.PathPlaceholders(path),
		FormEncoded: formOnly(operation),
	}
	if op.ID == "" {
		op.ID = fallbackID(method, path)
	}
	if op.Summary == "" {
		op.Summary = operation.Description
	}

	seen := make(map[string]bool)
	for _, params := range []openapi3.Parameters{operation.Parameters, shared} {
		for _, param := range params {
			if param.Value == nil || param.Value.In != openapi3.ParameterInQuery || seen[param.Value.Name] {
				continue
			}
			seen[param.Value.Name] = true
			op.QueryParams = append(op.QueryParams, param.Value.Name)
		}
	}
	sort.Strings(op.QueryParams)
	return op
}

// formOnly reports an operation whose body accepts urlencoded forms but not JSON
func formOnly(operation *openapi3.Operation) bool {
	if operation.RequestBody == nil || operation.RequestBody.Value == nil {
		return false
	}
	content := operation.RequestBody.Value.Content
	_, hasForm := content[gateway.ContentTypeForm]
	_, hasJSON := content[gateway.ContentTypeJSON]
	return hasForm && !hasJSON
}

// fallbackID names an operation without operationId, e.g. "get_users_id"
func fallbackID(method, path string) string {
	p := strings.TrimPrefix(path, "/")
	p = strings.ReplaceAll(p, "/", "_")
	p = strings.ReplaceAll(p, "{", "")
	p = strings.ReplaceAll(p, "}", "")
	return strings.ToLower(fmt.Sprintf("%s_%s", method, p))
}

// normalizeKeys converts the map[interface{}]interface{} values yaml produces for
// non-string keys (e.g. response codes) into JSON-encodable maps.
func normalizeKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = normalizeKeys(item)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = normalizeKeys(item)
		}
		return out
	case []any:
		for i, item := range t {
			t[i] = normalizeKeys(item)
		}
		return t
	default:
		return v
	}
}
