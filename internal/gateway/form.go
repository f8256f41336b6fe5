package gateway

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
)

// EncodeForm flattens body into form values.
//
// url.Values, map[string]string and map[string][]string are used directly.
// Anything else is serialized with codec and flattened: nested object fields
// join with a dot ("address.city"), arrays of scalars repeat the key and
// arrays of objects are indexed ("items[0].sku"). Null fields are omitted.
// A nil body, including a typed nil pointer or map, is ErrMissingBody.
func EncodeForm(codec Codec, body any) (url.Values, error) {
	if isNilBody(body) {
		return nil, ErrMissingBody
	}

	switch b := body.(type) {
	case url.Values:
		return b, nil
	case map[string][]string:
		return url.Values(b), nil
	case map[string]string:
		values := make(url.Values, len(b))
		for k, v := range b {
			values.Set(k, v)
		}
		return values, nil
	}

	data, err := codec.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodeBody, err)
	}

	var tree any
	if err := formTreeAPI.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodeBody, err)
	}
	obj, ok := tree.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: form body must be an object, got %T", ErrEncodeBody, body)
	}

	values := url.Values{}
	flattenObject("", obj, values)
	return values, nil
}

func flattenObject(prefix string, obj map[string]any, values url.Values) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		flattenValue(key, obj[k], values)
	}
}

func flattenValue(key string, v any, values url.Values) {
	switch t := v.(type) {
	case nil:
	case map[string]any:
		flattenObject(key, t, values)
	case []any:
		if allScalar(t) {
			for _, item := range t {
				if item != nil {
					values.Add(key, scalarString(item))
				}
			}
			return
		}
		for i, item := range t {
			flattenValue(key+"["+strconv.Itoa(i)+"]", item, values)
		}
	default:
		values.Add(key, scalarString(t))
	}
}

func allScalar(items []any) bool {
	for _, item := range items {
		switch item.(type) {
		case map[string]any, []any:
			return false
		}
	}
	return true
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
