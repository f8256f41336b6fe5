package gateway

import (
	"fmt"
	"net/url"
	"strings"
)

// placeholder is one {name} or {name:regex} token; start and end index the
// braces in the scanned string.
type placeholder struct {
	start, end int
	name       string
}

// scanPlaceholders finds the top-level brace pairs in s. Nested braces belong to
// the enclosing token, so "{id:[0-9]{3}}" is a single placeholder named id. An
// unclosed or empty pair is not a placeholder.
func scanPlaceholders(s string) []placeholder {
	var found []placeholder
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && i > start+1 {
				found = append(found, placeholder{start: start, end: i + 1, name: placeholderName(s[start+1 : i])})
			}
		}
	}
	return found
}

// cutOutside is strings.Cut for a separator that is not inside a placeholder.
func cutOutside(s string, sep byte) (before, after string, found bool) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				return s[:i], s[i+1:], true
			}
		}
	}
	return s, "", false
}

// ResolveURI builds the request URI from a path template.
//
// When pathVariables is non-empty every placeholder in basePath, including one
// in a query string already part of basePath, is replaced by its escaped value,
// and a placeholder without a value is an error. Otherwise placeholders are left
// as written. queryParams are appended after expansion as literal values, sorted
// by key, so a query key sharing a placeholder's name never affects expansion.
func ResolveURI(basePath string, queryParams, pathVariables map[string]string) (string, error) {
	if strings.TrimSpace(basePath) == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidURI)
	}

	uri := basePath
	if len(pathVariables) > 0 {
		expanded, err := expand(uri, pathVariables)
		if err != nil {
			return "", err
		}
		uri = expanded
	}

	if len(queryParams) > 0 {
		uri = appendQuery(uri, queryParams)
	}

	if _, err := url.Parse(uri); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURI, err)
	}
	return uri, nil
}

// PathPlaceholders lists the placeholder names in a template in order of appearance.
func PathPlaceholders(template string) []string {
	var names []string
	for _, p := range scanPlaceholders(template) {
		names = append(names, p.name)
	}
	return names
}

func expand(template string, vars map[string]string) (string, error) {
	head, fragment, hasFragment := cutOutside(template, '#')
	path, query, hasQuery := cutOutside(head, '?')

	path, err := substitute(path, vars, url.PathEscape)
	if err != nil {
		return "", err
	}
	out := path

	if hasQuery {
		query, err = substitute(query, vars, url.QueryEscape)
		if err != nil {
			return "", err
		}
		out += "?" + query
	}
	if hasFragment {
		fragment, err = substitute(fragment, vars, url.PathEscape)
		if err != nil {
			return "", err
		}
		out += "#" + fragment
	}
	return out, nil
}

func substitute(part string, vars map[string]string, escape func(string) string) (string, error) {
	var (
		b       strings.Builder
		missing []string
		last    int
	)
	for _, p := range scanPlaceholders(part) {
		value, ok := vars[p.name]
		if !ok {
			missing = append(missing, p.name)
			continue
		}
		b.WriteString(part[last:p.start])
		b.WriteString(escape(value))
		last = p.end
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingPathVariable, strings.Join(missing, ", "))
	}
	b.WriteString(part[last:])
	return b.String(), nil
}

// placeholderName strips an optional ":regex" suffix.
func placeholderName(raw string) string {
	name, _, _ := strings.Cut(raw, ":")
	return strings.TrimSpace(name)
}

func appendQuery(uri string, queryParams map[string]string) string {
	values := make(url.Values, len(queryParams))
	for key, value := range queryParams {
		values.Set(key, value)
	}
	encoded := values.Encode()

	head, fragment, hasFragment := cutOutside(uri, '#')
	_, _, hasQuery := cutOutside(head, '?')
	switch {
	case !hasQuery:
		head += "?" + encoded
	case strings.HasSuffix(head, "?"), strings.HasSuffix(head, "&"):
		head += encoded
	default:
		head += "&" + encoded
	}

	if hasFragment {
		return head + "#" + fragment
	}
	return head
}
