package gateway

import "context"

// Send is SendRequest returning the success body as an R.
func Send[R any](ctx context.Context, svc Service, path string, body any, method string, queryParams, pathVariables, headers map[string]string) (R, error) {
	var out R
	err := svc.SendRequest(ctx, path, body, method, queryParams, pathVariables, headers, &out)
	return out, err
}

// SendForm is SendFormRequest returning the success body as an R.
func SendForm[R any](ctx context.Context, svc Service, path string, body any, method string, queryParams, pathVariables, headers map[string]string) (R, error) {
	var out R
	err := svc.SendFormRequest(ctx, path, body, method, queryParams, pathVariables, headers, &out)
	return out, err
}

// Get is GetRequest returning the success body as an R.
func Get[R any](ctx context.Context, svc Service, path string, queryParams, pathVariables, headers map[string]string) (R, error) {
	var out R
	err := svc.GetRequest(ctx, path, queryParams, pathVariables, headers, &out)
	return out, err
}

// Call is Do returning the success body as an R.
func Call[R any](ctx context.Context, svc Service, req *Request) (R, error) {
	var out R
	err := svc.Do(ctx, req, &out)
	return out, err
}
