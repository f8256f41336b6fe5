// Package gateway sends one-shot requests to downstream REST endpoints.
//
// A call is described by a path template, optional query parameters, path
// variables and headers, and an optional body sent as JSON or as an urlencoded
// form. The call blocks until the downstream service answers. Responses with a
// 4xx or 5xx status become a *GatewayError carrying the status and the raw
// body text; any other response body is decoded into the caller's target.
//
// The package performs exactly one request per call and never retries it.
// Base URL resolution, pooling and credentials belong to the injected
// requester.Transport.
package gateway
