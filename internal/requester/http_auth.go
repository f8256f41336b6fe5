package requester

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/brizzai/rest-gateway/internal/config"
)

// AuthManager handles request authentication
type AuthManager interface {
	ApplyAuth(req *http.Request) error
}

// HTTPAuthManager applies the endpoint's configured credentials to every request
type HTTPAuthManager struct {
	authType   config.AuthType
	authConfig map[string]string
}

// NewHTTPAuthManager creates a new HTTPAuthManager
func NewHTTPAuthManager(serviceConfig *config.EndpointConfig) *HTTPAuthManager {
	return &HTTPAuthManager{
		authType:   serviceConfig.AuthType,
		authConfig: serviceConfig.AuthConfig,
	}
}

// ApplyAuth adds authentication to the request
func (a *HTTPAuthManager) ApplyAuth(req *http.Request) error {
	switch a.authType {
	case "", config.AuthTypeNone:
		return nil
	case config.AuthTypeBasic:
		req.SetBasicAuth(a.authConfig["username"], a.authConfig["password"])
	case config.AuthTypeBearer, config.AuthTypeOAuth2:
		token := a.authConfig["token"]
		if token == "" {
			return fmt.Errorf("%s auth requires auth_config.token", a.authType)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	case config.AuthTypeAPIKey:
		return a.applyAPIKey(req)
	default:
		return fmt.Errorf("unsupported auth type: %s", a.authType)
	}
	return nil
}

// applyAPIKey places the key in a header (default X-API-Key) or, with
// auth_config.in=query, in the query parameter named by auth_config.name.
func (a *HTTPAuthManager) applyAPIKey(req *http.Request) error {
	key := a.authConfig["key"]
	if a.authConfig["in"] == "query" {
		name := a.authConfig["name"]
		if name == "" {
			name = "api_key"
		}
		// the resolved query keeps its order and escaping
		pair := url.QueryEscape(name) + "=" + url.QueryEscape(key)
		if req.URL.RawQuery == "" {
			req.URL.RawQuery = pair
		} else {
			req.URL.RawQuery += "&" + pair
		}
		return nil
	}

	header := a.authConfig["header"]
	if header == "" {
		header = "X-API-Key"
	}
	req.Header.Set(header, key)
	return nil
}
