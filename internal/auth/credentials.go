package auth

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

const (
	HeaderAPIKey        = "api-key"
	HeaderAuthorization = "Authorization"
	ParamClientSecret   = "client_secret"
)

// Credentials is the raw credential material of one request, gathered from headers,
// query, body and path before any validation.
type Credentials struct {
	APIKey       string
	BearerToken  string
	ClientSecret string
	PathParams   map[string]string
}

func ExtractCredentials(headers http.Header, query url.Values, body []byte, params map[string]string) Credentials {
	c := Credentials{
		APIKey:     strings.TrimSpace(headers.Get(HeaderAPIKey)),
		PathParams: params,
	}

	if authz := headers.Get(HeaderAuthorization); authz != "" {
		if scheme, token, ok := strings.Cut(authz, " "); ok && strings.EqualFold(scheme, "Bearer") {
			c.BearerToken = strings.TrimSpace(token)
		}
	}

	c.ClientSecret = query.Get(ParamClientSecret)
	if c.ClientSecret == "" && len(body) > 0 {
		var payload struct {
			ClientSecret string `json:"client_secret"`
		}
		if json.Unmarshal(body, &payload) == nil {
			c.ClientSecret = payload.ClientSecret
		}
	}
	return c
}
