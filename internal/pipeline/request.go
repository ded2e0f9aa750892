package pipeline

import (
	"io"
	"net/http"
	"net/url"

	"payrouter/internal/auth"
	"payrouter/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

// Request is the transport-independent view of an inbound call.
type Request struct {
	Method     string
	Path       string
	PathParams map[string]string
	Query      url.Values
	Headers    http.Header
	Body       []byte
	RequestID  string

	readErr error
}

// NewRequest reads r fully. The body size is bounded by the MaxSize middleware. A body
// read failure is kept on the Request and reported by Execute.
func NewRequest(r *http.Request, ps httprouter.Params) Request {
	var (
		body    []byte
		readErr error
	)
	if r.Body != nil {
		body, readErr = io.ReadAll(r.Body)
	}

	params := make(map[string]string, len(ps))
	for _, p := range ps {
		params[p.Key] = p.Value
	}

	return Request{
		Method:     r.Method,
		Path:       r.URL.Path,
		PathParams: params,
		Query:      r.URL.Query(),
		Headers:    r.Header,
		Body:       body,
		RequestID:  middleware.RequestID(r.Context()),
		readErr:    readErr,
	}
}

func (r Request) Param(name string) string {
	return r.PathParams[name]
}

func (r Request) Err() error {
	return r.readErr
}

func (r Request) Credentials() auth.Credentials {
	return auth.ExtractCredentials(r.Headers, r.Query, r.Body, r.PathParams)
}
