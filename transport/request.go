package transport

import (
	"net/http"
	"net/url"
	"time"

	"github.com/trezcool/educloud/core/tenant"
)

// ResponseType tells how a response body is consumed.
type ResponseType int

const (
	// ResponseJSON bodies are decoded into a core.Envelope.
	ResponseJSON ResponseType = iota
	// ResponseBlob bodies are kept as raw bytes.
	ResponseBlob
)

// Request is the envelope of one call. It is created per call and discarded after the response.
type Request struct {
	Method       string
	Path         string
	Query        url.Values
	Header       http.Header
	Body         []byte
	ContentType  string
	Timeout      time.Duration
	ResponseType ResponseType
	Progress     ProgressFunc

	// StartTime is set when the request is sent, and reset on retry.
	StartTime time.Time
	// Retried marks a request resubmitted after a token refresh. A request is retried at most once.
	Retried bool

	noRefresh bool
	noAuth    bool

	// set on send
	tenant tenant.Context
	token  string
	url    string
}

// URL is the absolute URL the request was last sent to.
func (r *Request) URL() string { return r.url }

// Tenant is the tenant context the request was last sent with.
func (r *Request) Tenant() tenant.Context { return r.tenant }

// Response is a received HTTP response, body fully read.
type Response struct {
	Status  int
	Header  http.Header
	Body    []byte
	Elapsed time.Duration
}

// CallOption customizes one call.
type CallOption func(*Request)

// WithTimeout overrides the call timeout.
func WithTimeout(d time.Duration) CallOption {
	return func(r *Request) {
		if d > 0 {
			r.Timeout = d
		}
	}
}

// WithHeader sets an extra request header.
func WithHeader(key, value string) CallOption {
	return func(r *Request) { r.Header.Set(key, value) }
}

// WithContentType overrides the JSON content type.
func WithContentType(ct string) CallOption {
	return func(r *Request) { r.ContentType = ct }
}

// WithResponseType sets how the response body is consumed.
func WithResponseType(t ResponseType) CallOption {
	return func(r *Request) { r.ResponseType = t }
}

// WithoutRefresh disables the refresh-and-retry on 401. Used by the auth endpoints,
// where a 401 means bad credentials rather than an expired session.
func WithoutRefresh() CallOption {
	return func(r *Request) { r.noRefresh = true }
}
