// Package transport sends the API calls: it resolves the tenant, attaches the session token,
// refreshes it once on 401 and normalizes every failure into an *apierror.Error.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/trezcool/educloud/core"
	"github.com/trezcool/educloud/core/apierror"
	"github.com/trezcool/educloud/core/session"
	"github.com/trezcool/educloud/core/tenant"
)

// Headers
const (
	HeaderTenant    = "X-Tenant-Subdomain"
	HeaderRequestID = "X-Request-ID"
)

const (
	defaultTimeout         = 30 * time.Second
	defaultTransferTimeout = 60 * time.Second
)

type Options struct {
	Config     *core.Config
	Tenants    *tenant.Resolver
	Sessions   *session.Store
	HTTPClient *http.Client
	Navigator  Navigator
	Saver      Saver
	Logger     core.Logger
	Metrics    *Metrics
}

// Client is safe for concurrent use.
type Client struct {
	tenants  *tenant.Resolver
	sessions *session.Store
	http     *http.Client
	nav      Navigator
	saver    Saver
	logger   core.Logger
	metrics  *Metrics
	limiter  *rate.Limiter

	timeout             time.Duration
	transferTimeout     time.Duration
	loginRoute          string
	tenantNotFoundRoute string

	refreshGroup singleflight.Group
}

func New(opts Options) (*Client, error) {
	if opts.Config == nil {
		return nil, errors.New("transport: missing config")
	}
	if opts.Tenants == nil || opts.Sessions == nil {
		return nil, errors.New("transport: missing tenant resolver or session store")
	}

	conf := opts.Config
	c := &Client{
		tenants:             opts.Tenants,
		sessions:            opts.Sessions,
		http:                opts.HTTPClient,
		nav:                 opts.Navigator,
		saver:               opts.Saver,
		logger:              opts.Logger,
		metrics:             opts.Metrics,
		timeout:             conf.Timeout,
		transferTimeout:     conf.TransferTimeout,
		loginRoute:          conf.LoginRoute,
		tenantNotFoundRoute: conf.TenantNotFoundRoute,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.nav == nil {
		c.nav = NopNavigator{}
	}
	if c.saver == nil {
		c.saver = DirSaver{Dir: conf.DownloadDir}
	}
	if c.logger == nil {
		c.logger = core.NopLogger{}
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.transferTimeout <= 0 {
		c.transferTimeout = defaultTransferTimeout
	}
	if conf.RateLimit > 0 {
		burst := conf.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(conf.RateLimit), burst)
	}
	return c, nil
}

// Sessions returns the session store the client reads its tokens from.
func (c *Client) Sessions() *session.Store { return c.sessions }

// Tenants returns the tenant resolver the client resolves its base URL with.
func (c *Client) Tenants() *tenant.Resolver { return c.tenants }

func (c *Client) Get(ctx context.Context, path string, params interface{}, opts ...CallOption) (*core.Envelope, error) {
	req := c.newRequest(http.MethodGet, path, opts)
	q, err := encodeQuery(params)
	if err != nil {
		return nil, apierror.Normalize(err)
	}
	req.Query = q
	return c.call(ctx, req)
}

func (c *Client) Post(ctx context.Context, path string, body interface{}, opts ...CallOption) (*core.Envelope, error) {
	return c.callWithBody(ctx, http.MethodPost, path, body, opts)
}

func (c *Client) Put(ctx context.Context, path string, body interface{}, opts ...CallOption) (*core.Envelope, error) {
	return c.callWithBody(ctx, http.MethodPut, path, body, opts)
}

func (c *Client) Patch(ctx context.Context, path string, body interface{}, opts ...CallOption) (*core.Envelope, error) {
	return c.callWithBody(ctx, http.MethodPatch, path, body, opts)
}

func (c *Client) Delete(ctx context.Context, path string, opts ...CallOption) (*core.Envelope, error) {
	return c.call(ctx, c.newRequest(http.MethodDelete, path, opts))
}

// Do sends req through the interceptor pipeline and returns the raw response.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	if req.Timeout <= 0 {
		req.Timeout = c.timeout
	}
	return c.roundTrip(ctx, req)
}

func (c *Client) newRequest(method, path string, opts []CallOption) *Request {
	req := &Request{
		Method:      method,
		Path:        path,
		Header:      make(http.Header),
		ContentType: "application/json",
		Timeout:     c.timeout,
	}
	for _, opt := range opts {
		opt(req)
	}
	return req
}

func (c *Client) callWithBody(ctx context.Context, method, path string, body interface{}, opts []CallOption) (*core.Envelope, error) {
	req := c.newRequest(method, path, opts)
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, apierror.Normalize(errors.Wrap(err, "encoding request body"))
		}
		req.Body = data
	}
	return c.call(ctx, req)
}

func (c *Client) call(ctx context.Context, req *Request) (*core.Envelope, error) {
	res, err := c.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeEnvelope(res)
}

// send performs one HTTP exchange. The tenant and token are resolved now, not at construction.
// It only fails when no response was received; error statuses are returned as responses.
func (c *Client) send(ctx context.Context, req *Request) (*Response, error) {
	req.tenant = c.tenants.Resolve()
	req.url = joinURL(req.tenant.APIBaseURL, req.Path, req.Query)
	req.token = ""
	if !req.noAuth {
		req.token = c.sessions.AccessToken()
	}

	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "waiting for rate limiter")
		}
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
		if req.Progress != nil {
			body = newProgressReader(req.Body, req.Progress)
		}
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.url, body)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	if req.Body != nil {
		httpReq.ContentLength = int64(len(req.Body))
	}
	for key, values := range req.Header {
		httpReq.Header[key] = values
	}
	if req.ContentType != "" && req.Body != nil {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json, */*")
	}
	if httpReq.Header.Get(HeaderRequestID) == "" {
		httpReq.Header.Set(HeaderRequestID, uuid.NewString())
	}
	if req.tenant.Exists() {
		httpReq.Header.Set(HeaderTenant, req.tenant.Subdomain)
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	req.StartTime = time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		elapsed := time.Since(req.StartTime)
		c.metrics.observe(req.Method, 0, elapsed)
		c.logger.Debug(fmt.Sprintf("%s %s failed (%s)", req.Method, req.Path, elapsed), err)
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	elapsed := time.Since(req.StartTime)
	if err != nil {
		c.metrics.observe(req.Method, 0, elapsed)
		return nil, errors.Wrap(err, "reading response body")
	}

	c.metrics.observe(req.Method, resp.StatusCode, elapsed)
	c.logger.Debug(fmt.Sprintf("%s %s %d (%s)", req.Method, req.Path, resp.StatusCode, elapsed))
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data, Elapsed: elapsed}, nil
}

func decodeEnvelope(res *Response) (*core.Envelope, error) {
	body := bytes.TrimSpace(res.Body)
	if len(body) == 0 {
		return &core.Envelope{Success: true}, nil
	}
	if body[0] == '[' {
		// bare payload, not wrapped
		return &core.Envelope{Success: true, Data: json.RawMessage(body)}, nil
	}
	env := new(core.Envelope)
	if err := json.Unmarshal(body, env); err != nil {
		return nil, apierror.New(apierror.KindUnknown, res.Status, "Invalid response from server.", errors.Wrap(err, "decoding response"))
	}
	return env, nil
}

func joinURL(base, path string, q url.Values) string {
	u := strings.TrimRight(base, "/")
	if path != "" {
		u += "/" + strings.TrimLeft(path, "/")
	}
	if len(q) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + q.Encode()
	}
	return u
}

// encodeQuery accepts nil, url.Values, map[string]string or a struct with `url` tags.
func encodeQuery(params interface{}) (url.Values, error) {
	switch p := params.(type) {
	case nil:
		return nil, nil
	case url.Values:
		return p, nil
	case map[string]string:
		q := make(url.Values, len(p))
		for k, v := range p {
			if v != "" {
				q.Set(k, v)
			}
		}
		return q, nil
	}
	q, err := query.Values(params)
	return q, errors.Wrap(err, "encoding query")
}
