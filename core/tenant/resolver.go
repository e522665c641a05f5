// Package tenant resolves which school (tenant) the client talks to.
package tenant

import (
	"net"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/educloud/core"
)

const placeholder = "{tenant}"

// Source tells where a tenant subdomain was resolved from.
type Source int

const (
	SourceNone Source = iota
	SourceStored
	SourceHost
	SourceDefault
)

func (s Source) String() string {
	switch s {
	case SourceStored:
		return "stored"
	case SourceHost:
		return "host"
	case SourceDefault:
		return "default"
	}
	return "none"
}

var (
	ErrInvalidSubdomain = errors.New("invalid tenant subdomain")

	reservedLabels = map[string]bool{"www": true, "api": true, "app": true}
)

// Context is the tenant a request is sent for.
type Context struct {
	Subdomain  string
	APIBaseURL string
	Source     Source
}

// Exists reports whether a tenant was resolved.
func (c Context) Exists() bool { return c.Subdomain != "" }

// TenantScoped reports whether the client runs inside a specific school's domain
// (explicitly switched to, or served from its subdomain), as opposed to a default.
func (c Context) TenantScoped() bool {
	return c.Source == SourceStored || c.Source == SourceHost
}

// Resolver derives the tenant context on every call from, in order:
// the subdomain persisted by an explicit tenant switch, the host's subdomain and the default tenant.
type Resolver struct {
	storage       core.Storage
	host          func() string
	defaultTenant string
	baseURL       string

	mu sync.Mutex // serializes Switch/Reset
}

// NewResolver returns a Resolver. host may be nil when the client does not run under a hostname.
func NewResolver(storage core.Storage, host func() string, defaultTenant, baseURL string) *Resolver {
	if host == nil {
		host = func() string { return "" }
	}
	return &Resolver{
		storage:       storage,
		host:          host,
		defaultTenant: core.CleanString(defaultTenant, true /* lower */),
		baseURL:       strings.TrimRight(baseURL, "/"),
	}
}

// NewResolverFromConfig returns a Resolver for conf, using conf.Host as hostname.
func NewResolverFromConfig(storage core.Storage, conf *core.Config) *Resolver {
	host := conf.Host
	return NewResolver(storage, func() string { return host }, conf.DefaultTenant, conf.APIBaseURL)
}

// Resolve returns the current tenant context. A storage failure falls through to the next source.
func (r *Resolver) Resolve() Context {
	ctx := Context{}
	if sub, found, err := r.storage.Get(core.KeyTenant); err == nil && found && sub != "" {
		ctx.Subdomain, ctx.Source = sub, SourceStored
	} else if sub := SubdomainFromHost(r.host()); sub != "" {
		ctx.Subdomain, ctx.Source = sub, SourceHost
	} else if r.defaultTenant != "" {
		ctx.Subdomain, ctx.Source = r.defaultTenant, SourceDefault
	}
	ctx.APIBaseURL = r.BaseURL(ctx.Subdomain)
	return ctx
}

// BaseURL renders the API base URL for a subdomain.
func (r *Resolver) BaseURL(subdomain string) string {
	if !strings.Contains(r.baseURL, placeholder) {
		return r.baseURL
	}
	if subdomain == "" {
		// no tenant: drop the "{tenant}." label altogether
		return strings.Replace(r.baseURL, placeholder+".", "", 1)
	}
	return strings.Replace(r.baseURL, placeholder, subdomain, 1)
}

// Switch persists an explicit tenant, which then overrides host and default.
func (r *Resolver) Switch(subdomain string) error {
	sub := Normalize(subdomain)
	if !core.IsSubdomain(sub) {
		return errors.Wrapf(ErrInvalidSubdomain, "%q", subdomain)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Wrap(r.storage.Set(core.KeyTenant, sub), "storing tenant")
}

// Reset forgets the explicit tenant.
func (r *Resolver) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Wrap(r.storage.Delete(core.KeyTenant), "deleting tenant")
}

// Normalize turns a school name typed by a user into a subdomain candidate:
// lower-cased, trimmed, spaces and underscores become hyphens.
func Normalize(name string) string {
	sub := core.CleanString(name, true /* lower */)
	sub = strings.NewReplacer(" ", "-", "_", "-").Replace(sub)
	return strings.Trim(sub, "-")
}

// SubdomainFromHost returns the tenant label of a host like "greenwood.educloud.com" (port allowed).
// It returns "" for IPs, localhost, bare domains and reserved labels like "www".
func SubdomainFromHost(host string) string {
	host = core.CleanString(host, true /* lower */)
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")
	if host == "localhost" || net.ParseIP(strings.Trim(host, "[]")) != nil {
		return ""
	}

	labels := strings.Split(host, ".")
	// "<tenant>.localhost" is accepted in development
	if len(labels) == 2 && labels[1] == "localhost" {
		return validLabel(labels[0])
	}
	if len(labels) < 3 {
		return ""
	}
	return validLabel(labels[0])
}

func validLabel(label string) string {
	if reservedLabels[label] || !core.IsSubdomain(label) {
		return ""
	}
	return label
}
