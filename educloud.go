// Package educloud is the client SDK of the EduCloud school management API.
//
// New wires the tenant resolver, the session store, the HTTP transport, the services
// and the client state stores on top of one core.Storage.
package educloud

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/educloud/core"
	"github.com/trezcool/educloud/core/session"
	"github.com/trezcool/educloud/core/tenant"
	"github.com/trezcool/educloud/services"
	"github.com/trezcool/educloud/stores"
	"github.com/trezcool/educloud/transport"
)

// SDK is safe for concurrent use.
type SDK struct {
	Config   *core.Config
	Tenants  *tenant.Resolver
	Sessions *session.Store
	Client   *transport.Client

	*services.Registry

	AuthStore          *stores.AuthStore
	StudentStore       *stores.StudentStore
	FeeStore           *stores.FeeStore
	NotificationStore  *stores.NotificationStore
	MessageStore       *stores.MessageStore
	AnnouncementStore  *stores.AnnouncementStore
	AccessibilityStore *stores.AccessibilityStore
}

type options struct {
	host       func() string
	httpClient *http.Client
	navigator  transport.Navigator
	saver      transport.Saver
	logger     core.Logger
	registerer prometheus.Registerer
}

// Option customizes the SDK built by New.
type Option func(*options)

// WithHost sets where the hostname the client runs under is read from. It defaults to conf.Host.
func WithHost(host func() string) Option {
	return func(o *options) { o.host = host }
}

func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// WithNavigator sets what is told to show the login or tenant-not-found route.
func WithNavigator(nav transport.Navigator) Option {
	return func(o *options) { o.navigator = nav }
}

// WithSaver sets where downloads are written. It defaults to conf.DownloadDir.
func WithSaver(saver transport.Saver) Option {
	return func(o *options) { o.saver = saver }
}

func WithLogger(logger core.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics registers the transport metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// New returns an SDK for conf persisting its state in storage.
func New(conf *core.Config, storage core.Storage, opts ...Option) (*SDK, error) {
	if conf == nil {
		return nil, errors.New("educloud: missing config")
	}
	if storage == nil {
		return nil, errors.New("educloud: missing storage")
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}

	o := options{logger: core.NopLogger{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.host == nil {
		host := conf.Host
		o.host = func() string { return host }
	}

	tenants := tenant.NewResolver(storage, o.host, conf.DefaultTenant, conf.APIBaseURL)
	sessions := session.NewStore(storage)
	nav := &signOutNavigator{next: o.navigator, loginRoute: conf.LoginRoute, logger: o.logger}
	client, err := transport.New(transport.Options{
		Config:     conf,
		Tenants:    tenants,
		Sessions:   sessions,
		HTTPClient: o.httpClient,
		Navigator:  nav,
		Saver:      o.saver,
		Logger:     o.logger,
		Metrics:    transport.NewMetrics(o.registerer),
	})
	if err != nil {
		return nil, errors.Wrap(err, "building transport")
	}

	reg := services.NewRegistry(client, tenants, sessions, services.NewEmptyResults(conf.EmptyResults), o.logger)
	sdk := &SDK{
		Config:             conf,
		Tenants:            tenants,
		Sessions:           sessions,
		Client:             client,
		Registry:           reg,
		AuthStore:          stores.NewAuthStore(reg.Auth, storage, sessions.IsAuthenticated),
		StudentStore:       stores.NewStudentStore(reg.Students),
		FeeStore:           stores.NewFeeStore(reg.Invoices, reg.FeeStructures, reg.Payments),
		NotificationStore:  stores.NewNotificationStore(reg.Notifications),
		MessageStore:       stores.NewMessageStore(reg.Messages),
		AnnouncementStore:  stores.NewAnnouncementStore(reg.Announcements),
		AccessibilityStore: stores.NewAccessibilityStore(storage),
	}

	nav.auth = sdk.AuthStore

	if err := sdk.AuthStore.Restore(); err != nil {
		o.logger.Warn("restoring auth state", err)
	}
	if err := sdk.AccessibilityStore.Load(); err != nil {
		o.logger.Warn("loading accessibility settings", err)
	}
	return sdk, nil
}

// signOutNavigator resets the auth store before the login route is shown,
// so a session cleared by a failed refresh also signs the user out of the store.
type signOutNavigator struct {
	next       transport.Navigator
	loginRoute string
	logger     core.Logger
	auth       *stores.AuthStore
}

func (n *signOutNavigator) Navigate(route string) {
	if route == n.loginRoute && n.auth != nil {
		if err := n.auth.Reset(); err != nil {
			n.logger.Warn("resetting auth state", err)
		}
	}
	if n.next != nil {
		n.next.Navigate(route)
	}
}
