// Package testutil serves the dev API through httptest and builds SDKs talking to it.
package testutil

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/educloud"
	echoapi "github.com/trezcool/educloud/apps/devserver/echo"
	"github.com/trezcool/educloud/apps/devserver/memdb"
	"github.com/trezcool/educloud/core"
	"github.com/trezcool/educloud/services"
	emailsvc "github.com/trezcool/educloud/services/email"
	inmemdb "github.com/trezcool/educloud/storage/database/inmem"
	"github.com/trezcool/educloud/transport"
)

// Config returns a TEST configuration talking to apiBaseURL, with the "demo" school as default tenant.
func Config(apiBaseURL string) *core.Config {
	return &core.Config{
		Env:                 "TEST",
		TestMode:            true,
		AppName:             "EduCloud",
		APIBaseURL:          apiBaseURL,
		DefaultTenant:       memdb.DemoSubdomain,
		Timeout:             5 * time.Second,
		TransferTimeout:     10 * time.Second,
		LoginRoute:          "/login",
		TenantNotFoundRoute: "/tenant-not-found",
		Storage:             core.StorageConfig{Driver: "memory"},
		DevServer: core.DevServerConfig{
			SecretKey:              "test-secret",
			JWTExpirationDelta:     time.Minute,
			RefreshExpirationDelta: time.Hour,
			LegacyEmptyResults:     true,
			DefaultFromEmail:       "noreply@educloud.local",
		},
	}
}

// DevServer is the seeded dev API served by httptest.
type DevServer struct {
	*httptest.Server
	Conf *core.Config
	DB   *memdb.DB
	Demo *memdb.TenantDB
	Mail *emailsvc.ConsoleServiceMock
}

// APIBaseURL is the base URL the SDK is configured with.
func (srv *DevServer) APIBaseURL() string { return srv.URL + "/api" }

// StartDevServer starts a dev API seeded with the demo school. It is closed on test cleanup.
func StartDevServer(t *testing.T) *DevServer {
	t.Helper()
	conf := Config("")
	db := memdb.Open()
	demo, err := memdb.Seed(db)
	if err != nil {
		t.Fatalf("StartDevServer() failed to seed: %v", err)
	}
	mail := emailsvc.NewConsoleServiceMock(conf)
	app := echoapi.NewServer(&echoapi.Options{
		Config:         conf,
		DB:             db,
		MailSvc:        mail,
		Logger:         core.NopLogger{},
		DisableReqLogs: true,
	})

	srv := &DevServer{Server: httptest.NewServer(app), Conf: conf, DB: db, Demo: demo, Mail: mail}
	t.Cleanup(srv.Close)
	conf.APIBaseURL = srv.APIBaseURL()
	return srv
}

// Routes records the routes the SDK navigated to. It is safe for concurrent use.
type Routes struct {
	mu      sync.Mutex
	visited []string
}

func (r *Routes) Navigate(route string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visited = append(r.visited, route)
}

// Visited returns the routes navigated to, oldest first.
func (r *Routes) Visited() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.visited...)
}

// NewSDK returns an SDK talking to srv, with in-memory storage and downloads saved under a temp dir.
func NewSDK(t *testing.T, srv *DevServer, opts ...educloud.Option) (*educloud.SDK, *inmemdb.Store) {
	t.Helper()
	storage := inmemdb.NewStore()
	return NewSDKWithStorage(t, srv, storage, opts...), storage
}

func NewSDKWithStorage(t *testing.T, srv *DevServer, storage core.Storage, opts ...educloud.Option) *educloud.SDK {
	t.Helper()
	opts = append([]educloud.Option{
		educloud.WithSaver(transport.DirSaver{Dir: t.TempDir()}),
		educloud.WithHTTPClient(srv.Client()),
	}, opts...)
	sdk, err := educloud.New(Config(srv.APIBaseURL()), storage, opts...)
	if err != nil {
		t.Fatalf("NewSDK() failed: %v", err)
	}
	return sdk
}

// Login signs sdk in as the demo school admin.
func Login(t *testing.T, sdk *educloud.SDK) *services.AuthResult {
	t.Helper()
	res, err := sdk.Auth.Login(context.Background(), services.LoginInput{
		SchoolName: memdb.DemoSubdomain,
		Email:      memdb.DemoEmail,
		Password:   memdb.DemoPassword,
	})
	if err != nil {
		t.Fatalf("Login() failed: %v", err)
	}
	return res
}

func CreateUser(t *testing.T, tdb *memdb.TenantDB, name, email, pwd, role string, isActive bool) memdb.User {
	t.Helper()
	usr, err := tdb.CreateUser(memdb.NewUser{Name: name, Email: email, Password: pwd, Role: role})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	if !isActive {
		usr.IsActive = false
		if err := tdb.SaveUser(usr); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	return usr
}
