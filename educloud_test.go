package educloud_test

import (
	"context"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/educloud"
	"github.com/trezcool/educloud/apps/devserver/memdb"
	"github.com/trezcool/educloud/core"
	"github.com/trezcool/educloud/core/apierror"
	"github.com/trezcool/educloud/core/session"
	"github.com/trezcool/educloud/core/tenant"
	"github.com/trezcool/educloud/services"
	inmemdb "github.com/trezcool/educloud/storage/database/inmem"
	"github.com/trezcool/educloud/stores"
	testutil "github.com/trezcool/educloud/tests"
	"github.com/trezcool/educloud/transport"
)

// tenantRecorder records the tenant header of every request.
type tenantRecorder struct {
	next http.RoundTripper

	mu      sync.Mutex
	tenants []string
}

func (r *tenantRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	r.mu.Lock()
	r.tenants = append(r.tenants, req.Header.Get(transport.HeaderTenant))
	r.mu.Unlock()
	return r.next.RoundTrip(req)
}

func TestNew(t *testing.T) {
	storage := inmemdb.NewStore()

	_, err := educloud.New(nil, storage)
	assert.Error(t, err)

	_, err = educloud.New(testutil.Config("http://localhost:5000/api"), nil)
	assert.Error(t, err)

	conf := testutil.Config("")
	_, err = educloud.New(conf, storage)
	assert.Error(t, err, "a base URL is required")

	sdk, err := educloud.New(testutil.Config("http://localhost:5000/api"), storage)
	require.NoError(t, err)
	assert.False(t, sdk.Sessions.IsAuthenticated())
	assert.False(t, sdk.AuthStore.State().IsAuthenticated)
	assert.Equal(t, tenant.Context{Subdomain: "demo", APIBaseURL: "http://localhost:5000/api", Source: tenant.SourceDefault}, sdk.Tenants.Resolve())
}

func TestSDK_demoLogin(t *testing.T) {
	srv := testutil.StartDevServer(t)
	rec := &tenantRecorder{next: srv.Client().Transport}
	sdk, _ := testutil.NewSDK(t, srv, educloud.WithHTTPClient(&http.Client{Transport: rec}))
	ctx := context.Background()

	res := testutil.Login(t, sdk)
	assert.Equal(t, memdb.DemoEmail, res.User.Email)
	require.NotNil(t, res.Tenant)
	assert.Equal(t, "Demo Academy", res.Tenant.Name)
	assert.True(t, sdk.Sessions.IsAuthenticated())
	assert.Equal(t, tenant.SourceStored, sdk.Tenants.Resolve().Source)

	claims, err := sdk.Sessions.Claims()
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID())

	page, err := sdk.Students.List(ctx, services.StudentFilter{ClassID: "class-1"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 2, page.Pagination.Total)

	usr, err := sdk.Auth.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, usr.ID)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.tenants, 3)
	for _, sub := range rec.tenants {
		assert.Equal(t, memdb.DemoSubdomain, sub)
	}
}

func TestSDK_emptyResults(t *testing.T) {
	srv := testutil.StartDevServer(t)
	sdk, _ := testutil.NewSDK(t, srv)
	testutil.Login(t, sdk)
	ctx := context.Background()

	page, err := sdk.Students.List(ctx, services.StudentFilter{ListParams: services.ListParams{Search: "zzz", Limit: 20}})
	require.NoError(t, err)
	assert.True(t, page.Empty())
	assert.NotNil(t, page.Items)
	assert.Equal(t, core.DefaultPagination(20), page.Pagination)

	msgs, err := sdk.Messages.Inbox(ctx, services.ListParams{})
	require.NoError(t, err)
	assert.Empty(t, msgs.Items)

	// a missing item is not an empty list
	_, err = sdk.Students.Get(ctx, "nope")
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
}

func TestSDK_refresh(t *testing.T) {
	srv := testutil.StartDevServer(t)
	routes := new(testutil.Routes)
	sdk, _ := testutil.NewSDK(t, srv, educloud.WithNavigator(routes))
	ctx := context.Background()

	res := testutil.Login(t, sdk)

	// the access token is rejected: one refresh then one retry
	require.NoError(t, sdk.Sessions.Set(session.Session{AccessToken: "expired", RefreshToken: res.RefreshToken}))
	usr, err := sdk.Auth.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, usr.ID)

	sess, err := sdk.Sessions.Get()
	require.NoError(t, err)
	assert.NotEqual(t, "expired", sess.AccessToken)
	assert.NotEqual(t, res.RefreshToken, sess.RefreshToken)
	assert.Empty(t, routes.Visited())

	// the refresh token is rejected too: signed out and sent to the login route
	require.NoError(t, sdk.Sessions.Set(session.Session{AccessToken: "expired", RefreshToken: res.RefreshToken}))
	_, err = sdk.Auth.Me(ctx)
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindUnauthorized))
	assert.Equal(t, "Invalid or expired refresh token", err.Error())
	assert.False(t, sdk.Sessions.IsAuthenticated())
	assert.Equal(t, []string{"/login"}, routes.Visited())
}

func TestSDK_refreshFailureResetsAuthStore(t *testing.T) {
	srv := testutil.StartDevServer(t)
	routes := new(testutil.Routes)
	storage := inmemdb.NewStore()
	sdk := testutil.NewSDKWithStorage(t, srv, storage, educloud.WithNavigator(routes))
	ctx := context.Background()

	require.NoError(t, sdk.AuthStore.Login(ctx, services.LoginInput{
		SchoolName: memdb.DemoSubdomain, Email: memdb.DemoEmail, Password: memdb.DemoPassword,
	}))
	var signedOut stores.AuthState
	sdk.AuthStore.Subscribe(func(st stores.AuthState) { signedOut = st })

	require.NoError(t, sdk.Sessions.Set(session.Session{AccessToken: "expired", RefreshToken: "bogus"}))
	_, err := sdk.Students.List(ctx, services.StudentFilter{})
	require.Error(t, err)
	assert.Equal(t, "Invalid or expired refresh token", err.Error())
	assert.Equal(t, []string{"/login"}, routes.Visited())

	st := sdk.AuthStore.State()
	assert.False(t, st.IsAuthenticated)
	assert.Nil(t, st.User)
	assert.False(t, signedOut.IsAuthenticated)
	assert.False(t, testutil.NewSDKWithStorage(t, srv, storage).AuthStore.State().IsAuthenticated)
}

func TestSDK_concurrentRefresh(t *testing.T) {
	srv := testutil.StartDevServer(t)
	sdk, _ := testutil.NewSDK(t, srv)
	ctx := context.Background()

	res := testutil.Login(t, sdk)
	require.NoError(t, sdk.Sessions.Set(session.Session{AccessToken: "expired", RefreshToken: res.RefreshToken}))

	// refresh tokens are single use: a second refresh would sign the user out
	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = sdk.Students.List(ctx, services.StudentFilter{})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.True(t, sdk.Sessions.IsAuthenticated())
}

func TestSDK_tenantNotFound(t *testing.T) {
	srv := testutil.StartDevServer(t)
	routes := new(testutil.Routes)
	sdk, _ := testutil.NewSDK(t, srv, educloud.WithNavigator(routes))

	_, err := sdk.Auth.Login(context.Background(), services.LoginInput{
		SchoolName: "Nowhere High",
		Email:      memdb.DemoEmail,
		Password:   memdb.DemoPassword,
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
	assert.Equal(t, "Tenant not found", err.Error())
	assert.Equal(t, "nowhere-high", sdk.Tenants.Resolve().Subdomain)
	assert.Equal(t, []string{"/tenant-not-found"}, routes.Visited())
	assert.False(t, sdk.Sessions.IsAuthenticated())
}

func TestSDK_validationError(t *testing.T) {
	srv := testutil.StartDevServer(t)
	sdk, _ := testutil.NewSDK(t, srv)
	testutil.Login(t, sdk)

	_, err := sdk.Students.Create(context.Background(), map[string]string{"gender": "female"})
	require.Error(t, err)
	apiErr, ok := err.(*apierror.Error)
	require.True(t, ok)
	assert.Equal(t, apierror.KindValidation, apiErr.Kind)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, map[string]string{"firstName": "this field is required", "lastName": "this field is required"}, apiErr.Errors)
}

func TestSDK_finance(t *testing.T) {
	srv := testutil.StartDevServer(t)
	sdk, _ := testutil.NewSDK(t, srv)
	testutil.Login(t, sdk)
	ctx := context.Background()

	saved, err := sdk.Invoices.Download(ctx, "invoice-1", "")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(saved, "INV-0001.txt"), saved)
	content, err := os.ReadFile(saved)
	require.NoError(t, err)
	assert.Contains(t, string(content), "INVOICE INV-0001")

	require.NoError(t, sdk.FeeStore.Invoices.Fetch(ctx, services.InvoiceFilter{}))
	assert.Equal(t, 600.0, sdk.FeeStore.Outstanding())

	inv, err := sdk.FeeStore.SendInvoice(ctx, "invoice-1")
	require.NoError(t, err)
	assert.True(t, inv.SentAt.Valid)
	assert.Len(t, srv.Mail.Sent(), 1)

	inv, err = sdk.FeeStore.MarkPaid(ctx, "invoice-1", services.PaymentInput{Method: "cash"})
	require.NoError(t, err)
	assert.Equal(t, "paid", inv.Status)
	assert.Zero(t, sdk.FeeStore.Outstanding())

	payments, err := sdk.Payments.ByInvoice(ctx, "invoice-1")
	require.NoError(t, err)
	require.Len(t, payments.Items, 1)
	assert.Equal(t, 600.0, payments.Items[0].Amount)
}

func TestSDK_stores(t *testing.T) {
	srv := testutil.StartDevServer(t)
	storage := inmemdb.NewStore()
	sdk := testutil.NewSDKWithStorage(t, srv, storage)
	ctx := context.Background()

	require.NoError(t, sdk.AuthStore.Login(ctx, services.LoginInput{
		SchoolName: memdb.DemoSubdomain, Email: memdb.DemoEmail, Password: memdb.DemoPassword,
	}))
	st := sdk.AuthStore.State()
	assert.True(t, st.IsAuthenticated)
	assert.Equal(t, memdb.DemoSubdomain, st.Tenant)

	count, err := sdk.NotificationStore.RefreshUnread(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// a new SDK on the same storage restores the session
	restored := testutil.NewSDKWithStorage(t, srv, storage)
	assert.True(t, restored.AuthStore.State().IsAuthenticated)
	assert.Equal(t, memdb.DemoEmail, restored.AuthStore.State().User.Email)
	_, err = restored.Auth.Me(ctx)
	assert.NoError(t, err)

	require.NoError(t, restored.AuthStore.Logout(ctx))
	assert.False(t, restored.Sessions.IsAuthenticated())
	assert.False(t, testutil.NewSDKWithStorage(t, srv, storage).AuthStore.State().IsAuthenticated)
}
