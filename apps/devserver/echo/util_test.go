package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	. "github.com/trezcool/educloud/apps/devserver/echo"
	"github.com/trezcool/educloud/apps/devserver/memdb"
	"github.com/trezcool/educloud/core"
	emailsvc "github.com/trezcool/educloud/services/email"
	"github.com/trezcool/educloud/transport"
)

type testEnv struct {
	app  Server
	db   *memdb.DB
	demo *memdb.TenantDB
	mail *emailsvc.ConsoleServiceMock
}

func testConfig() *core.Config {
	return &core.Config{
		Env:      "TEST",
		TestMode: true,
		AppName:  "EduCloud",
		DevServer: core.DevServerConfig{
			SecretKey:              "secret",
			JWTExpirationDelta:     time.Minute,
			RefreshExpirationDelta: time.Hour,
			LegacyEmptyResults:     true,
			DefaultFromEmail:       "noreply@educloud.local",
		},
	}
}

func setup(t *testing.T) *testEnv {
	conf := testConfig()
	db := memdb.Open()
	demo, err := memdb.Seed(db)
	require.NoError(t, err)
	mail := emailsvc.NewConsoleServiceMock(conf)
	return &testEnv{
		app: NewServer(&Options{
			Config:         conf,
			DB:             db,
			MailSvc:        mail,
			Logger:         core.NopLogger{},
			DisableReqLogs: true,
		}),
		db:   db,
		demo: demo,
		mail: mail,
	}
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	tenant   string
	token    string
	wantCode int
	wantData []byte
}

func newTenantRequest(method, path, tenant, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if tenant != "" {
		req.Header.Set(transport.HeaderTenant, tenant)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newTenantRequest(method, path, memdb.DemoSubdomain, token, data...)
}

func (env *testEnv) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	env.app.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newTenantRequest(tt.method, tt.path, tt.tenant, tt.token, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

type authData struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"user"`
	Tenant struct {
		Subdomain string `json:"subdomain"`
	} `json:"tenant"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

func (env *testEnv) login(t *testing.T, tenant, email, pwd string) authData {
	req, rec := newTenantRequest(http.MethodPost, "/api/auth/login", tenant, "", marshalObj(t, map[string]string{
		"email":    email,
		"password": pwd,
	}))
	env.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var data authData
	decodeData(t, rec, &data)
	return data
}

func (env *testEnv) adminToken(t *testing.T) string {
	return env.login(t, memdb.DemoSubdomain, memdb.DemoEmail, memdb.DemoPassword).Token
}

// userToken creates a demo school account with role and logs it in.
func (env *testEnv) userToken(t *testing.T, email, role string) (string, memdb.User) {
	usr, err := env.demo.CreateUser(memdb.NewUser{Name: "User " + role, Email: email, Password: "secret1", Role: role})
	require.NoError(t, err)
	return env.login(t, memdb.DemoSubdomain, email, "secret1").Token, usr
}

// decodeData decodes the data of a successful envelope.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) core.Envelope {
	var env core.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.True(t, env.Success, rec.Body.String())
	require.NoError(t, env.Decode(v))
	return env
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj(): %v", err)
	}
	return data
}

func errBody(t *testing.T, msg string, fldErrs ...map[string]string) []byte {
	body := map[string]interface{}{"success": false, "message": msg}
	if len(fldErrs) > 0 {
		body["errors"] = fldErrs[0]
	}
	return marshalObj(t, body)
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
