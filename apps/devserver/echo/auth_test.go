package echoapi_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/educloud/apps/devserver/memdb"
	"github.com/trezcool/educloud/core/school"
	"github.com/trezcool/educloud/core/session"
)

func Test_tenantMiddleware(t *testing.T) {
	env := setup(t)
	creds := marshalObj(t, map[string]string{"email": memdb.DemoEmail, "password": memdb.DemoPassword})
	notFound := errBody(t, "Tenant not found")

	env.run(t, []httpTest{
		{name: "no tenant", method: http.MethodPost, path: "/api/auth/login", body: creds, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "unknown tenant", method: http.MethodPost, path: "/api/auth/login", body: creds, tenant: "nowhere", wantCode: http.StatusNotFound, wantData: notFound},
		{name: "unknown tenant on authed route", method: http.MethodGet, path: "/api/students", tenant: "nowhere", wantCode: http.StatusNotFound, wantData: notFound},
		{name: "known tenant", method: http.MethodPost, path: "/api/auth/login", body: creds, tenant: "DEMO", wantCode: http.StatusOK},
	})

	// the tenant may come from the host
	req, rec := newTenantRequest(http.MethodPost, "/api/auth/login", "", "", creds)
	req.Host = "demo.educloud.com"
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_authApi_login(t *testing.T) {
	env := setup(t)

	env.run(t, []httpTest{
		{
			name:     "invalid data",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     marshalObj(t, map[string]string{"email": "nope"}),
			tenant:   memdb.DemoSubdomain,
			wantCode: http.StatusUnprocessableEntity,
			wantData: errBody(t, "Validation failed", map[string]string{
				"email":    "email must be a valid email address",
				"password": "this field is required",
			}),
		},
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     marshalObj(t, map[string]string{"email": memdb.DemoEmail, "password": "wrong"}),
			tenant:   memdb.DemoSubdomain,
			wantCode: http.StatusUnauthorized,
			wantData: errBody(t, "Invalid email or password"),
		},
		{
			name:     "unknown user",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     marshalObj(t, map[string]string{"email": "who@demo.educloud.com", "password": "demo123"}),
			tenant:   memdb.DemoSubdomain,
			wantCode: http.StatusUnauthorized,
			wantData: errBody(t, "Invalid email or password"),
		},
	})

	data := env.login(t, memdb.DemoSubdomain, " ADMIN@demo.educloud.com", memdb.DemoPassword)
	assert.Equal(t, memdb.DemoEmail, data.User.Email)
	assert.Equal(t, school.RoleAdmin, data.User.Role)
	assert.Equal(t, memdb.DemoSubdomain, data.Tenant.Subdomain)
	assert.NotEmpty(t, data.RefreshToken)

	claims, err := session.ParseClaims(data.Token)
	require.NoError(t, err)
	assert.Equal(t, data.User.ID, claims.UserID())
	assert.Equal(t, memdb.DemoSubdomain, claims.Tenant)
	assert.Equal(t, school.RoleAdmin, claims.Role)
}

func Test_authApi_me(t *testing.T) {
	env := setup(t)
	token := env.adminToken(t)

	// a token of another school
	other, err := env.db.CreateTenant("Oak Ridge", "oakridge")
	require.NoError(t, err)
	_, err = other.CreateUser(memdb.NewUser{Name: "Oak", Email: "admin@oak.test", Password: "secret1", Role: school.RoleAdmin})
	require.NoError(t, err)
	otherToken := env.login(t, "oakridge", "admin@oak.test", "secret1").Token

	env.run(t, []httpTest{
		{name: "no token", method: http.MethodGet, path: "/api/auth/me", tenant: memdb.DemoSubdomain, wantCode: http.StatusUnauthorized, wantData: errBody(t, "missing or malformed jwt")},
		{name: "bad token", method: http.MethodGet, path: "/api/auth/me", tenant: memdb.DemoSubdomain, token: "abc.def.ghi", wantCode: http.StatusUnauthorized},
		{name: "other school", method: http.MethodGet, path: "/api/auth/me", tenant: memdb.DemoSubdomain, token: otherToken, wantCode: http.StatusUnauthorized, wantData: errBody(t, "token not valid for this school")},
	})

	rec := env.do(http.MethodGet, "/api/auth/me", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var data struct {
		User school.User `json:"user"`
	}
	decodeData(t, rec, &data)
	assert.Equal(t, memdb.DemoEmail, data.User.Email)
	assert.False(t, data.User.LastLogin.IsZero())
}

func Test_authApi_refresh(t *testing.T) {
	env := setup(t)
	auth := env.login(t, memdb.DemoSubdomain, memdb.DemoEmail, memdb.DemoPassword)
	body := marshalObj(t, map[string]string{"refreshToken": auth.RefreshToken})

	rec := env.do(http.MethodPost, "/api/auth/refresh", "", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var pair struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
	}
	decodeData(t, rec, &pair)
	assert.NotEmpty(t, pair.Token)
	assert.NotEqual(t, auth.RefreshToken, pair.RefreshToken)

	env.run(t, []httpTest{
		{name: "reused refresh token", method: http.MethodPost, path: "/api/auth/refresh", body: body, tenant: memdb.DemoSubdomain, wantCode: http.StatusUnauthorized, wantData: errBody(t, "Invalid or expired refresh token")},
		{name: "missing refresh token", method: http.MethodPost, path: "/api/auth/refresh", body: []byte(`{}`), tenant: memdb.DemoSubdomain, wantCode: http.StatusUnauthorized, wantData: errBody(t, "Invalid or expired refresh token")},
	})

	// logout revokes the rotated refresh token
	rotated := marshalObj(t, map[string]string{"refreshToken": pair.RefreshToken})
	rec = env.do(http.MethodPost, "/api/auth/logout", "", rotated)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(http.MethodPost, "/api/auth/refresh", "", rotated)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func Test_authApi_register(t *testing.T) {
	env := setup(t)
	body := marshalObj(t, map[string]string{
		"schoolName": "Oak Ridge",
		"name":       "Olivia",
		"email":      "olivia@oakridge.test",
		"password":   "secret1",
	})

	req, rec := newTenantRequest(http.MethodPost, "/api/auth/register", "oak-ridge", "", body)
	env.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var data authData
	decodeData(t, rec, &data)
	assert.Equal(t, "oak-ridge", data.Tenant.Subdomain)
	assert.Equal(t, school.RoleAdmin, data.User.Role)

	_, err := env.db.Tenant("oak-ridge")
	assert.NoError(t, err)

	env.run(t, []httpTest{
		{name: "taken subdomain", method: http.MethodPost, path: "/api/auth/register", body: body, tenant: "oak-ridge", wantCode: http.StatusConflict, wantData: errBody(t, memdb.ErrTenantExists.Error())},
		{
			name:     "no subdomain",
			method:   http.MethodPost,
			path:     "/api/auth/register",
			body:     body,
			wantCode: http.StatusUnprocessableEntity,
			wantData: errBody(t, "Validation failed", map[string]string{"subdomain": "this field is required"}),
		},
	})
}

func Test_authApi_passwordReset(t *testing.T) {
	env := setup(t)

	rec := env.do(http.MethodPost, "/api/auth/forgot-password", "", marshalObj(t, map[string]string{"email": "nobody@demo.educloud.com"}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.mail.Sent())

	rec = env.do(http.MethodPost, "/api/auth/forgot-password", "", marshalObj(t, map[string]string{"email": memdb.DemoEmail}))
	require.Equal(t, http.StatusOK, rec.Code)
	sent := env.mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, memdb.DemoEmail, sent[0].To[0].Address)
	token := strings.Split(sent[0].TextContent, "\n")[4]

	env.run(t, []httpTest{
		{
			name:     "invalid token",
			method:   http.MethodPost,
			path:     "/api/auth/reset-password",
			body:     marshalObj(t, map[string]string{"token": "nope", "password": "newpass1"}),
			tenant:   memdb.DemoSubdomain,
			wantCode: http.StatusUnprocessableEntity,
			wantData: errBody(t, "Validation failed", map[string]string{"token": memdb.ErrInvalidToken.Error()}),
		},
		{
			name:     "valid token",
			method:   http.MethodPost,
			path:     "/api/auth/reset-password",
			body:     marshalObj(t, map[string]string{"token": token, "password": "newpass1"}),
			tenant:   memdb.DemoSubdomain,
			wantCode: http.StatusOK,
		},
		{
			name:     "token already used",
			method:   http.MethodPost,
			path:     "/api/auth/reset-password",
			body:     marshalObj(t, map[string]string{"token": token, "password": "newpass2"}),
			tenant:   memdb.DemoSubdomain,
			wantCode: http.StatusUnprocessableEntity,
		},
	})

	env.login(t, memdb.DemoSubdomain, memdb.DemoEmail, "newpass1")
}

func Test_authApi_changePassword(t *testing.T) {
	env := setup(t)
	token := env.adminToken(t)

	rec := env.do(http.MethodPut, "/api/auth/change-password", token, marshalObj(t, map[string]string{
		"currentPassword": "wrong", "newPassword": "newpass1",
	}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(http.MethodPut, "/api/auth/change-password", token, marshalObj(t, map[string]string{
		"currentPassword": memdb.DemoPassword, "newPassword": "newpass1",
	}))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env.login(t, memdb.DemoSubdomain, memdb.DemoEmail, "newpass1")
}
