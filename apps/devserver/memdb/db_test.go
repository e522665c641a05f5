package memdb

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDB_tenants(t *testing.T) {
	db := Open()
	tdb, err := db.CreateTenant(" Oak Ridge ", "OakRidge")
	require.NoError(t, err)
	assert.Equal(t, "oakridge", tdb.Info.Subdomain)
	assert.Equal(t, "Oak Ridge", tdb.Info.Name)

	_, err = db.CreateTenant("Again", "oakridge")
	assert.Equal(t, ErrTenantExists, err)
	_, err = db.CreateTenant("Bad", "bad.name")
	assert.Error(t, err)

	got, err := db.Tenant("OAKRIDGE")
	require.NoError(t, err)
	assert.Same(t, tdb, got)
	_, err = db.Tenant("nowhere")
	assert.Equal(t, ErrTenantNotFound, err)
}

func TestTenantDB_records(t *testing.T) {
	tdb, err := Open().CreateTenant("Test", "test")
	require.NoError(t, err)

	assert.Empty(t, tdb.Query(TableStudents, Filter{}))

	a := tdb.Insert(TableStudents, Record{"firstName": "Zoe", "classId": "c1"})
	b := tdb.Insert(TableStudents, Record{"id": "s-2", "firstName": "Adam", "classId": "c2"})
	tdb.Insert(TableStudents, Record{"firstName": "Eve", "classId": "c1"})
	assert.NotEmpty(t, a.ID())
	assert.Equal(t, "s-2", b.ID())

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "all", want: []string{"Zoe", "Adam", "Eve"}},
		{name: "equals", filter: Filter{Equals: map[string]string{"classId": "C1"}}, want: []string{"Zoe", "Eve"}},
		{name: "search", filter: Filter{Search: "  a", SearchFields: []string{"firstName"}}, want: []string{"Adam"}},
		{name: "sort asc", filter: Filter{Sort: "firstName"}, want: []string{"Adam", "Eve", "Zoe"}},
		{name: "sort desc", filter: Filter{Sort: "-firstName"}, want: []string{"Zoe", "Eve", "Adam"}},
		{name: "no match", filter: Filter{Equals: map[string]string{"classId": "c9"}}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			names := []string{}
			for _, rec := range tdb.Query(TableStudents, tt.filter) {
				names = append(names, rec.String("firstName"))
			}
			assert.Equal(t, tt.want, names)
		})
	}

	rec, err := tdb.Update(TableStudents, "s-2", Record{"id": "hijack", "lastName": "Smith"})
	require.NoError(t, err)
	assert.Equal(t, "s-2", rec.ID())
	assert.Equal(t, "Smith", rec.String("lastName"))

	// returned records are copies
	rec["lastName"] = "Changed"
	stored, err := tdb.Get(TableStudents, "s-2")
	require.NoError(t, err)
	assert.Equal(t, "Smith", stored.String("lastName"))

	require.NoError(t, tdb.Delete(TableStudents, "s-2"))
	_, err = tdb.Get(TableStudents, "s-2")
	assert.Equal(t, ErrNotFound, err)
	assert.Equal(t, ErrNotFound, tdb.Delete(TableStudents, "s-2"))
	_, err = tdb.Update(TableTeachers, "x", Record{})
	assert.Equal(t, ErrNotFound, err)
	assert.Len(t, tdb.Query(TableStudents, Filter{}), 2)
}

func TestTenantDB_users(t *testing.T) {
	tdb, err := Open().CreateTenant("Test", "test")
	require.NoError(t, err)

	usr, err := tdb.CreateUser(NewUser{Name: "Jane", Email: " Jane@Test.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "jane@test.com", usr.Email)
	assert.Equal(t, "student", usr.Role)
	assert.Equal(t, "test", usr.Tenant)
	assert.NoError(t, usr.CheckPassword("secret1"))
	assert.Error(t, usr.CheckPassword("nope"))

	_, err = tdb.CreateUser(NewUser{Name: "Jane 2", Email: "jane@test.com", Password: "secret1"})
	assert.Equal(t, ErrEmailExists, err)

	got, err := tdb.UserByEmail("JANE@test.com")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	got.Name = "Janet"
	require.NoError(t, tdb.SaveUser(got))
	got, err = tdb.UserByID(usr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Janet", got.Name)

	_, err = tdb.UserByID("nope")
	assert.Equal(t, ErrUserNotFound, err)
	assert.Equal(t, ErrUserNotFound, tdb.SaveUser(User{}))
}

func TestTenantDB_refreshGrants(t *testing.T) {
	tdb, err := Open().CreateTenant("Test", "test")
	require.NoError(t, err)

	token := tdb.GrantRefresh("u-1", time.Hour)
	uid, err := tdb.ConsumeRefresh(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", uid)

	// single use
	_, err = tdb.ConsumeRefresh(token)
	assert.Equal(t, ErrNotFound, err)

	expired := tdb.GrantRefresh("u-1", -time.Second)
	_, err = tdb.ConsumeRefresh(expired)
	assert.Equal(t, ErrNotFound, err)
}

func TestResetTokens(t *testing.T) {
	tdb, err := Open().CreateTenant("Test", "test")
	require.NoError(t, err)
	usr, err := tdb.CreateUser(NewUser{Name: "T", Email: "t@test.test", Password: "pwd123"})
	require.NoError(t, err)

	timeout := 3 * 24 * time.Hour
	rt := NewResetTokens("secret", timeout)
	validToken, err := rt.Make(usr)
	require.NoError(t, err)

	// generate an expired token
	dayLate := timeout + (24 * time.Hour)
	rt.now = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, err := rt.Make(usr)
	require.NoError(t, err)
	rt.now = time.Now

	uid, _, _ := strings.Cut(validToken, ".")

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "no token", wantErr: ErrInvalidToken},
		{name: "no uid", token: "lmaooolol", wantErr: ErrInvalidToken},
		{name: "unknown uid", token: "dW5rbm93bg.HE4TS-sig", wantErr: ErrInvalidToken},
		{name: "invalid parts len", token: uid + ".lmaooolol", wantErr: ErrInvalidToken},
		{name: "invalid base32", token: uid + ".hahaha-sigsig-sig", wantErr: ErrInvalidToken},
		{name: "invalid timestamp", token: uid + ".NRXWY-sigsig-sig", wantErr: ErrInvalidToken},
		{name: "invalid token", token: uid + ".HE4TS-sigsig-sig", wantErr: ErrInvalidToken},
		{name: "expired token", token: expiredToken, wantErr: ErrTokenExpired},
		{name: "valid token", token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rt.Verify(tdb, tt.token)
			assert.Equal(t, tt.wantErr, err)
			if tt.wantErr == nil {
				assert.Equal(t, usr.ID, got.ID)
			}
		})
	}

	// a password change invalidates the token
	require.NoError(t, usr.SetPassword("changed"))
	require.NoError(t, tdb.SaveUser(usr))
	_, err = rt.Verify(tdb, validToken)
	assert.Equal(t, ErrInvalidToken, err)
}

func TestSeed(t *testing.T) {
	db := Open()
	tdb, err := Seed(db)
	require.NoError(t, err)

	got, err := db.Tenant(DemoSubdomain)
	require.NoError(t, err)
	assert.Same(t, tdb, got)

	admin, err := tdb.UserByEmail(DemoEmail)
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
	assert.NoError(t, admin.CheckPassword(DemoPassword))
	assert.Len(t, tdb.Query(TableStudents, Filter{}), 2)
	assert.Len(t, tdb.Query(TableInvoices, Filter{}), 1)

	_, err = Seed(db)
	assert.Error(t, err)
}
