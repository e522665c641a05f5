package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/educloud"
	"github.com/trezcool/educloud/apps/devserver/memdb"
	"github.com/trezcool/educloud/core"
	"github.com/trezcool/educloud/core/session"
	testutil "github.com/trezcool/educloud/tests"
)

type testCLI struct {
	*commandLine
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func (c *testCLI) reset() {
	c.stdout.Reset()
	c.stderr.Reset()
}

func setup(t *testing.T) *testCLI {
	color.NoColor = true
	srv := testutil.StartDevServer(t)

	validate, _ := core.NewValidator()
	c := &testCLI{stdout: new(bytes.Buffer), stderr: new(bytes.Buffer)}
	c.commandLine = &commandLine{validate: validate, out: &printer{out: c.stdout, errOut: c.stderr}}
	sdk, _ := testutil.NewSDK(t, srv, educloud.WithNavigator(c.commandLine))
	c.sdk = sdk
	c.conf = sdk.Config

	readPasswordFunc = func(int) ([]byte, error) { return []byte(memdb.DemoPassword), nil }
	return c
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (c *testCLI) runTests(t *testing.T, tests []cliTest, check func(t *testing.T, tc cliTest)) {
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c.reset()
			err := c.run(append([]string{"educloud"}, tc.args...))
			switch {
			case tc.wantErr != nil:
				assert.Equal(t, tc.wantErr, err)
			case tc.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tc.wantErrStr, err.Error())
			default:
				require.NoError(t, err)
			}
			if check != nil {
				check(t, tc)
			}
		})
	}
}

func Test_commandLine_run(t *testing.T) {
	cli := setup(t)

	assert.Equal(t, errHelp, cli.run([]string{"educloud"}))
	assert.Contains(t, cli.stdout.String(), "Usage:")

	cli.runTests(t, []cliTest{
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"students", "-lol"}, wantErrStr: "flag provided but not defined: -lol"},
	}, nil)
}

func Test_commandLine_login(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no email", args: []string{"login"}, wantErr: errHelp},
		{name: "invalid email", args: []string{"login", "-email", "lol"}, wantErrStr: "invalid email \"lol\""},
		{name: "no password", args: []string{"login", "-email", memdb.DemoEmail}, wantErr: errHelp, extra: ""},
		{name: "wrong password", args: []string{"login", "-email", memdb.DemoEmail}, wantErrStr: "Invalid email or password", extra: "wrong-password"},
		{name: "unknown school", args: []string{"login", "-school", "Nowhere High", "-email", memdb.DemoEmail}, wantErrStr: "Tenant not found"},
		{name: "signed in", args: []string{"login", "-school", memdb.DemoSubdomain, "-email", " " + strings.ToUpper(memdb.DemoEmail)}},
	}

	for _, tc := range tests {
		pwd := memdb.DemoPassword
		if p, ok := tc.extra.(string); ok {
			pwd = p
		}
		readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }

		cli.runTests(t, []cliTest{tc}, func(t *testing.T, tc cliTest) {
			switch tc.name {
			case "unknown school":
				assert.Contains(t, cli.stderr.String(), "This school does not exist")
				assert.Equal(t, "nowhere-high", cli.sdk.Tenants.Resolve().Subdomain)
			case "signed in":
				assert.Contains(t, cli.stdout.String(), "✓ Signed in to demo as Demo Admin (admin)")
				assert.True(t, cli.sdk.Sessions.IsAuthenticated())
			default:
				assert.False(t, cli.sdk.Sessions.IsAuthenticated())
			}
		})
	}
}

func Test_commandLine_tenant(t *testing.T) {
	cli := setup(t)

	cli.runTests(t, []cliTest{
		{name: "default", args: []string{"tenant"}, extra: "School: demo (default)"},
		{name: "switch", args: []string{"tenant", "-set", "Nowhere High"}, extra: "School: nowhere-high (stored)"},
		{name: "invalid", args: []string{"tenant", "-set", "!!"}, wantErrStr: "\"!!\": invalid tenant subdomain"},
		{name: "reset", args: []string{"tenant", "-reset"}, extra: "School: demo (default)"},
	}, func(t *testing.T, tc cliTest) {
		if want, ok := tc.extra.(string); ok {
			assert.Contains(t, cli.stdout.String(), want)
		}
	})
}

func Test_commandLine_signedOut(t *testing.T) {
	cli := setup(t)

	cli.runTests(t, []cliTest{
		{name: "whoami", args: []string{"whoami"}, wantErr: errNotSignedIn},
		{name: "students", args: []string{"students"}, wantErr: errNotSignedIn},
		{name: "invoices", args: []string{"invoices"}, wantErr: errNotSignedIn},
		{name: "invoice-pdf", args: []string{"invoice-pdf", "-id", "invoice-1"}, wantErr: errNotSignedIn},
		{name: "notifications", args: []string{"notifications"}, wantErr: errNotSignedIn},
		{name: "logout", args: []string{"logout"}},
	}, func(t *testing.T, tc cliTest) {
		assert.Contains(t, cli.stderr.String(), "Not signed in")
	})
}

func Test_commandLine_school(t *testing.T) {
	cli := setup(t)
	testutil.Login(t, cli.sdk)

	cli.runTests(t, []cliTest{
		{name: "whoami", args: []string{"whoami"}, extra: []string{"Demo Admin", memdb.DemoEmail, "admin"}},
		{name: "students", args: []string{"students"}, extra: []string{"ADM-001", "Ada Lovelace", "ADM-002", "Alan Turing", "Page 1/1 (2 students)"}},
		{name: "no students", args: []string{"students", "-search", "zzz"}, extra: []string{"No students found."}},
		{name: "invoices", args: []string{"invoices"}, extra: []string{"INV-0001", "600.00 USD", "sent", "Outstanding: 600.00"}},
		{name: "no invoices", args: []string{"invoices", "-status", "paid"}, extra: []string{"No invoices found."}},
		{name: "invoice-pdf: no id", args: []string{"invoice-pdf"}, wantErr: errHelp},
		{name: "invoice-pdf", args: []string{"invoice-pdf", "-id", "invoice-1"}, extra: []string{"✓ Saved ", "INV-0001.txt"}},
		{name: "notifications", args: []string{"notifications"}, extra: []string{"Invoice sent", "payment", "1 unread"}},
		{name: "read all", args: []string{"notifications", "-read-all"}, extra: []string{"✓ Marked every notification as read"}},
		{name: "no unread notifications", args: []string{"notifications", "-unread"}, extra: []string{"No notifications found."}},
		{name: "logout", args: []string{"logout"}, extra: []string{"✓ Signed out"}},
	}, func(t *testing.T, tc cliTest) {
		want, _ := tc.extra.([]string)
		for _, s := range want {
			assert.Contains(t, cli.stdout.String(), s)
		}
	})
	assert.False(t, cli.sdk.Sessions.IsAuthenticated())
}

func Test_commandLine_sessionExpired(t *testing.T) {
	cli := setup(t)
	testutil.Login(t, cli.sdk)
	require.NoError(t, cli.sdk.Sessions.Set(session.Session{AccessToken: "expired", RefreshToken: "stale"}))

	cli.runTests(t, []cliTest{
		{name: "refresh rejected", args: []string{"students"}, wantErrStr: "Invalid or expired refresh token"},
	}, func(t *testing.T, tc cliTest) {
		assert.Contains(t, cli.stderr.String(), "⚠ Your session has expired")
		assert.False(t, cli.sdk.Sessions.IsAuthenticated())
	})
}
