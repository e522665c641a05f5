package main

import (
	"context"
	"time"

	"github.com/trezcool/educloud/services"
)

func (cli *commandLine) login(ctx context.Context, schoolName, email, pwd string) error {
	if err := cli.sdk.AuthStore.Login(ctx, services.LoginInput{SchoolName: schoolName, Email: email, Password: pwd}); err != nil {
		return err
	}
	st := cli.sdk.AuthStore.State()
	cli.out.success("Signed in to %s as %s (%s)", st.Tenant, st.User.Name, st.User.Role)
	return nil
}

func (cli *commandLine) logout(ctx context.Context) error {
	if !cli.sdk.Sessions.IsAuthenticated() {
		cli.out.warn("Not signed in")
		return nil
	}
	if err := cli.sdk.AuthStore.Logout(ctx); err != nil {
		return err
	}
	cli.out.success("Signed out")
	return nil
}

func (cli *commandLine) whoami(ctx context.Context) error {
	if err := cli.requireSession(); err != nil {
		return err
	}
	usr, err := cli.sdk.AuthStore.RefreshUser(ctx)
	if err != nil {
		return err
	}

	rows := [][]string{
		{"Name", usr.Name},
		{"Email", usr.Email},
		{"Role", usr.Role},
		{"School", cli.sdk.Tenants.Resolve().Subdomain},
	}
	if claims, err := cli.sdk.Sessions.Claims(); err == nil && claims.ExpiresAt != 0 {
		rows = append(rows, []string{"Session expires", time.Unix(claims.ExpiresAt, 0).Format(time.RFC1123)})
	}
	cli.out.table([]string{"field", "value"}, rows)
	return nil
}

func (cli *commandLine) tenant(set string, reset bool) error {
	switch {
	case reset:
		if err := cli.sdk.Tenants.Reset(); err != nil {
			return err
		}
		cli.out.success("Forgot the chosen school")
	case set != "":
		if err := cli.sdk.Tenants.Switch(set); err != nil {
			return err
		}
		cli.out.success("Switched to %s", cli.sdk.Tenants.Resolve().Subdomain)
	}

	tc := cli.sdk.Tenants.Resolve()
	if !tc.Exists() {
		cli.out.warn("No school chosen. Run \"tenant -set SCHOOL\".")
		return nil
	}
	cli.out.info("School: %s (%s)", tc.Subdomain, tc.Source)
	cli.out.info("API: %s", tc.APIBaseURL)
	return nil
}
