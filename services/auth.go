package services

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/educloud/core"
	"github.com/trezcool/educloud/core/school"
	"github.com/trezcool/educloud/core/session"
	"github.com/trezcool/educloud/transport"
)

// TenantSwitcher persists the tenant the next requests are sent to.
type TenantSwitcher interface {
	Switch(subdomain string) error
}

// SessionStore persists the token pair.
type SessionStore interface {
	Get() (session.Session, error)
	Set(sess session.Session) error
	Clear() error
}

type (
	LoginInput struct {
		SchoolName string `json:"schoolName,omitempty"`
		Email      string `json:"email"`
		Password   string `json:"password"`
	}

	RegisterInput struct {
		SchoolName string `json:"schoolName"`
		Subdomain  string `json:"subdomain,omitempty"`
		Name       string `json:"name"`
		Email      string `json:"email"`
		Password   string `json:"password"`
		Phone      string `json:"phone,omitempty"`
	}

	AuthResult struct {
		User         school.User    `json:"user"`
		Tenant       *school.Tenant `json:"tenant,omitempty"`
		Token        string         `json:"token"`
		RefreshToken string         `json:"refreshToken"`
	}
)

type AuthService struct {
	api      API
	tenants  TenantSwitcher
	sessions SessionStore
	logger   core.Logger
}

// Login switches to the school's tenant, signs in and persists the issued tokens.
func (svc *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if in.SchoolName != "" {
		if err := svc.tenants.Switch(in.SchoolName); err != nil {
			return nil, err
		}
	}
	return svc.authenticate(ctx, "/auth/login", in)
}

// Register creates a school and its admin account, then signs in as that admin.
func (svc *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	sub := in.Subdomain
	if sub == "" {
		sub = in.SchoolName
	}
	if err := svc.tenants.Switch(sub); err != nil {
		return nil, err
	}
	return svc.authenticate(ctx, "/auth/register", in)
}

func (svc *AuthService) authenticate(ctx context.Context, path string, body interface{}) (*AuthResult, error) {
	env, err := svc.api.Post(ctx, path, body, transport.WithoutRefresh())
	if err != nil {
		return nil, err
	}
	res := new(AuthResult)
	if err := env.Decode(res); err != nil {
		return nil, err
	}
	if err := svc.sessions.Set(session.Session{AccessToken: res.Token, RefreshToken: res.RefreshToken}); err != nil {
		return nil, errors.Wrap(err, "storing session")
	}
	return res, nil
}

// Logout revokes the refresh token server side when possible; the local session is always cleared.
func (svc *AuthService) Logout(ctx context.Context) error {
	sess, err := svc.sessions.Get()
	if err == nil && sess.Valid() {
		if _, err := svc.api.Post(ctx, "/auth/logout", map[string]string{"refreshToken": sess.RefreshToken}, transport.WithoutRefresh()); err != nil {
			svc.logger.Warn("revoking session", err)
		}
	}
	return svc.sessions.Clear()
}

// Me returns the signed in user.
func (svc *AuthService) Me(ctx context.Context) (school.User, error) {
	env, err := svc.api.Get(ctx, "/auth/me", nil)
	if err != nil {
		return school.User{}, err
	}
	return decodeItem[school.User](env, "user")
}

func (svc *AuthService) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	_, err := svc.api.Put(ctx, "/auth/change-password", map[string]string{
		"currentPassword": currentPassword,
		"newPassword":     newPassword,
	})
	return err
}

// RequestPasswordReset asks the API to mail a reset link.
func (svc *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	_, err := svc.api.Post(ctx, "/auth/forgot-password", map[string]string{"email": email}, transport.WithoutRefresh())
	return err
}

func (svc *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	_, err := svc.api.Post(ctx, "/auth/reset-password", map[string]string{
		"token":    token,
		"password": password,
	}, transport.WithoutRefresh())
	return err
}
