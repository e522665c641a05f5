package echoapi

import (
	"fmt"
	"net/http"
	"net/mail"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educloud/apps/devserver/memdb"
	"github.com/trezcool/educloud/core"
	"github.com/trezcool/educloud/core/school"
)

type (
	LoginRequest struct {
		SchoolName string `json:"schoolName"`
		Email      string `json:"email" validate:"required,email"`
		Password   string `json:"password" validate:"required"`
	}

	RegisterRequest struct {
		SchoolName string `json:"schoolName" validate:"required"`
		Subdomain  string `json:"subdomain" validate:"omitempty,subdomain"`
		Name       string `json:"name" validate:"required"`
		Email      string `json:"email" validate:"required,email"`
		Password   string `json:"password" validate:"required,min=6"`
		Phone      string `json:"phone"`
	}

	RefreshRequest struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	PasswordResetConfirm struct {
		Token    string `json:"token" validate:"required"`
		Password string `json:"password" validate:"required,min=6"`
	}

	ChangePasswordRequest struct {
		CurrentPassword string `json:"currentPassword" validate:"required"`
		NewPassword     string `json:"newPassword" validate:"required,min=6"`
	}

	// AuthResponse is the payload of a successful login or registration.
	AuthResponse struct {
		User         school.User    `json:"user"`
		Tenant       *school.Tenant `json:"tenant"`
		Token        string         `json:"token"`
		RefreshToken string         `json:"refreshToken"`
	}
)

func registerAuthAPI(g *echo.Group, s *server, authed ...echo.MiddlewareFunc) {
	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", s.login)
	ag.POST("/refresh", s.refreshToken)
	ag.POST("/logout", s.logout)
	ag.POST("/forgot-password", s.forgotPassword)
	ag.POST("/reset-password", s.resetPassword)

	// authed endpoints
	ag.GET("/me", s.me, authed...)
	ag.PUT("/change-password", s.changePassword, authed...)
}

func (s *server) authResponse(ctx echo.Context, code int, message string, tdb *memdb.TenantDB, usr memdb.User) error {
	toks, err := s.auth.issue(tdb, usr)
	if err != nil {
		return errors.Wrap(err, "issuing tokens")
	}
	info := tdb.Info
	return respond(ctx, code, message, AuthResponse{
		User:         usr.User,
		Tenant:       &info,
		Token:        toks.Token,
		RefreshToken: toks.RefreshToken,
	})
}

func (s *server) register(ctx echo.Context) error {
	var data RegisterRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RegisterRequest")
	}
	if data.Subdomain == "" {
		data.Subdomain = requestSubdomain(ctx)
	}
	data.Subdomain = core.CleanString(data.Subdomain, true /* lower */)
	data.Email = core.CleanString(data.Email, true /* lower */)
	if err := s.validate.Struct(&data); err != nil {
		return err
	}
	if data.Subdomain == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "subdomain", Error: "this field is required"})
	}

	tdb, err := s.opts.DB.CreateTenant(data.SchoolName, data.Subdomain)
	if err != nil {
		return errors.Wrap(err, "creating tenant")
	}
	usr, err := tdb.CreateUser(memdb.NewUser{
		Name:     data.Name,
		Email:    data.Email,
		Password: data.Password,
		Role:     school.RoleAdmin,
	})
	if err != nil {
		return errors.Wrap(err, "creating school admin")
	}
	return s.authResponse(ctx, http.StatusCreated, "School registered", tdb, usr)
}

func (s *server) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	data.Email = core.CleanString(data.Email, true /* lower */)
	if err := s.validate.Struct(&data); err != nil {
		return err
	}

	tdb := getContextTenant(ctx)
	usr, err := authenticate(tdb, data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	return s.authResponse(ctx, http.StatusOK, "Login successful", tdb, usr)
}

func (s *server) refreshToken(ctx echo.Context) error {
	var data RefreshRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RefreshRequest")
	}
	if data.RefreshToken == "" {
		return errRefreshInvalid
	}

	tdb := getContextTenant(ctx)
	uid, err := tdb.ConsumeRefresh(data.RefreshToken)
	if err != nil {
		return errRefreshInvalid
	}
	usr, err := tdb.UserByID(uid)
	if err != nil {
		return errRefreshInvalid
	}
	if !usr.IsActive {
		return errAccountDeactivated
	}

	toks, err := s.auth.issue(tdb, usr)
	if err != nil {
		return errors.Wrap(err, "issuing tokens")
	}
	return ok(ctx, toks)
}

func (s *server) logout(ctx echo.Context) error {
	var data RefreshRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RefreshRequest")
	}
	if data.RefreshToken != "" {
		_, _ = getContextTenant(ctx).ConsumeRefresh(data.RefreshToken)
	}
	return respond(ctx, http.StatusOK, "Logged out", nil)
}

func (s *server) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ok(ctx, echo.Map{"user": usr.User})
}

func (s *server) changePassword(ctx echo.Context) error {
	var data ChangePasswordRequest
	if err := s.bindAndValidate(ctx, &data); err != nil {
		return err
	}

	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := usr.CheckPassword(data.CurrentPassword); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "currentPassword", Error: "current password is incorrect"})
	}
	if err := usr.SetPassword(data.NewPassword); err != nil {
		return errors.Wrap(err, "setting password")
	}
	if err := getContextTenant(ctx).SaveUser(usr); err != nil {
		return errors.Wrap(err, "saving user")
	}
	return respond(ctx, http.StatusOK, "Password changed", nil)
}

func (s *server) forgotPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := s.bindAndValidate(ctx, &data); err != nil {
		return err
	}

	// do not tell attackers whether the account exists
	if usr, err := getContextTenant(ctx).UserByEmail(data.Email); err == nil && usr.IsActive {
		if err := s.sendPasswordResetMail(usr); err != nil {
			ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
		}
	}
	return respond(ctx, http.StatusOK,
		"If the email address supplied is associated with an active account on this system, "+
			"an email will arrive in your inbox shortly with instructions to reset your password.",
		nil,
	)
}

func (s *server) sendPasswordResetMail(usr memdb.User) error {
	token, err := s.resets.Make(usr)
	if err != nil {
		return errors.Wrap(err, "making reset token")
	}
	s.opts.MailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: fmt.Sprintf("%s password reset", s.opts.Config.AppName),
		TextContent: fmt.Sprintf(
			"Hi %s,\n\nUse the following token to reset your password:\n\n%s\n\nIgnore this email if you did not request it.",
			usr.Name, token,
		),
	})
	return nil
}

func (s *server) resetPassword(ctx echo.Context) error {
	var data PasswordResetConfirm
	if err := s.bindAndValidate(ctx, &data); err != nil {
		return err
	}

	tdb := getContextTenant(ctx)
	usr, err := s.resets.Verify(tdb, data.Token)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "token", Error: err.Error()})
	}
	if err := usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	if err := tdb.SaveUser(usr); err != nil {
		return errors.Wrap(err, "saving user")
	}
	return respond(ctx, http.StatusOK, "Password has been reset with the new password.", nil)
}
