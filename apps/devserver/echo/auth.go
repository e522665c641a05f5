package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/educloud/apps/devserver/memdb"
	"github.com/trezcool/educloud/core"
	"github.com/trezcool/educloud/core/session"
)

const contextUserKey = "user"

// authenticator issues access tokens (JWT) and refresh tokens (opaque, single use).
type authenticator struct {
	conf      core.DevServerConfig
	jwtConfig middleware.JWTConfig
}

func newAuthenticator(conf core.DevServerConfig) *authenticator {
	return &authenticator{
		conf: conf,
		jwtConfig: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    "userToken",
			Claims:        new(session.Claims),
		},
	}
}

// tokens is the token pair returned on login and refresh.
type tokens struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

func (a *authenticator) userClaims(usr memdb.User) *session.Claims {
	now := time.Now()
	return &session.Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    "educloud-devserver",
			Subject:   usr.ID,
			ExpiresAt: now.Add(a.conf.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:   usr.Name,
		Email:  usr.Email,
		Role:   usr.Role,
		Tenant: usr.Tenant,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func (a *authenticator) GenerateToken(claims *session.Claims) (string, error) {
	method := jwt.GetSigningMethod(a.jwtConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(a.jwtConfig.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func (a *authenticator) issue(tdb *memdb.TenantDB, usr memdb.User) (tokens, error) {
	access, err := a.GenerateToken(a.userClaims(usr))
	if err != nil {
		return tokens{}, err
	}
	return tokens{Token: access, RefreshToken: tdb.GrantRefresh(usr.ID, a.conf.RefreshExpirationDelta)}, nil
}

func authenticate(tdb *memdb.TenantDB, email, pwd string) (memdb.User, error) {
	usr, err := tdb.UserByEmail(email)
	if err != nil {
		if err == memdb.ErrUserNotFound {
			return memdb.User{}, errAuthenticationFailed
		}
		return memdb.User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return memdb.User{}, errAuthenticationFailed
	}
	if !usr.IsActive {
		return memdb.User{}, errAccountDeactivated
	}
	usr.LastLogin = time.Now().UTC()
	if err := tdb.SaveUser(usr); err != nil {
		return memdb.User{}, errors.Wrap(err, "setting lastLogin")
	}
	return usr, nil
}

func getContextClaims(ctx echo.Context) (*session.Claims, error) {
	if token, ok := ctx.Get("userToken").(*jwt.Token); ok {
		if claims, ok := token.Claims.(*session.Claims); ok {
			return claims, nil
		}
	}
	return nil, errUnauthorized
}

func getContextUser(ctx echo.Context) (memdb.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(memdb.User); ok {
		return usr, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return memdb.User{}, err
	}
	usr, err := getContextTenant(ctx).UserByID(claims.UserID())
	if err != nil {
		return memdb.User{}, errUnauthorized
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

// tenantTokenMiddleware rejects tokens issued by another school and deactivated accounts.
func tenantTokenMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return err
		}
		if claims.Tenant != getContextTenant(ctx).Info.Subdomain {
			return errWrongTenant
		}
		usr, err := getContextUser(ctx)
		if err != nil {
			return err
		}
		if !usr.IsActive {
			return errAccountDeactivated
		}
		return next(ctx)
	}
}

// adminMiddleware restricts a route to admins and the given extra roles.
func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if usr.IsAdmin() {
				return next(ctx)
			}
			for _, role := range roles {
				if usr.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}
