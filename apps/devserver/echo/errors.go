package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/educloud/apps/devserver/memdb"
	"github.com/trezcool/educloud/core"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshInvalid       = echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired refresh token")
	errWrongTenant          = echo.NewHTTPError(http.StatusUnauthorized, "token not valid for this school")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errTenantNotFound       = echo.NewHTTPError(http.StatusNotFound, "Tenant not found")
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func notFound(what string) error {
	return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("%s not found", what))
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		res := errorResponse{}
		var code int

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				res.Message = fmt.Sprint(origErr.Message)
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			res.Message = fmt.Sprint(origErr.Message)
		case validator.ValidationErrors, *core.ValidationError:
			code = http.StatusUnprocessableEntity
			res.Message = "Validation failed"
			res.Errors = core.FieldErrors(origErr, translator)
		default:
			switch errors.Cause(err) {
			case memdb.ErrNotFound:
				code = http.StatusNotFound
				res.Message = "Record not found"
			case memdb.ErrEmailExists, memdb.ErrTenantExists:
				code = http.StatusConflict
				res.Message = errors.Cause(err).Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				res.Message = http.StatusText(http.StatusInternalServerError)

				extras := map[string]interface{}{"path": ctx.Path()}
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					extras["user"] = claims.UserID()
					extras["tenant"] = claims.Tenant
				}
				logger.Error(res.Message, errors.Wrap(err, res.Message), extras)
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			res.Message = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, res)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
