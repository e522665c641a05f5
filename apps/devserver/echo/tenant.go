package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/educloud/apps/devserver/memdb"
	"github.com/trezcool/educloud/core/tenant"
	"github.com/trezcool/educloud/transport"
)

const contextTenantKey = "tenant"

// requestSubdomain reads the tenant from the X-Tenant-Subdomain header, falling back to the request host.
func requestSubdomain(ctx echo.Context) string {
	if sub := ctx.Request().Header.Get(transport.HeaderTenant); sub != "" {
		return sub
	}
	return tenant.SubdomainFromHost(ctx.Request().Host)
}

// tenantMiddleware answers 404 "Tenant not found" unless the request names an active school.
func tenantMiddleware(db *memdb.DB) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sub := requestSubdomain(ctx)
			if sub == "" {
				return errTenantNotFound
			}
			tdb, err := db.Tenant(sub)
			if err != nil {
				return errTenantNotFound
			}
			ctx.Set(contextTenantKey, tdb)
			return next(ctx)
		}
	}
}

// getContextTenant returns the school set by tenantMiddleware.
func getContextTenant(ctx echo.Context) *memdb.TenantDB {
	tdb, _ := ctx.Get(contextTenantKey).(*memdb.TenantDB)
	return tdb
}
