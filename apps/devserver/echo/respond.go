package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educloud/apps/devserver/memdb"
	"github.com/trezcool/educloud/core"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

func respond(ctx echo.Context, code int, message string, data interface{}) error {
	env, err := core.NewEnvelope(message, data)
	if err != nil {
		return errors.Wrap(err, "building envelope")
	}
	return ctx.JSON(code, env)
}

func ok(ctx echo.Context, data interface{}) error {
	return respond(ctx, http.StatusOK, "", data)
}

// pageParams are the common listing query parameters.
type pageParams struct {
	Page   int
	Limit  int
	Search string
	Sort   string
}

func bindPage(ctx echo.Context) pageParams {
	p := pageParams{
		Page:   atoi(ctx.QueryParam("page"), 1),
		Limit:  atoi(ctx.QueryParam("limit"), defaultPageLimit),
		Search: ctx.QueryParam("search"),
		Sort:   ctx.QueryParam("sort"),
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p
}

func atoi(s string, def int) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// paginate slices rows to the requested page.
func paginate(rows []memdb.Record, p pageParams) ([]memdb.Record, core.Pagination) {
	pg := core.Pagination{Page: p.Page, Limit: p.Limit, Total: len(rows)}
	pg.TotalPages = (len(rows) + p.Limit - 1) / p.Limit

	start := (p.Page - 1) * p.Limit
	if start >= len(rows) {
		return []memdb.Record{}, pg
	}
	end := start + p.Limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end], pg
}

// respondList answers a listing as {<key>: [...], pagination}.
// An empty listing is a 404 "No <label> found" when legacy empty results are on.
func (s *server) respondList(ctx echo.Context, key, label string, rows []memdb.Record) error {
	if len(rows) == 0 && s.opts.Config.DevServer.LegacyEmptyResults {
		return echo.NewHTTPError(http.StatusNotFound, "No "+label+" found")
	}
	page, pg := paginate(rows, bindPage(ctx))
	return ok(ctx, echo.Map{key: page, "pagination": pg})
}
