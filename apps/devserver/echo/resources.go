package echoapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educloud/apps/devserver/memdb"
	"github.com/trezcool/educloud/core"
	"github.com/trezcool/educloud/core/school"
)

// resource describes a REST collection backed by a memdb table.
type resource struct {
	table    string
	key      string // list key
	singular string // item key
	label    string // as in "No <label> found"
	search   []string
	filters  []string // query parameters matched by equality
	required []string
	writers  []string // roles allowed to write, besides admins
	prepare  func(ctx echo.Context, tdb *memdb.TenantDB, rec memdb.Record) error
}

var (
	resStudents = &resource{
		table: memdb.TableStudents, key: "students", singular: "student", label: "students",
		search:   []string{"firstName", "lastName", "admissionNumber", "email"},
		filters:  []string{"classId", "status", "gender"},
		required: []string{"firstName", "lastName"},
		prepare:  prepareStudent,
	}
	resTeachers = &resource{
		table: memdb.TableTeachers, key: "teachers", singular: "teacher", label: "teachers",
		search:   []string{"firstName", "lastName", "email", "employeeId"},
		required: []string{"firstName", "lastName", "email"},
		prepare:  defaults(memdb.Record{"isActive": true}),
	}
	resClasses = &resource{
		table: memdb.TableClasses, key: "classes", singular: "class", label: "classes",
		search:   []string{"name"},
		filters:  []string{"grade", "academicYear"},
		required: []string{"name", "grade"},
	}
	resSubjects = &resource{
		table: memdb.TableSubjects, key: "subjects", singular: "subject", label: "subjects",
		search:   []string{"name", "code"},
		required: []string{"name", "code"},
	}
	resGrades = &resource{
		table: memdb.TableGrades, key: "grades", singular: "grade", label: "grades",
		filters:  []string{"studentId", "classId", "subjectId", "term"},
		required: []string{"studentId", "subjectId", "score"},
		writers:  []string{school.RoleTeacher},
		prepare:  stamp("gradedAt"),
	}
	resAttendance = &resource{
		table: memdb.TableAttendance, key: "attendance", singular: "attendance", label: "attendance records",
		filters:  []string{"classId", "studentId", "date", "status"},
		required: []string{"studentId", "classId", "date", "status"},
		writers:  []string{school.RoleTeacher},
	}
	resInvoices = &resource{
		table: memdb.TableInvoices, key: "invoices", singular: "invoice", label: "invoices",
		search:   []string{"number"},
		filters:  []string{"studentId", "status"},
		required: []string{"studentId", "amount"},
		writers:  []string{school.RoleAccountant},
		prepare:  prepareInvoice,
	}
	resPayments = &resource{
		table: memdb.TablePayments, key: "payments", singular: "payment", label: "payments",
		filters:  []string{"studentId", "invoiceId", "method"},
		required: []string{"invoiceId", "method"},
		writers:  []string{school.RoleAccountant},
		prepare:  preparePayment,
	}
	resFeeStructures = &resource{
		table: memdb.TableFeeStructures, key: "feeStructures", singular: "feeStructure", label: "fee structures",
		search:   []string{"name"},
		filters:  []string{"grade", "academicYear", "term"},
		required: []string{"name"},
		writers:  []string{school.RoleAccountant},
	}
	resAnnouncements = &resource{
		table: memdb.TableAnnouncements, key: "announcements", singular: "announcement", label: "announcements",
		search:   []string{"title", "body"},
		filters:  []string{"audience"},
		required: []string{"title", "body"},
		writers:  []string{school.RoleTeacher},
		prepare:  prepareAnnouncement,
	}
	resBuses = &resource{
		table: memdb.TableBuses, key: "buses", singular: "bus", label: "buses",
		search:   []string{"name", "plateNumber"},
		required: []string{"plateNumber"},
		prepare:  defaults(memdb.Record{"isActive": true}),
	}
	resNotifications = &resource{
		table: memdb.TableNotifications, key: "notifications", singular: "notification", label: "notifications",
		filters:  []string{"type"},
		required: []string{"userId", "title"},
		prepare:  prepareNotification,
	}
	resMessages = &resource{
		table: memdb.TableMessages, key: "messages", singular: "message", label: "messages",
		search: []string{"subject", "body"},
	}
	resLocations = &resource{
		table: memdb.TableLocations, key: "locations", singular: "location", label: "location history",
	}
)

// mount registers the CRUD routes of res under g.
func (s *server) mount(g *echo.Group, res *resource, authed ...echo.MiddlewareFunc) *echo.Group {
	rg := g.Group("/"+res.table, authed...)
	write := adminMiddleware(res.writers...)

	rg.GET("", s.list(res))
	rg.POST("", s.create(res), write)
	rg.GET("/:id", s.retrieve(res))
	rg.PUT("/:id", s.update(res), write)
	rg.DELETE("/:id", s.destroy(res), write)
	return rg
}

func (res *resource) filter(ctx echo.Context) memdb.Filter {
	p := bindPage(ctx)
	f := memdb.Filter{Search: p.Search, SearchFields: res.search, Sort: p.Sort, Equals: map[string]string{}}
	for _, param := range res.filters {
		if v := ctx.QueryParam(param); v != "" {
			f.Equals[param] = v
		}
	}
	return f
}

func (s *server) list(res *resource) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		rows := getContextTenant(ctx).Query(res.table, res.filter(ctx))
		return s.respondList(ctx, res.key, res.label, rows)
	}
}

func (s *server) create(res *resource) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		rec, err := bindRecord(ctx)
		if err != nil {
			return err
		}
		delete(rec, "id")
		if err := res.validate(rec); err != nil {
			return err
		}
		tdb := getContextTenant(ctx)
		if res.prepare != nil {
			if err := res.prepare(ctx, tdb, rec); err != nil {
				return err
			}
		}
		rec = tdb.Insert(res.table, rec)
		return respond(ctx, http.StatusCreated, "", echo.Map{res.singular: rec})
	}
}

func (s *server) retrieve(res *resource) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		rec, err := getContextTenant(ctx).Get(res.table, ctx.Param("id"))
		if err != nil {
			return notFound(res.singular)
		}
		return ok(ctx, echo.Map{res.singular: rec})
	}
}

func (s *server) update(res *resource) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		patch, err := bindRecord(ctx)
		if err != nil {
			return err
		}
		rec, err := getContextTenant(ctx).Update(res.table, ctx.Param("id"), patch)
		if err != nil {
			return notFound(res.singular)
		}
		return ok(ctx, echo.Map{res.singular: rec})
	}
}

func (s *server) destroy(res *resource) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if err := getContextTenant(ctx).Delete(res.table, ctx.Param("id")); err != nil {
			return notFound(res.singular)
		}
		return respond(ctx, http.StatusOK, "Record deleted", nil)
	}
}

func (res *resource) validate(rec memdb.Record) error {
	var flds []core.FieldError
	for _, field := range res.required {
		if strings.TrimSpace(rec.String(field)) == "" {
			flds = append(flds, core.FieldError{Field: field, Error: "this field is required"})
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// bindRecord decodes a JSON object body. The echo binder is not used as it writes path params into maps.
func bindRecord(ctx echo.Context) (memdb.Record, error) {
	rec := make(memdb.Record)
	if ctx.Request().ContentLength == 0 {
		return rec, nil
	}
	if err := json.NewDecoder(ctx.Request().Body).Decode(&rec); err == io.EOF {
		return rec, nil
	} else if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON body").SetInternal(err)
	}
	if rec == nil {
		rec = make(memdb.Record)
	}
	return rec, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// defaults sets the missing fields of a new record.
func defaults(vals memdb.Record) func(echo.Context, *memdb.TenantDB, memdb.Record) error {
	return func(_ echo.Context, _ *memdb.TenantDB, rec memdb.Record) error {
		for k, v := range vals {
			if _, ok := rec[k]; !ok {
				rec[k] = v
			}
		}
		return nil
	}
}

// stamp sets the given time fields of a new record to now.
func stamp(fields ...string) func(echo.Context, *memdb.TenantDB, memdb.Record) error {
	return func(_ echo.Context, _ *memdb.TenantDB, rec memdb.Record) error {
		ts := now()
		for _, f := range fields {
			rec[f] = ts
		}
		return nil
	}
}

func prepareStudent(_ echo.Context, tdb *memdb.TenantDB, rec memdb.Record) error {
	if rec.String("admissionNumber") == "" {
		rec["admissionNumber"] = sequence("ADM-%03d", tdb, memdb.TableStudents)
	}
	if rec.String("status") == "" {
		rec["status"] = school.StudentActive
	}
	ts := now()
	rec["enrolledAt"], rec["updatedAt"] = ts, ts
	return nil
}

func prepareInvoice(_ echo.Context, tdb *memdb.TenantDB, rec memdb.Record) error {
	rec["number"] = sequence("INV-%04d", tdb, memdb.TableInvoices)
	rec["amountPaid"] = 0.0
	rec["status"] = school.InvoiceDraft
	if rec.String("currency") == "" {
		rec["currency"] = "USD"
	}
	if _, ok := rec["items"]; !ok {
		rec["items"] = []interface{}{}
	}
	rec["createdAt"] = now()
	return nil
}

func prepareAnnouncement(ctx echo.Context, _ *memdb.TenantDB, rec memdb.Record) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	rec["authorId"] = usr.ID
	if rec.String("audience") == "" {
		rec["audience"] = school.AudienceAll
	}
	rec["publishedAt"] = now()
	return nil
}

func prepareNotification(_ echo.Context, _ *memdb.TenantDB, rec memdb.Record) error {
	if rec.String("type") == "" {
		rec["type"] = school.NotificationInfo
	}
	rec["readAt"] = nil
	rec["createdAt"] = now()
	return nil
}
