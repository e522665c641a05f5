package echoapi

import (
	"bytes"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educloud/apps/devserver/memdb"
	"github.com/trezcool/educloud/core"
	"github.com/trezcool/educloud/core/school"
)

func registerSchoolAPI(g *echo.Group, s *server, authed ...echo.MiddlewareFunc) {
	staff := adminMiddleware(school.RoleTeacher, school.RoleAccountant)
	finance := adminMiddleware(school.RoleAccountant)

	sg := s.mount(g, resStudents, authed...)
	sg.POST("/import", s.importStudents, adminMiddleware())
	sg.GET("/export", s.exportStudents, staff)

	s.mount(g, resTeachers, authed...)
	cg := s.mount(g, resClasses, authed...)
	cg.GET("/:id/students", s.classStudents)
	s.mount(g, resSubjects, authed...)

	gg := s.mount(g, resGrades, authed...)
	gg.GET("/report-card/:studentId", s.reportCard)

	ag := s.mount(g, resAttendance, authed...)
	ag.POST("/batch", s.markAttendance, adminMiddleware(school.RoleTeacher))
	ag.GET("/class/:classId", s.classAttendance)
	ag.GET("/summary", s.attendanceSummary)

	ig := s.mount(g, resInvoices, authed...)
	ig.POST("/:id/send", s.sendInvoice, finance)
	ig.GET("/:id/download", s.downloadInvoice)
	ig.POST("/:id/mark-paid", s.markInvoicePaid, finance)

	pg := s.mount(g, resPayments, authed...)
	pg.GET("/invoice/:invoiceId", s.invoicePayments)
	pg.GET("/:id/receipt", s.paymentReceipt)

	s.mount(g, resFeeStructures, authed...)
	s.mount(g, resAnnouncements, authed...)

	bg := s.mount(g, resBuses, authed...)
	bg.GET("/:id/location", s.busLocation)

	tg := g.Group("/tracking", authed...)
	tg.POST("/location", s.pushLocation, adminMiddleware(school.RoleDriver))
	tg.GET("/history/:busId", s.locationHistory)

	registerCommsAPI(g, s, authed...)

	g.GET("/dashboard/stats", s.dashboardStats, append(authed, staff)...)
}

// sequence formats the next human readable number of a table, eg. INV-0002.
func sequence(format string, tdb *memdb.TenantDB, table string) string {
	return fmt.Sprintf(format, len(tdb.Query(table, memdb.Filter{}))+1)
}

func sendFile(ctx echo.Context, filename, contentType string, content []byte) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, contentType, content)
}

func (s *server) classStudents(ctx echo.Context) error {
	tdb := getContextTenant(ctx)
	if _, err := tdb.Get(memdb.TableClasses, ctx.Param("id")); err != nil {
		return notFound("class")
	}
	f := resStudents.filter(ctx)
	f.Equals["classId"] = ctx.Param("id")
	return s.respondList(ctx, resStudents.key, resStudents.label, tdb.Query(memdb.TableStudents, f))
}

func (s *server) reportCard(ctx echo.Context) error {
	tdb := getContextTenant(ctx)
	student, err := tdb.Get(memdb.TableStudents, ctx.Param("studentId"))
	if err != nil {
		return notFound("student")
	}
	f := memdb.Filter{Equals: map[string]string{"studentId": student.ID()}, Sort: "subjectId"}
	term := ctx.QueryParam("term")
	if term != "" {
		f.Equals["term"] = term
	}

	var doc bytes.Buffer
	fmt.Fprintf(&doc, "%s\nREPORT CARD\n\n", tdb.Info.Name)
	fmt.Fprintf(&doc, "Student: %s %s (%s)\n", student.String("firstName"), student.String("lastName"), student.String("admissionNumber"))
	if term != "" {
		fmt.Fprintf(&doc, "Term: %s\n", term)
	}
	doc.WriteString("\n")
	for _, g := range tdb.Query(memdb.TableGrades, f) {
		subject := g.String("subjectId")
		if sub, err := tdb.Get(memdb.TableSubjects, subject); err == nil {
			subject = sub.String("name")
		}
		fmt.Fprintf(&doc, "%-20s %6.1f / %-6.1f %s\n", subject, g.Float("score"), g.Float("maxScore"), g.String("letter"))
	}
	return sendFile(ctx, fmt.Sprintf("report-card-%s.txt", student.String("admissionNumber")), echo.MIMETextPlainCharsetUTF8, doc.Bytes())
}

func (s *server) markAttendance(ctx echo.Context) error {
	var data struct {
		ClassID string `json:"classId" validate:"required"`
		Date    string `json:"date" validate:"required"`
		Records []struct {
			StudentID string `json:"studentId" validate:"required"`
			Status    string `json:"status" validate:"required,oneof=present absent late excused"`
			Remarks   string `json:"remarks"`
		} `json:"records" validate:"required,dive"`
	}
	if err := s.bindAndValidate(ctx, &data); err != nil {
		return err
	}
	if _, err := time.Parse("2006-01-02", data.Date); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "date", Error: "date must be formatted as YYYY-MM-DD"})
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	tdb := getContextTenant(ctx)
	saved := make([]memdb.Record, 0, len(data.Records))
	for _, mark := range data.Records {
		rec := memdb.Record{
			"studentId": mark.StudentID,
			"classId":   data.ClassID,
			"date":      data.Date,
			"status":    mark.Status,
			"remarks":   nil,
			"markedBy":  usr.ID,
		}
		if mark.Remarks != "" {
			rec["remarks"] = mark.Remarks
		}
		existing := tdb.Query(memdb.TableAttendance, memdb.Filter{Equals: map[string]string{"studentId": mark.StudentID, "date": data.Date}})
		if len(existing) > 0 {
			rec["id"] = existing[0].ID()
		}
		saved = append(saved, tdb.Insert(memdb.TableAttendance, rec))
	}
	return respond(ctx, http.StatusCreated, "Attendance saved", echo.Map{resAttendance.key: saved})
}

func (s *server) classAttendance(ctx echo.Context) error {
	f := resAttendance.filter(ctx)
	f.Equals["classId"] = ctx.Param("classId")
	return s.respondList(ctx, resAttendance.key, resAttendance.label, getContextTenant(ctx).Query(memdb.TableAttendance, f))
}

func inRange(val, from, to string) bool {
	return (from == "" || val >= from) && (to == "" || val <= to)
}

func summarize(rows []memdb.Record) school.AttendanceSummary {
	var sum school.AttendanceSummary
	for _, rec := range rows {
		sum.Total++
		switch rec.String("status") {
		case school.AttendancePresent:
			sum.Present++
		case school.AttendanceAbsent:
			sum.Absent++
		case school.AttendanceLate:
			sum.Late++
		case school.AttendanceExcused:
			sum.Excused++
		}
	}
	if sum.Total > 0 {
		sum.Rate = float64(sum.Present+sum.Late) / float64(sum.Total) * 100
	}
	return sum
}

func (s *server) attendanceSummary(ctx echo.Context) error {
	from, to := ctx.QueryParam("from"), ctx.QueryParam("to")
	var rows []memdb.Record
	for _, rec := range getContextTenant(ctx).Query(memdb.TableAttendance, resAttendance.filter(ctx)) {
		if inRange(rec.String("date"), from, to) {
			rows = append(rows, rec)
		}
	}
	return ok(ctx, echo.Map{"summary": summarize(rows)})
}

func (s *server) invoice(ctx echo.Context) (memdb.Record, error) {
	inv, err := getContextTenant(ctx).Get(memdb.TableInvoices, ctx.Param("id"))
	if err != nil {
		return nil, notFound("invoice")
	}
	return inv, nil
}

func invoiceDocument(tdb *memdb.TenantDB, inv memdb.Record) []byte {
	var doc bytes.Buffer
	fmt.Fprintf(&doc, "%s\nINVOICE %s\n\n", tdb.Info.Name, inv.String("number"))
	if st, err := tdb.Get(memdb.TableStudents, inv.String("studentId")); err == nil {
		fmt.Fprintf(&doc, "Student: %s %s (%s)\n", st.String("firstName"), st.String("lastName"), st.String("admissionNumber"))
	}
	fmt.Fprintf(&doc, "Due date: %s\nStatus: %s\n\n", inv.String("dueDate"), inv.String("status"))
	if items, ok := inv["items"].([]interface{}); ok {
		for _, it := range items {
			if item, ok := it.(map[string]interface{}); ok {
				rec := memdb.Record(item)
				fmt.Fprintf(&doc, "%-30s %10.2f\n", rec.String("description"), rec.Float("amount"))
			}
		}
	}
	cur := inv.String("currency")
	fmt.Fprintf(&doc, "\n%-30s %10.2f %s\n", "Total", inv.Float("amount"), cur)
	fmt.Fprintf(&doc, "%-30s %10.2f %s\n", "Paid", inv.Float("amountPaid"), cur)
	fmt.Fprintf(&doc, "%-30s %10.2f %s\n", "Balance", inv.Float("amount")-inv.Float("amountPaid"), cur)
	return doc.Bytes()
}

// invoiceRecipient is the guardian of the invoiced student, or the student.
func invoiceRecipient(tdb *memdb.TenantDB, inv memdb.Record) (mail.Address, bool) {
	st, err := tdb.Get(memdb.TableStudents, inv.String("studentId"))
	if err != nil {
		return mail.Address{}, false
	}
	if g, ok := st["guardian"].(map[string]interface{}); ok {
		guardian := memdb.Record(g)
		if email := guardian.String("email"); email != "" {
			return mail.Address{Name: guardian.String("name"), Address: email}, true
		}
	}
	if email := st.String("email"); email != "" {
		return mail.Address{Name: st.String("firstName") + " " + st.String("lastName"), Address: email}, true
	}
	return mail.Address{}, false
}

func (s *server) sendInvoice(ctx echo.Context) error {
	inv, err := s.invoice(ctx)
	if err != nil {
		return err
	}
	tdb := getContextTenant(ctx)
	to, found := invoiceRecipient(tdb, inv)
	if !found {
		return core.NewValidationError(nil, core.FieldError{Field: "studentId", Error: "the student has no guardian or student email"})
	}

	msg := &core.EmailMessage{
		To:          []mail.Address{to},
		Subject:     fmt.Sprintf("%s: invoice %s", tdb.Info.Name, inv.String("number")),
		TextContent: fmt.Sprintf("Dear %s,\n\nPlease find attached invoice %s.\n\n%s", to.Name, inv.String("number"), tdb.Info.Name),
	}
	doc := invoiceDocument(tdb, inv)
	if err := msg.Attach(bytes.NewReader(doc), inv.String("number")+".txt", echo.MIMETextPlain); err != nil {
		return errors.Wrap(err, "attaching invoice")
	}
	s.opts.MailSvc.SendMessages(msg)

	patch := memdb.Record{"sentAt": now()}
	if inv.String("status") == school.InvoiceDraft {
		patch["status"] = school.InvoiceSent
	}
	inv, err = tdb.Update(memdb.TableInvoices, inv.ID(), patch)
	if err != nil {
		return errors.Wrap(err, "updating invoice")
	}
	return respond(ctx, http.StatusOK, "Invoice sent", echo.Map{resInvoices.singular: inv})
}

func (s *server) downloadInvoice(ctx echo.Context) error {
	inv, err := s.invoice(ctx)
	if err != nil {
		return err
	}
	return sendFile(ctx, inv.String("number")+".txt", echo.MIMETextPlainCharsetUTF8, invoiceDocument(getContextTenant(ctx), inv))
}

type PaymentRequest struct {
	Amount    float64 `json:"amount" validate:"gte=0"`
	Method    string  `json:"method" validate:"required,oneof=cash bank_transfer card mobile_money"`
	Reference string  `json:"reference"`
}

// chargeInvoice adds amount to the paid amount of an invoice. A zero amount settles the balance.
func chargeInvoice(tdb *memdb.TenantDB, inv memdb.Record, amount float64) (float64, memdb.Record, error) {
	balance := inv.Float("amount") - inv.Float("amountPaid")
	if balance <= 0 {
		return 0, nil, core.NewValidationError(nil, core.FieldError{Field: "invoiceId", Error: "the invoice is already paid"})
	}
	if amount == 0 {
		amount = balance
	}
	if amount < 0 || amount > balance {
		return 0, nil, core.NewValidationError(nil, core.FieldError{Field: "amount", Error: "amount exceeds the invoice balance"})
	}

	paid := inv.Float("amountPaid") + amount
	patch := memdb.Record{"amountPaid": paid, "status": school.InvoicePartial}
	if paid >= inv.Float("amount") {
		patch["status"] = school.InvoicePaid
		patch["paidAt"] = now()
	}
	inv, err := tdb.Update(memdb.TableInvoices, inv.ID(), patch)
	if err != nil {
		return 0, nil, errors.Wrap(err, "updating invoice")
	}
	return amount, inv, nil
}

// preparePayment charges the invoice of a new payment.
func preparePayment(_ echo.Context, tdb *memdb.TenantDB, rec memdb.Record) error {
	inv, err := tdb.Get(memdb.TableInvoices, rec.String("invoiceId"))
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "invoiceId", Error: "unknown invoice"})
	}
	amount, inv, err := chargeInvoice(tdb, inv, rec.Float("amount"))
	if err != nil {
		return err
	}
	rec["amount"] = amount
	rec["studentId"] = inv.String("studentId")
	rec["paidAt"] = now()
	if rec.String("reference") == "" {
		rec["reference"] = nil
	}
	return nil
}

func (s *server) markInvoicePaid(ctx echo.Context) error {
	inv, err := s.invoice(ctx)
	if err != nil {
		return err
	}
	data := PaymentRequest{Method: school.PaymentCash}
	if err := s.bindAndValidate(ctx, &data); err != nil {
		return err
	}
	tdb := getContextTenant(ctx)
	payment := memdb.Record{"invoiceId": inv.ID(), "amount": data.Amount, "method": data.Method, "reference": data.Reference}
	if err := preparePayment(ctx, tdb, payment); err != nil {
		return err
	}
	tdb.Insert(memdb.TablePayments, payment)
	if inv, err = tdb.Get(memdb.TableInvoices, inv.ID()); err != nil {
		return errors.Wrap(err, "reloading invoice")
	}
	return respond(ctx, http.StatusOK, "Payment recorded", echo.Map{resInvoices.singular: inv})
}

func (s *server) invoicePayments(ctx echo.Context) error {
	f := resPayments.filter(ctx)
	f.Equals["invoiceId"] = ctx.Param("invoiceId")
	return s.respondList(ctx, resPayments.key, resPayments.label, getContextTenant(ctx).Query(memdb.TablePayments, f))
}

func (s *server) paymentReceipt(ctx echo.Context) error {
	tdb := getContextTenant(ctx)
	p, err := tdb.Get(memdb.TablePayments, ctx.Param("id"))
	if err != nil {
		return notFound("payment")
	}
	var doc bytes.Buffer
	fmt.Fprintf(&doc, "%s\nPAYMENT RECEIPT\n\n", tdb.Info.Name)
	if inv, err := tdb.Get(memdb.TableInvoices, p.String("invoiceId")); err == nil {
		fmt.Fprintf(&doc, "Invoice: %s\n", inv.String("number"))
	}
	fmt.Fprintf(&doc, "Amount: %.2f\nMethod: %s\nReference: %s\nPaid at: %s\n",
		p.Float("amount"), p.String("method"), p.String("reference"), p.String("paidAt"))
	return sendFile(ctx, fmt.Sprintf("receipt-%s.txt", p.ID()), echo.MIMETextPlainCharsetUTF8, doc.Bytes())
}

func (s *server) busLocation(ctx echo.Context) error {
	tdb := getContextTenant(ctx)
	if _, err := tdb.Get(memdb.TableBuses, ctx.Param("id")); err != nil {
		return notFound("bus")
	}
	fixes := tdb.Query(memdb.TableLocations, memdb.Filter{Equals: map[string]string{"busId": ctx.Param("id")}, Sort: "at"})
	if len(fixes) == 0 {
		return notFound("location")
	}
	return ok(ctx, echo.Map{resLocations.singular: fixes[len(fixes)-1]})
}

func (s *server) pushLocation(ctx echo.Context) error {
	var data school.Location
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Location")
	}
	tdb := getContextTenant(ctx)
	if _, err := tdb.Get(memdb.TableBuses, data.BusID); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "busId", Error: "unknown bus"})
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	data.DriverID = usr.ID
	if data.At.IsZero() {
		data.At = time.Now().UTC()
	}
	rec, err := memdb.ToRecord(data)
	if err != nil {
		return err
	}
	tdb.Insert(memdb.TableLocations, rec)
	return respond(ctx, http.StatusCreated, "Location recorded", nil)
}

func (s *server) locationHistory(ctx echo.Context) error {
	from, to := ctx.QueryParam("from"), ctx.QueryParam("to")
	f := memdb.Filter{Equals: map[string]string{"busId": ctx.Param("busId")}, Sort: "-at"}
	rows := make([]memdb.Record, 0)
	for _, rec := range getContextTenant(ctx).Query(memdb.TableLocations, f) {
		if inRange(rec.String("at"), from, to) {
			rows = append(rows, rec)
		}
	}
	return s.respondList(ctx, resLocations.key, resLocations.label, rows)
}

func (s *server) dashboardStats(ctx echo.Context) error {
	tdb := getContextTenant(ctx)
	all := memdb.Filter{}
	stats := school.DashboardStats{
		Students:       len(tdb.Query(memdb.TableStudents, memdb.Filter{Equals: map[string]string{"status": school.StudentActive}})),
		Teachers:       len(tdb.Query(memdb.TableTeachers, all)),
		Classes:        len(tdb.Query(memdb.TableClasses, all)),
		AttendanceRate: summarize(tdb.Query(memdb.TableAttendance, all)).Rate,
	}
	for _, inv := range tdb.Query(memdb.TableInvoices, all) {
		if inv.String("status") != school.InvoiceDraft {
			stats.OutstandingBalance += inv.Float("amount") - inv.Float("amountPaid")
		}
	}
	month := time.Now().UTC().Format("2006-01")
	for _, p := range tdb.Query(memdb.TablePayments, all) {
		if strings.HasPrefix(p.String("paidAt"), month) {
			stats.CollectedThisMonth += p.Float("amount")
		}
	}
	return ok(ctx, echo.Map{"stats": stats})
}
