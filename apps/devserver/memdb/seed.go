package memdb

import (
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/educloud/core/school"
)

// Tables
const (
	TableStudents      = "students"
	TableTeachers      = "teachers"
	TableClasses       = "classes"
	TableSubjects      = "subjects"
	TableGrades        = "grades"
	TableAttendance    = "attendance"
	TableInvoices      = "invoices"
	TablePayments      = "payments"
	TableFeeStructures = "fee-structures"
	TableMessages      = "messages"
	TableNotifications = "notifications"
	TableAnnouncements = "announcements"
	TableBuses         = "buses"
	TableLocations     = "locations"
)

// Demo school
const (
	DemoSubdomain = "demo"
	DemoEmail     = "admin@demo.educloud.com"
	DemoPassword  = "demo123"
)

// Seed creates the demo school with its admin account and a handful of records.
func Seed(db *DB) (*TenantDB, error) {
	tdb, err := db.CreateTenant("Demo Academy", DemoSubdomain)
	if err != nil {
		return nil, errors.Wrap(err, "creating demo tenant")
	}
	admin, err := tdb.CreateUser(NewUser{Name: "Demo Admin", Email: DemoEmail, Password: DemoPassword, Role: school.RoleAdmin})
	if err != nil {
		return nil, errors.Wrap(err, "creating demo admin")
	}

	now := time.Now().UTC()
	rows := []struct {
		table string
		v     interface{}
	}{
		{TableClasses, school.Class{ID: "class-1", Name: "Grade 1 A", Grade: "1", Section: "A", AcademicYear: "2024/2025", Capacity: 30, StudentCount: 2}},
		{TableClasses, school.Class{ID: "class-2", Name: "Grade 2 A", Grade: "2", Section: "A", AcademicYear: "2024/2025", Capacity: 30}},
		{TableSubjects, school.Subject{ID: "subject-1", Code: "MATH", Name: "Mathematics", Credits: 4}},
		{TableSubjects, school.Subject{ID: "subject-2", Code: "ENG", Name: "English", Credits: 3}},
		{TableTeachers, school.Teacher{
			ID: "teacher-1", EmployeeID: "T-001", FirstName: "Grace", LastName: "Hopper", Email: "grace@demo.educloud.com",
			SubjectIDs: []string{"subject-1"}, ClassIDs: []string{"class-1"}, IsActive: true,
		}},
		{TableStudents, school.Student{
			ID: "student-1", AdmissionNumber: "ADM-001", FirstName: "Ada", LastName: "Lovelace", Gender: "female",
			ClassID: null.StringFrom("class-1"), Status: school.StudentActive, EnrolledAt: now, UpdatedAt: now,
			Guardian: &school.Guardian{Name: "Anne Byron", Phone: "+254700000001", Email: null.StringFrom("anne.byron@example.com"), Relationship: "mother"},
		}},
		{TableStudents, school.Student{
			ID: "student-2", AdmissionNumber: "ADM-002", FirstName: "Alan", LastName: "Turing", Gender: "male",
			ClassID: null.StringFrom("class-1"), Status: school.StudentActive, EnrolledAt: now, UpdatedAt: now,
		}},
		{TableFeeStructures, school.FeeStructure{
			ID: "fee-1", Name: "Grade 1 Term 1", Grade: "1", AcademicYear: "2024/2025", Term: "1",
			Items: []school.InvoiceItem{{Description: "Tuition", Amount: 500}, {Description: "Transport", Amount: 100}}, Total: 600,
		}},
		{TableInvoices, school.Invoice{
			ID: "invoice-1", Number: "INV-0001", StudentID: "student-1", FeeStructureID: null.StringFrom("fee-1"),
			Items: []school.InvoiceItem{{Description: "Tuition", Amount: 500}, {Description: "Transport", Amount: 100}},
			Amount: 600, Currency: "USD", Status: school.InvoiceSent, DueDate: now.AddDate(0, 1, 0).Format("2006-01-02"),
			SentAt: null.TimeFrom(now), CreatedAt: now,
		}},
		{TableAnnouncements, school.Announcement{
			ID: "announcement-1", Title: "Welcome back", Body: "Term 1 starts on Monday.", Audience: school.AudienceAll,
			AuthorID: admin.ID, PublishedAt: now,
		}},
		{TableBuses, school.Bus{ID: "bus-1", PlateNumber: "KDA 001A", Name: "Route 1", Capacity: 40, IsActive: true}},
		{TableNotifications, school.Notification{
			ID: "notification-1", UserID: admin.ID, Type: school.NotificationPayment, Title: "Invoice sent",
			Body: "INV-0001 was sent to Anne Byron.", CreatedAt: now,
		}},
	}
	for _, row := range rows {
		rec, err := ToRecord(row.v)
		if err != nil {
			return nil, err
		}
		tdb.Insert(row.table, rec)
	}
	return tdb, nil
}
