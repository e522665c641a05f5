package services

import (
	"github.com/trezcool/educloud/core"
	"github.com/trezcool/educloud/core/school"
)

// Registry groups the services of every resource.
type Registry struct {
	Auth          *AuthService
	Students      *StudentService
	Teachers      *TeacherService
	Classes       *ClassService
	Subjects      *SubjectService
	Grades        *GradeService
	Attendance    *AttendanceService
	Invoices      *InvoiceService
	Payments      *PaymentService
	FeeStructures *FeeStructureService
	Messages      *MessageService
	Notifications *NotificationService
	Announcements *AnnouncementService
	Buses         *BusService
	Tracking      *TrackingService
	Dashboard     *DashboardService
}

func NewRegistry(api API, tenants TenantSwitcher, sessions SessionStore, empty *EmptyResults, logger core.Logger) *Registry {
	if empty == nil {
		empty = NewEmptyResults(nil)
	}
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Registry{
		Auth:          &AuthService{api: api, tenants: tenants, sessions: sessions, logger: logger},
		Students:      &StudentService{newResource[school.Student](api, "/students", entStudents, empty)},
		Teachers:      &TeacherService{newResource[school.Teacher](api, "/teachers", entTeachers, empty)},
		Classes:       &ClassService{newResource[school.Class](api, "/classes", entClasses, empty)},
		Subjects:      &SubjectService{newResource[school.Subject](api, "/subjects", entSubjects, empty)},
		Grades:        &GradeService{newResource[school.Grade](api, "/grades", entGrades, empty)},
		Attendance:    &AttendanceService{newResource[school.AttendanceRecord](api, "/attendance", entAttendance, empty)},
		Invoices:      &InvoiceService{newResource[school.Invoice](api, "/invoices", entInvoices, empty)},
		Payments:      &PaymentService{newResource[school.Payment](api, "/payments", entPayments, empty)},
		FeeStructures: &FeeStructureService{newResource[school.FeeStructure](api, "/fee-structures", entFeeStructures, empty)},
		Messages:      &MessageService{newResource[school.Message](api, "/messages", entMessages, empty)},
		Notifications: &NotificationService{newResource[school.Notification](api, "/notifications", entNotifications, empty)},
		Announcements: &AnnouncementService{newResource[school.Announcement](api, "/announcements", entAnnouncements, empty)},
		Buses:         &BusService{newResource[school.Bus](api, "/buses", entBuses, empty)},
		Tracking:      &TrackingService{api: api, empty: empty},
		Dashboard:     &DashboardService{api: api},
	}
}
