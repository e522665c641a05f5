package school

import (
	"time"

	"github.com/volatiletech/null/v8"
)

type Class struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Grade        string      `json:"grade"`
	Section      string      `json:"section,omitempty"`
	AcademicYear string      `json:"academicYear"`
	TeacherID    null.String `json:"teacherId"`
	Capacity     int         `json:"capacity"`
	StudentCount int         `json:"studentCount"`
}

func (c Class) Key() string { return c.ID }

type Subject struct {
	ID          string      `json:"id"`
	Code        string      `json:"code"`
	Name        string      `json:"name"`
	Description null.String `json:"description"`
	Credits     int         `json:"credits"`
}

func (s Subject) Key() string { return s.ID }

type Grade struct {
	ID        string      `json:"id"`
	StudentID string      `json:"studentId"`
	SubjectID string      `json:"subjectId"`
	ClassID   string      `json:"classId"`
	Term      string      `json:"term"`
	Exam      string      `json:"exam"`
	Score     float64     `json:"score"`
	MaxScore  float64     `json:"maxScore"`
	Letter    string      `json:"letter,omitempty"`
	Remarks   null.String `json:"remarks"`
	GradedAt  time.Time   `json:"gradedAt"`
}

func (g Grade) Key() string { return g.ID }

// Percent is the score over max score, in percent; 0 if MaxScore is not set.
func (g Grade) Percent() float64 {
	if g.MaxScore <= 0 {
		return 0
	}
	return g.Score / g.MaxScore * 100
}

// Attendance statuses
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLate    = "late"
	AttendanceExcused = "excused"
)

type AttendanceRecord struct {
	ID        string      `json:"id"`
	StudentID string      `json:"studentId"`
	ClassID   string      `json:"classId"`
	Date      string      `json:"date"` // YYYY-MM-DD
	Status    string      `json:"status"`
	Remarks   null.String `json:"remarks"`
	MarkedBy  string      `json:"markedBy,omitempty"`
}

func (a AttendanceRecord) Key() string { return a.ID }

type AttendanceSummary struct {
	Total   int     `json:"total"`
	Present int     `json:"present"`
	Absent  int     `json:"absent"`
	Late    int     `json:"late"`
	Excused int     `json:"excused"`
	Rate    float64 `json:"rate"`
}

// DashboardStats are the head counts and totals shown on the admin dashboard.
type DashboardStats struct {
	Students           int     `json:"students"`
	Teachers           int     `json:"teachers"`
	Classes            int     `json:"classes"`
	AttendanceRate     float64 `json:"attendanceRate"`
	OutstandingBalance float64 `json:"outstandingBalance"`
	CollectedThisMonth float64 `json:"collectedThisMonth"`
}
