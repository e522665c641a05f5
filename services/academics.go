package services

import (
	"context"
	"net/url"

	"github.com/trezcool/educloud/core/school"
)

type ClassFilter struct {
	ListParams
	Grade        string `url:"grade,omitempty"`
	AcademicYear string `url:"academicYear,omitempty"`
}

type ClassService struct {
	Resource[school.Class]
}

// Students lists the students enrolled in a class.
func (svc *ClassService) Students(ctx context.Context, classID string, params ListParams) (Page[school.Student], error) {
	return listPage[school.Student](ctx, svc.api, svc.empty, svc.path+pathID(classID)+"/students", entStudents, params)
}

type SubjectService struct {
	Resource[school.Subject]
}

type GradeFilter struct {
	ListParams
	StudentID string `url:"studentId,omitempty"`
	ClassID   string `url:"classId,omitempty"`
	SubjectID string `url:"subjectId,omitempty"`
	Term      string `url:"term,omitempty"`
}

type GradeService struct {
	Resource[school.Grade]
}

// ReportCard downloads a student's report card for a term ("" for the whole year).
func (svc *GradeService) ReportCard(ctx context.Context, studentID, term, filename string) (string, error) {
	q := url.Values{}
	if term != "" {
		q.Set("term", term)
	}
	return svc.api.Download(ctx, withQuery(svc.path+"/report-card"+pathID(studentID), q), filename)
}

type AttendanceFilter struct {
	ListParams
	ClassID   string `url:"classId,omitempty"`
	StudentID string `url:"studentId,omitempty"`
	Date      string `url:"date,omitempty"`
	From      string `url:"from,omitempty"`
	To        string `url:"to,omitempty"`
	Status    string `url:"status,omitempty"`
}

type (
	AttendanceMark struct {
		StudentID string `json:"studentId"`
		Status    string `json:"status"`
		Remarks   string `json:"remarks,omitempty"`
	}

	// AttendanceBatch marks a whole class for one day.
	AttendanceBatch struct {
		ClassID string           `json:"classId"`
		Date    string           `json:"date"`
		Records []AttendanceMark `json:"records"`
	}
)

type AttendanceService struct {
	Resource[school.AttendanceRecord]
}

func (svc *AttendanceService) MarkBatch(ctx context.Context, batch AttendanceBatch) ([]school.AttendanceRecord, error) {
	env, err := svc.api.Post(ctx, svc.path+"/batch", batch)
	if err != nil {
		return nil, err
	}
	page, err := decodePage[school.AttendanceRecord](env, svc.ent.key, nil)
	return page.Items, err
}

// ByClass lists the attendance of a class on a date (YYYY-MM-DD).
func (svc *AttendanceService) ByClass(ctx context.Context, classID, date string) (Page[school.AttendanceRecord], error) {
	params := url.Values{}
	if date != "" {
		params.Set("date", date)
	}
	return listPage[school.AttendanceRecord](ctx, svc.api, svc.empty, svc.path+"/class"+pathID(classID), svc.ent, params)
}

func (svc *AttendanceService) Summary(ctx context.Context, filter AttendanceFilter) (school.AttendanceSummary, error) {
	env, err := svc.api.Get(ctx, svc.path+"/summary", filter)
	if err != nil {
		return school.AttendanceSummary{}, err
	}
	return decodeItem[school.AttendanceSummary](env, "summary")
}

type DashboardService struct {
	api API
}

func (svc *DashboardService) Stats(ctx context.Context) (school.DashboardStats, error) {
	env, err := svc.api.Get(ctx, "/dashboard/stats", nil)
	if err != nil {
		return school.DashboardStats{}, err
	}
	return decodeItem[school.DashboardStats](env, "stats")
}
