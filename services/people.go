package services

import (
	"context"
	"io"

	"github.com/trezcool/educloud/core/school"
	"github.com/trezcool/educloud/transport"
)

type StudentFilter struct {
	ListParams
	ClassID string `url:"classId,omitempty"`
	Status  string `url:"status,omitempty"`
	Gender  string `url:"gender,omitempty"`
}

// ImportResult is the outcome of a CSV import.
type ImportResult struct {
	Imported int               `json:"imported"`
	Skipped  int               `json:"skipped"`
	Errors   map[string]string `json:"errors,omitempty"` // line: reason
}

type StudentService struct {
	Resource[school.Student]
}

// Import uploads a students CSV file.
func (svc *StudentService) Import(ctx context.Context, filename string, r io.Reader, progress transport.ProgressFunc) (ImportResult, error) {
	env, err := svc.api.Upload(ctx, svc.path+"/import", transport.UploadForm{
		Files: []transport.FormFile{{Field: "file", Filename: filename, ContentType: "text/csv", Content: r}},
	}, progress)
	if err != nil {
		return ImportResult{}, err
	}
	var res ImportResult
	if err := env.Decode(&res); err != nil {
		return ImportResult{}, err
	}
	return res, nil
}

// Export downloads the students CSV and returns where it was saved.
func (svc *StudentService) Export(ctx context.Context, filename string) (string, error) {
	return svc.api.Download(ctx, svc.path+"/export", filename)
}

type TeacherFilter struct {
	ListParams
	SubjectID string `url:"subjectId,omitempty"`
}

type TeacherService struct {
	Resource[school.Teacher]
}
