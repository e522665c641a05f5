package echoapi

import (
	"bytes"
	"encoding/csv"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educloud/apps/devserver/memdb"
	"github.com/trezcool/educloud/core"
)

var studentColumns = []string{"admissionNumber", "firstName", "lastName", "gender", "email", "classId", "status"}

type importResult struct {
	Imported int               `json:"imported"`
	Skipped  int               `json:"skipped"`
	Errors   map[string]string `json:"errors,omitempty"`
}

// importStudents reads a CSV upload whose header names student fields (see studentColumns).
func (s *server) importStudents(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "file", Error: "a CSV file is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening upload")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "file", Error: "the CSV file has no header"})
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	tdb := getContextTenant(ctx)
	res := importResult{Errors: map[string]string{}}
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.Skipped++
			res.Errors[strconv.Itoa(line)] = err.Error()
			continue
		}

		rec := make(memdb.Record, len(header))
		for i, col := range header {
			if i < len(row) && row[i] != "" {
				rec[col] = strings.TrimSpace(row[i])
			}
		}
		if err := resStudents.validate(rec); err != nil {
			res.Skipped++
			res.Errors[strconv.Itoa(line)] = err.Error()
			continue
		}
		if err := prepareStudent(ctx, tdb, rec); err != nil {
			return err
		}
		tdb.Insert(memdb.TableStudents, rec)
		res.Imported++
	}
	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	return respond(ctx, http.StatusOK, "Students imported", res)
}

func (s *server) exportStudents(ctx echo.Context) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(studentColumns); err != nil {
		return errors.Wrap(err, "writing CSV header")
	}
	for _, rec := range getContextTenant(ctx).Query(memdb.TableStudents, resStudents.filter(ctx)) {
		row := make([]string, len(studentColumns))
		for i, col := range studentColumns {
			row[i] = rec.String(col)
		}
		if err := w.Write(row); err != nil {
			return errors.Wrap(err, "writing CSV row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, "writing CSV")
	}
	return sendFile(ctx, "students.csv", "text/csv", buf.Bytes())
}
