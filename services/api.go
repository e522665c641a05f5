// Package services exposes one service per EduCloud resource on top of the transport.
package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/educloud/core"
	"github.com/trezcool/educloud/core/apierror"
	"github.com/trezcool/educloud/transport"
)

// API is the transport used by the services. *transport.Client implements it.
type API interface {
	Get(ctx context.Context, path string, params interface{}, opts ...transport.CallOption) (*core.Envelope, error)
	Post(ctx context.Context, path string, body interface{}, opts ...transport.CallOption) (*core.Envelope, error)
	Put(ctx context.Context, path string, body interface{}, opts ...transport.CallOption) (*core.Envelope, error)
	Patch(ctx context.Context, path string, body interface{}, opts ...transport.CallOption) (*core.Envelope, error)
	Delete(ctx context.Context, path string, opts ...transport.CallOption) (*core.Envelope, error)
	Upload(ctx context.Context, path string, form transport.UploadForm, progress transport.ProgressFunc, opts ...transport.CallOption) (*core.Envelope, error)
	Download(ctx context.Context, path, filename string, opts ...transport.CallOption) (string, error)
}

var _ API = (*transport.Client)(nil)

// entity names a listed resource: key is the list key in paginated payloads,
// singular the key an item may be wrapped under, labels what the API calls it in "no X found" answers.
type entity struct {
	key      string
	singular string
	labels   []string
}

var (
	entStudents      = entity{key: "students", singular: "student", labels: []string{"students"}}
	entTeachers      = entity{key: "teachers", singular: "teacher", labels: []string{"teachers"}}
	entClasses       = entity{key: "classes", singular: "class", labels: []string{"classes"}}
	entSubjects      = entity{key: "subjects", singular: "subject", labels: []string{"subjects"}}
	entGrades        = entity{key: "grades", singular: "grade", labels: []string{"grades"}}
	entAttendance    = entity{key: "attendance", singular: "attendance", labels: []string{"attendance", "attendance records"}}
	entInvoices      = entity{key: "invoices", singular: "invoice", labels: []string{"invoices"}}
	entPayments      = entity{key: "payments", singular: "payment", labels: []string{"payments"}}
	entFeeStructures = entity{key: "feeStructures", singular: "feeStructure", labels: []string{"fee structures"}}
	entMessages      = entity{key: "messages", singular: "message", labels: []string{"messages"}}
	entNotifications = entity{key: "notifications", singular: "notification", labels: []string{"notifications"}}
	entAnnouncements = entity{key: "announcements", singular: "announcement", labels: []string{"announcements"}}
	entBuses         = entity{key: "buses", singular: "bus", labels: []string{"buses"}}
	entLocations     = entity{key: "locations", singular: "location", labels: []string{"locations", "location history"}}
)

var listEntities = []entity{
	entStudents, entTeachers, entClasses, entSubjects, entGrades, entAttendance, entInvoices,
	entPayments, entFeeStructures, entMessages, entNotifications, entAnnouncements, entBuses, entLocations,
}

// EmptyResults holds, per list entity, the phrases the API uses to answer an empty list with a 404.
// Entities are keyed by their lower-cased list key, eg. "feestructures".
type EmptyResults struct {
	phrases map[string][]string
}

// NewEmptyResults returns the default "no <entity> found" phrases, extended with extra.
func NewEmptyResults(extra map[string][]string) *EmptyResults {
	phrases := make(map[string][]string, len(listEntities))
	for _, ent := range listEntities {
		key := strings.ToLower(ent.key)
		for _, label := range ent.labels {
			phrases[key] = append(phrases[key], "no "+label+" found")
		}
	}
	for key, list := range extra {
		key = strings.ToLower(key)
		for _, p := range list {
			if p = core.CleanString(p, true /* lower */); p != "" {
				phrases[key] = append(phrases[key], p)
			}
		}
	}
	return &EmptyResults{phrases: phrases}
}

// Phrases returns the phrases of an entity.
func (e *EmptyResults) Phrases(entityKey string) []string {
	return e.phrases[strings.ToLower(entityKey)]
}

// Match reports whether err is the API's way of saying the entity list is empty:
// a 404 whose message contains one of the entity phrases, case-insensitively.
func (e *EmptyResults) Match(entityKey string, err error) bool {
	var apiErr *apierror.Error
	if !errors.As(err, &apiErr) || apiErr.Status != 404 {
		return false
	}
	msg := strings.ToLower(apiErr.Message)
	for _, p := range e.Phrases(entityKey) {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
