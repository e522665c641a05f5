package school

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Student statuses
const (
	StudentActive    = "active"
	StudentGraduated = "graduated"
	StudentSuspended = "suspended"
	StudentWithdrawn = "withdrawn"
)

type Guardian struct {
	Name         string      `json:"name"`
	Phone        string      `json:"phone"`
	Email        null.String `json:"email"`
	Relationship string      `json:"relationship,omitempty"`
}

type Student struct {
	ID              string      `json:"id"`
	AdmissionNumber string      `json:"admissionNumber"`
	FirstName       string      `json:"firstName"`
	LastName        string      `json:"lastName"`
	Email           null.String `json:"email"`
	Gender          string      `json:"gender,omitempty"`
	DateOfBirth     null.Time   `json:"dateOfBirth"`
	ClassID         null.String `json:"classId"`
	BusID           null.String `json:"busId"`
	Status          string      `json:"status"`
	Guardian        *Guardian   `json:"guardian,omitempty"`
	EnrolledAt      time.Time   `json:"enrolledAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

func (s Student) Key() string { return s.ID }

func (s Student) FullName() string { return s.FirstName + " " + s.LastName }

type Teacher struct {
	ID         string      `json:"id"`
	EmployeeID string      `json:"employeeId"`
	FirstName  string      `json:"firstName"`
	LastName   string      `json:"lastName"`
	Email      string      `json:"email"`
	Phone      null.String `json:"phone"`
	SubjectIDs []string    `json:"subjectIds,omitempty"`
	ClassIDs   []string    `json:"classIds,omitempty"`
	HiredAt    null.Time   `json:"hiredAt"`
	IsActive   bool        `json:"isActive"`
}

func (t Teacher) Key() string { return t.ID }

func (t Teacher) FullName() string { return t.FirstName + " " + t.LastName }
