package school

import (
	"time"

	"github.com/volatiletech/null/v8"
)

type Message struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"senderId"`
	SenderName  string    `json:"senderName,omitempty"`
	RecipientID string    `json:"recipientId"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	ReadAt      null.Time `json:"readAt"`
	SentAt      time.Time `json:"sentAt"`
}

func (m Message) Key() string { return m.ID }

func (m Message) IsRead() bool { return m.ReadAt.Valid }

// Notification types
const (
	NotificationInfo    = "info"
	NotificationWarning = "warning"
	NotificationPayment = "payment"
	NotificationGrade   = "grade"
)

type Notification struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	Type      string      `json:"type"`
	Title     string      `json:"title"`
	Body      string      `json:"body"`
	Link      null.String `json:"link"`
	ReadAt    null.Time   `json:"readAt"`
	CreatedAt time.Time   `json:"createdAt"`
}

func (n Notification) Key() string { return n.ID }

func (n Notification) IsRead() bool { return n.ReadAt.Valid }

// Announcement audiences
const (
	AudienceAll      = "all"
	AudienceStaff    = "staff"
	AudienceParents  = "parents"
	AudienceStudents = "students"
)

type Announcement struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Audience    string    `json:"audience"`
	AuthorID    string    `json:"authorId"`
	PublishedAt time.Time `json:"publishedAt"`
	ExpiresAt   null.Time `json:"expiresAt"`
}

func (a Announcement) Key() string { return a.ID }
