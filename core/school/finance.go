package school

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Invoice statuses
const (
	InvoiceDraft   = "draft"
	InvoiceSent    = "sent"
	InvoicePartial = "partial"
	InvoicePaid    = "paid"
	InvoiceOverdue = "overdue"
)

type InvoiceItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

type Invoice struct {
	ID             string        `json:"id"`
	Number         string        `json:"number"`
	StudentID      string        `json:"studentId"`
	FeeStructureID null.String   `json:"feeStructureId"`
	Items          []InvoiceItem `json:"items"`
	Amount         float64       `json:"amount"`
	AmountPaid     float64       `json:"amountPaid"`
	Currency       string        `json:"currency"`
	Status         string        `json:"status"`
	DueDate        string        `json:"dueDate"` // YYYY-MM-DD
	SentAt         null.Time     `json:"sentAt"`
	PaidAt         null.Time     `json:"paidAt"`
	CreatedAt      time.Time     `json:"createdAt"`
}

func (i Invoice) Key() string { return i.ID }

// Balance is the amount left to pay.
func (i Invoice) Balance() float64 {
	return i.Amount - i.AmountPaid
}

// Payment methods
const (
	PaymentCash         = "cash"
	PaymentBankTransfer = "bank_transfer"
	PaymentCard         = "card"
	PaymentMobileMoney  = "mobile_money"
)

type Payment struct {
	ID        string      `json:"id"`
	InvoiceID string      `json:"invoiceId"`
	StudentID string      `json:"studentId"`
	Amount    float64     `json:"amount"`
	Method    string      `json:"method"`
	Reference null.String `json:"reference"`
	PaidAt    time.Time   `json:"paidAt"`
}

func (p Payment) Key() string { return p.ID }

type FeeStructure struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Grade        string        `json:"grade"`
	AcademicYear string        `json:"academicYear"`
	Term         string        `json:"term"`
	Items        []InvoiceItem `json:"items"`
	Total        float64       `json:"total"`
}

func (f FeeStructure) Key() string { return f.ID }
