package services

import (
	"context"
	"net/http"

	"github.com/trezcool/educloud/core/school"
)

type InvoiceFilter struct {
	ListParams
	StudentID string `url:"studentId,omitempty"`
	Status    string `url:"status,omitempty"`
	From      string `url:"from,omitempty"`
	To        string `url:"to,omitempty"`
}

// PaymentInput records a payment.
type PaymentInput struct {
	InvoiceID string  `json:"invoiceId,omitempty"`
	Amount    float64 `json:"amount"`
	Method    string  `json:"method"`
	Reference string  `json:"reference,omitempty"`
}

type InvoiceService struct {
	Resource[school.Invoice]
}

// Send emails the invoice to the student's guardian.
func (svc *InvoiceService) Send(ctx context.Context, id string) (school.Invoice, error) {
	return svc.write(ctx, http.MethodPost, svc.path+pathID(id)+"/send", nil)
}

// Download saves the invoice PDF and returns where it was saved.
func (svc *InvoiceService) Download(ctx context.Context, id, filename string) (string, error) {
	return svc.api.Download(ctx, svc.path+pathID(id)+"/download", filename)
}

// MarkPaid settles the invoice balance with one payment.
func (svc *InvoiceService) MarkPaid(ctx context.Context, id string, payment PaymentInput) (school.Invoice, error) {
	return svc.write(ctx, http.MethodPost, svc.path+pathID(id)+"/mark-paid", payment)
}

type PaymentFilter struct {
	ListParams
	StudentID string `url:"studentId,omitempty"`
	Method    string `url:"method,omitempty"`
	From      string `url:"from,omitempty"`
	To        string `url:"to,omitempty"`
}

type PaymentService struct {
	Resource[school.Payment]
}

func (svc *PaymentService) ByInvoice(ctx context.Context, invoiceID string) (Page[school.Payment], error) {
	return listPage[school.Payment](ctx, svc.api, svc.empty, svc.path+"/invoice"+pathID(invoiceID), svc.ent, nil)
}

// Receipt saves the payment receipt and returns where it was saved.
func (svc *PaymentService) Receipt(ctx context.Context, id, filename string) (string, error) {
	return svc.api.Download(ctx, svc.path+pathID(id)+"/receipt", filename)
}

type FeeStructureService struct {
	Resource[school.FeeStructure]
}
