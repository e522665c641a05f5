package stores

import (
	"context"

	"github.com/trezcool/educloud/core/school"
	"github.com/trezcool/educloud/services"
)

// InvoiceActions are the invoice specific actions of the fee store.
type InvoiceActions interface {
	CRUD[school.Invoice]
	Send(ctx context.Context, id string) (school.Invoice, error)
	MarkPaid(ctx context.Context, id string, payment services.PaymentInput) (school.Invoice, error)
}

// FeeStore caches invoices, fee structures and payments.
type FeeStore struct {
	Invoices      *CollectionStore[school.Invoice]
	FeeStructures *CollectionStore[school.FeeStructure]
	Payments      *CollectionStore[school.Payment]

	invoices InvoiceActions
}

func NewFeeStore(invoices InvoiceActions, feeStructures CRUD[school.FeeStructure], payments CRUD[school.Payment]) *FeeStore {
	return &FeeStore{
		Invoices:      NewCollectionStore[school.Invoice](invoices),
		FeeStructures: NewCollectionStore[school.FeeStructure](feeStructures),
		Payments:      NewCollectionStore[school.Payment](payments),
		invoices:      invoices,
	}
}

// SendInvoice sends an invoice and caches its new status.
func (s *FeeStore) SendInvoice(ctx context.Context, id string) (school.Invoice, error) {
	return s.Invoices.mutate(func() (school.Invoice, error) { return s.invoices.Send(ctx, id) })
}

// MarkPaid settles an invoice and caches its new status.
func (s *FeeStore) MarkPaid(ctx context.Context, id string, payment services.PaymentInput) (school.Invoice, error) {
	return s.Invoices.mutate(func() (school.Invoice, error) { return s.invoices.MarkPaid(ctx, id, payment) })
}

// RecordPayment creates a payment and caches it.
func (s *FeeStore) RecordPayment(ctx context.Context, in services.PaymentInput) (school.Payment, error) {
	return s.Payments.Create(ctx, in)
}

// Outstanding is the total balance of the cached invoices.
func (s *FeeStore) Outstanding() float64 {
	var total float64
	for _, inv := range s.Invoices.State().Items {
		if inv.Status != school.InvoicePaid {
			total += inv.Balance()
		}
	}
	return total
}
