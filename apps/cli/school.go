package main

import (
	"context"
	"fmt"

	"github.com/trezcool/educloud/services"
)

func (cli *commandLine) requireSession() error {
	if !cli.sdk.Sessions.IsAuthenticated() {
		cli.out.warn("Not signed in. Run \"login\" first.")
		return errNotSignedIn
	}
	return nil
}

func (cli *commandLine) students(ctx context.Context, search, classID string, page, limit int) error {
	if err := cli.requireSession(); err != nil {
		return err
	}
	store := cli.sdk.StudentStore
	err := store.Fetch(ctx, services.StudentFilter{
		ListParams: services.ListParams{Page: page, Limit: limit, Search: search, Sort: "lastName"},
		ClassID:    classID,
	})
	if err != nil {
		return err
	}

	items := store.State().Items
	if len(items) == 0 {
		cli.out.info("No students found.")
		return nil
	}
	rows := make([][]string, 0, len(items))
	for _, s := range items {
		rows = append(rows, []string{s.AdmissionNumber, s.FullName(), s.ClassID.String, s.Status})
	}
	cli.out.table([]string{"admission no", "name", "class", "status"}, rows)

	pg := store.Pagination()
	cli.out.info("Page %d/%d (%d students)", pg.Page, pg.TotalPages, pg.Total)
	return nil
}

func (cli *commandLine) invoices(ctx context.Context, status, studentID string) error {
	if err := cli.requireSession(); err != nil {
		return err
	}
	fees := cli.sdk.FeeStore
	if err := fees.Invoices.Fetch(ctx, services.InvoiceFilter{Status: status, StudentID: studentID}); err != nil {
		return err
	}

	items := fees.Invoices.State().Items
	if len(items) == 0 {
		cli.out.info("No invoices found.")
		return nil
	}
	rows := make([][]string, 0, len(items))
	for _, inv := range items {
		rows = append(rows, []string{
			inv.Number,
			inv.StudentID,
			formatAmount(inv.Amount, inv.Currency),
			formatAmount(inv.AmountPaid, inv.Currency),
			invoiceStatus(inv.Status),
			inv.DueDate,
		})
	}
	cli.out.table([]string{"number", "student", "amount", "paid", "status", "due"}, rows)
	cli.out.info("Outstanding: %s", formatAmount(fees.Outstanding(), ""))
	return nil
}

func (cli *commandLine) invoicePDF(ctx context.Context, id, filename string) error {
	if err := cli.requireSession(); err != nil {
		return err
	}
	saved, err := cli.sdk.Invoices.Download(ctx, id, filename)
	if err != nil {
		return err
	}
	cli.out.success("Saved %s", saved)
	return nil
}

func (cli *commandLine) notifications(ctx context.Context, unreadOnly, readAll bool) error {
	if err := cli.requireSession(); err != nil {
		return err
	}
	store := cli.sdk.NotificationStore
	if readAll {
		if err := store.MarkAllRead(ctx); err != nil {
			return err
		}
		cli.out.success("Marked every notification as read")
		return nil
	}

	if err := store.Fetch(ctx, services.NotificationFilter{Unread: unreadOnly}); err != nil {
		return err
	}
	count, err := store.RefreshUnread(ctx)
	if err != nil {
		return err
	}

	items := store.State().Items
	if len(items) == 0 {
		cli.out.info("No notifications found.")
		return nil
	}
	rows := make([][]string, 0, len(items))
	for _, n := range items {
		read := ""
		if n.IsRead() {
			read = "yes"
		}
		rows = append(rows, []string{n.CreatedAt.Format("2006-01-02"), n.Type, n.Title, read})
	}
	cli.out.table([]string{"date", "type", "title", "read"}, rows)
	cli.out.info("%d unread", count)
	return nil
}

func formatAmount(amount float64, currency string) string {
	if currency == "" {
		return fmt.Sprintf("%.2f", amount)
	}
	return fmt.Sprintf("%.2f %s", amount, currency)
}
