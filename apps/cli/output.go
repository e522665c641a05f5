package main

import (
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/trezcool/educloud/core/school"
)

// printer writes command output. Problems go to errOut.
type printer struct {
	out    io.Writer
	errOut io.Writer
}

func (p *printer) success(format string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(p.out, "✓ "+format+"\n", args...)
}

func (p *printer) info(format string, args ...interface{}) {
	color.New(color.FgCyan).Fprintf(p.out, format+"\n", args...)
}

func (p *printer) warn(format string, args ...interface{}) {
	color.New(color.FgYellow).Fprintf(p.errOut, "⚠ "+format+"\n", args...)
}

func (p *printer) fail(format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(p.errOut, "✗ "+format+"\n", args...)
}

func (p *printer) table(headers []string, rows [][]string) {
	table := tablewriter.NewTable(p.out,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
	table.Header(headers)
	table.Bulk(rows)
	table.Render()
}

func invoiceStatus(status string) string {
	switch status {
	case school.InvoicePaid:
		return color.GreenString(status)
	case school.InvoiceOverdue:
		return color.RedString(status)
	case school.InvoicePartial, school.InvoiceSent:
		return color.YellowString(status)
	default:
		return status
	}
}
