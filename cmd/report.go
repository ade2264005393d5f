package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Report formats.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatXLSX  = "xlsx"
)

var printer = message.NewPrinter(language.AmericanEnglish)

func usd(v float64) string {
	return printer.Sprintf("$%.2f", v)
}

func pct(v float64) string {
	return printer.Sprintf("%.1f%%", v)
}

func writeJSON(w io.Writer, a assessment) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(a)
}

// writeTable renders the assessment as terminal tables.
func writeTable(w io.Writer, a assessment) error {
	r := a.Result
	var b strings.Builder

	summary := table.NewWriter()
	summary.SetStyle(table.StyleLight)
	summary.SetTitle("%s  %s", r.Verdict.Badge, r.Verdict.Action)
	summary.AppendRows([]table.Row{
		{"Reason", r.Verdict.Reason},
		{"Rule", r.Verdict.RuleID},
		{"Health score", r.Metrics.HealthScore},
		{"Failure probability", pct(r.Metrics.FailProb)},
		{"Calendar age", printer.Sprintf("%.1f yrs", r.Metrics.CalendarAge)},
		{"Biological age", printer.Sprintf("%.1f yrs", r.Metrics.BioAge)},
		{"Sediment", printer.Sprintf("%.1f lbs", r.Metrics.SedimentLbs)},
		{"Replacement budget", usd(r.Financial.ReplacementCost)},
		{"Budget urgency", r.Financial.Urgency},
		{"Save per month", usd(r.Financial.MonthlySavings)},
	})
	if !r.Financial.TargetDate.IsZero() {
		summary.AppendRow(table.Row{"Target date", r.Financial.TargetDate.Format("Jan 2006")})
	}
	b.WriteString(summary.Render())
	b.WriteString("\n")

	if a.Replacement != nil {
		est := table.NewWriter()
		est.SetStyle(table.StyleLight)
		est.SetTitle("Replacement estimate")
		est.AppendHeader(table.Row{"Item", "Amount"})
		for _, item := range a.Replacement.Estimate.Items {
			est.AppendRow(table.Row{item.Name, usd(item.Amount)})
		}
		est.AppendFooter(table.Row{"Total", usd(a.Replacement.Estimate.Total)})
		est.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight}})
		b.WriteString(est.Render())
		b.WriteString("\n")
	}

	if len(r.Maintenance) > 0 {
		tasks := table.NewWriter()
		tasks.SetStyle(table.StyleLight)
		tasks.SetTitle("Maintenance")
		tasks.AppendHeader(table.Row{"Task", "Due in (months)", "Urgency"})
		for _, t := range r.Maintenance {
			tasks.AppendRow(table.Row{t.Title, t.MonthsUntilDue, t.Urgency})
		}
		b.WriteString(tasks.Render())
		b.WriteString("\n")
	}

	if len(r.Findings) > 0 {
		findings := table.NewWriter()
		findings.SetStyle(table.StyleLight)
		findings.SetTitle("Findings")
		findings.AppendHeader(table.Row{"Code", "Severity", "Detail"})
		for _, f := range r.Findings {
			findings.AppendRow(table.Row{f.Code, f.Severity, f.Detail})
		}
		b.WriteString(findings.Render())
		b.WriteString("\n")
	}

	if a.Guidance != nil {
		b.WriteString("\n")
		b.WriteString(a.Guidance.Text)
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// writeXLSX saves the assessment as a workbook with one sheet per section.
func writeXLSX(path string, a assessment) error {
	f := xlsx.NewFile()
	r := a.Result

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "xlsx: add summary sheet")
	}
	addRow(summary, "Action", string(r.Verdict.Action))
	addRow(summary, "Badge", string(r.Verdict.Badge))
	addRow(summary, "Reason", r.Verdict.Reason)
	addRow(summary, "Rule", r.Verdict.RuleID)
	addRow(summary, "Health score", r.Metrics.HealthScore)
	addRow(summary, "Failure probability (%)", r.Metrics.FailProb)
	addRow(summary, "Biological age (yrs)", r.Metrics.BioAge)
	addRow(summary, "Sediment (lbs)", r.Metrics.SedimentLbs)
	addRow(summary, "Replacement budget", r.Financial.ReplacementCost)
	addRow(summary, "Budget urgency", string(r.Financial.Urgency))
	addRow(summary, "Months until target", r.Financial.MonthsUntilTarget)
	addRow(summary, "Monthly savings", r.Financial.MonthlySavings)
	addRow(summary, "Fingerprint", a.Fingerprint)
	if a.Guidance != nil {
		addRow(summary, "Guidance", a.Guidance.Text)
	}

	forecast, err := f.AddSheet("Forecast")
	if err != nil {
		return eris.Wrap(err, "xlsx: add forecast sheet")
	}
	addRow(forecast, "Year", "Repair path", "Replace path")
	for year := range r.Financial.RepairPath {
		var replace float64
		if year < len(r.Financial.ReplacePath) {
			replace = r.Financial.ReplacePath[year]
		}
		addRow(forecast, year, r.Financial.RepairPath[year], replace)
	}

	tasks, err := f.AddSheet("Maintenance")
	if err != nil {
		return eris.Wrap(err, "xlsx: add maintenance sheet")
	}
	addRow(tasks, "Task", "Type", "Months until due", "Urgency", "Infrastructure")
	for _, t := range r.Maintenance {
		addRow(tasks, t.Title, string(t.Type), t.MonthsUntilDue, string(t.Urgency), t.Infrastructure)
	}

	findings, err := f.AddSheet("Findings")
	if err != nil {
		return eris.Wrap(err, "xlsx: add findings sheet")
	}
	addRow(findings, "Code", "Severity", "Detail")
	for _, fd := range r.Findings {
		addRow(findings, fd.Code, string(fd.Severity), fd.Detail)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, vals ...any) {
	row := sheet.AddRow()
	for _, v := range vals {
		cell := row.AddCell()
		switch x := v.(type) {
		case string:
			cell.SetString(x)
		case int:
			cell.SetInt(x)
		case float64:
			cell.SetFloat(x)
		case bool:
			cell.SetBool(x)
		default:
			cell.SetString(fmt.Sprint(x))
		}
	}
}
