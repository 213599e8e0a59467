// Package excel renders one audit cycle into an XLSX workbook that finance
// reviewers can file alongside the source documents.
package excel

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/finops-tools/finance-monitor/internal/core/domain"
)

const (
	auditSheet   = "Audit Log"
	summarySheet = "Summary"
)

type Writer struct {
	logger *slog.Logger
}

func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger}
}

// WriteAuditLog writes one row per batch entry plus a KPI summary sheet.
func (w *Writer) WriteAuditLog(path string, entries []domain.BatchEntry, summary domain.CycleSummary) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			w.logger.Warn("audit_log_close_failed", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", auditSheet); err != nil {
		return fmt.Errorf("rename audit sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	headers := []string{"Source", "Status", "Vendor", "Invoice ID", "Date", "Amount", "Department", "Risk Score", "Notes"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(auditSheet, cell, h)
	}

	row := 2
	for _, entry := range entries {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(auditSheet, cell, v)
		}

		write(1, entry.Ref)
		if entry.Result == nil {
			write(2, "ERROR")
			write(9, entry.Error)
			row++
			continue
		}

		result := entry.Result
		write(2, string(result.FinalStatus))
		write(3, result.Invoice.VendorName)
		write(4, result.Invoice.InvoiceID)
		write(5, result.Invoice.DateISO())
		write(6, result.Invoice.Amount.StringFixed(2))
		write(7, result.Invoice.Department)
		write(8, result.RiskScore)
		write(9, formatNotes(result))
		row++
	}

	_ = f.SetColWidth(auditSheet, "A", "A", 28)
	_ = f.SetColWidth(auditSheet, "C", "C", 24)
	_ = f.SetColWidth(auditSheet, "E", "F", 14)
	_ = f.SetColWidth(auditSheet, "I", "I", 60)

	kpis := [][2]any{
		{"Documents", summary.Documents},
		{"Approved", summary.Approved},
		{"Drafts", summary.Drafts},
		{"Rejected", summary.Rejected},
		{"Errors", summary.Errors},
		{"Volume Processed", summary.VolumeProcessed.StringFixed(2)},
		{"Capital Secured", summary.CapitalSecured.StringFixed(2)},
		{"Risk Alerts", summary.RiskAlerts},
	}
	for i, kpi := range kpis {
		nameCell, _ := excelize.CoordinatesToCellName(1, i+1)
		valueCell, _ := excelize.CoordinatesToCellName(2, i+1)
		_ = f.SetCellValue(summarySheet, nameCell, kpi[0])
		_ = f.SetCellValue(summarySheet, valueCell, kpi[1])
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 20)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save audit log %s: %w", path, err)
	}
	return nil
}

// formatNotes collapses the non-passing check messages into one cell.
func formatNotes(result *domain.ProcessingResult) string {
	var notes []string
	for _, check := range result.Checks {
		if check.Status == domain.CheckPass {
			continue
		}
		notes = append(notes, fmt.Sprintf("%s [%s]: %s", check.CheckName, check.Status, check.Message))
	}
	if result.PostingError != "" {
		notes = append(notes, "Ledger: "+result.PostingError)
	}
	return strings.Join(notes, "; ")
}
