package excel

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/finops-tools/finance-monitor/internal/core/domain"
)

func TestWriteAuditLogRendersEntriesAndSummary(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	entries := []domain.BatchEntry{
		{
			Ref: "invoice_001.txt",
			Result: &domain.ProcessingResult{
				Invoice: domain.Invoice{
					InvoiceID:  "INV-2024-001",
					VendorName: "Acme Corp",
					Date:       &date,
					Amount:     decimal.RequireFromString("1500"),
					Department: "IT",
				},
				Checks: []domain.CheckOutcome{
					{CheckName: domain.CheckFinancialRouting, Status: domain.CheckPass, Message: "IBAN verified."},
					{CheckName: domain.CheckBudget, Status: domain.CheckFail, Message: "Insufficent funds. Request: 1500.00, Remaining: 100.00"},
				},
				FinalStatus: domain.StatusRejected,
				RiskScore:   100,
			},
		},
		{Ref: "broken.txt", Error: "document contains no extractable text"},
	}
	summary := domain.CycleSummary{
		Documents:       2,
		Rejected:        1,
		Errors:          1,
		VolumeProcessed: decimal.RequireFromString("1500"),
		CapitalSecured:  decimal.RequireFromString("1500"),
		RiskAlerts:      1,
	}

	path := filepath.Join(t.TempDir(), "audit.xlsx")
	writer := NewWriter(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := writer.WriteAuditLog(path, entries, summary); err != nil {
		t.Fatalf("WriteAuditLog() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	status, err := f.GetCellValue("Audit Log", "B2")
	if err != nil {
		t.Fatalf("read status cell: %v", err)
	}
	if status != "REJECTED" {
		t.Fatalf("status cell = %q, want REJECTED", status)
	}

	notes, err := f.GetCellValue("Audit Log", "I2")
	if err != nil {
		t.Fatalf("read notes cell: %v", err)
	}
	if notes == "" || notes == "IBAN verified." {
		t.Fatalf("expected failing check message in notes, got %q", notes)
	}

	errStatus, err := f.GetCellValue("Audit Log", "B3")
	if err != nil {
		t.Fatalf("read error status cell: %v", err)
	}
	if errStatus != "ERROR" {
		t.Fatalf("error status cell = %q, want ERROR", errStatus)
	}

	capital, err := f.GetCellValue("Summary", "B7")
	if err != nil {
		t.Fatalf("read capital cell: %v", err)
	}
	if capital != "1500.00" {
		t.Fatalf("capital secured cell = %q, want 1500.00", capital)
	}
}
