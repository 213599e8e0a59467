package compliance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/finops-tools/finance-monitor/internal/core/domain"
	"github.com/finops-tools/finance-monitor/internal/fields"
)

type fakePoster struct {
	calls  int
	last   domain.Invoice
	posted bool
	err    error
}

func (f *fakePoster) PostInvoice(_ context.Context, invoice domain.Invoice) (bool, error) {
	f.calls++
	f.last = invoice
	return f.posted, f.err
}

func newTestEngine(poster *fakePoster) *Engine {
	engine := NewEngine(slog.New(slog.NewTextHandler(io.Discard, nil)), poster)
	return engine.WithClock(func() time.Time { return checkTime })
}

func TestEvaluateApprovedInvoicePostsOnce(t *testing.T) {
	poster := &fakePoster{posted: true}
	engine := newTestEngine(poster)

	result := engine.Evaluate(context.Background(), approvableInvoice(), referenceSnapshot())

	if result.FinalStatus != domain.StatusApproved {
		t.Fatalf("FinalStatus = %v, checks %+v", result.FinalStatus, result.Checks)
	}
	if result.RiskScore != 0 {
		t.Fatalf("RiskScore = %d, want 0", result.RiskScore)
	}
	if len(result.Checks) != 4 {
		t.Fatalf("expected 4 checks, got %d", len(result.Checks))
	}
	wantOrder := []domain.CheckName{
		domain.CheckFinancialRouting,
		domain.CheckVendorRisk,
		domain.CheckBudget,
		domain.CheckContract,
	}
	for i, name := range wantOrder {
		if result.Checks[i].CheckName != name {
			t.Fatalf("check %d = %v, want %v", i, result.Checks[i].CheckName, name)
		}
		if !result.Checks[i].EvaluatedAt.Equal(checkTime) {
			t.Fatalf("check %d timestamp = %v", i, result.Checks[i].EvaluatedAt)
		}
	}
	if poster.calls != 1 {
		t.Fatalf("poster calls = %d, want 1", poster.calls)
	}
	if poster.last.InvoiceID != "INV-2024-001" {
		t.Fatalf("posted invoice = %+v", poster.last)
	}
	if !result.LedgerPosted || result.PostingError != "" {
		t.Fatalf("posting outcome: posted=%v err=%q", result.LedgerPosted, result.PostingError)
	}
}

func TestEvaluateHighRiskVendorRejectsWithoutPosting(t *testing.T) {
	poster := &fakePoster{posted: true}
	engine := newTestEngine(poster)

	invoice := approvableInvoice()
	invoice.VendorName = "Shady Ltd"
	invoice.IBAN = "FR7630006000011234567890189"

	result := engine.Evaluate(context.Background(), invoice, referenceSnapshot())

	if result.FinalStatus != domain.StatusRejected {
		t.Fatalf("FinalStatus = %v", result.FinalStatus)
	}
	if result.RiskScore != 100 {
		t.Fatalf("RiskScore = %d, want 100", result.RiskScore)
	}
	if poster.calls != 0 {
		t.Fatalf("rejected invoice must not post, got %d calls", poster.calls)
	}
}

func TestEvaluateUnknownVendorDraftsWithoutPosting(t *testing.T) {
	poster := &fakePoster{posted: true}
	engine := newTestEngine(poster)

	invoice := approvableInvoice()
	invoice.VendorName = "Nobody GmbH"

	// Routing passes (authorized IBAN), risk warns, budget passes, contract
	// fails for the unknown vendor. FAIL dominates the warning.
	result := engine.Evaluate(context.Background(), invoice, referenceSnapshot())
	if result.FinalStatus != domain.StatusRejected {
		t.Fatalf("FinalStatus = %v", result.FinalStatus)
	}

	// With a covering contract but no master record the invoice drafts.
	snapshot := domain.NewSnapshot(
		[]domain.VendorRecord{{Name: "Acme Corp", IBAN: "DE89370400440532013000", RiskLevel: domain.RiskLow}},
		[]domain.BudgetRecord{{Department: "IT", TotalBudget: dec("50000"), RemainingBudget: dec("2000")}},
		[]domain.ContractRecord{{VendorName: "Nobody GmbH", StartDate: "2024-01-01", EndDate: "2024-12-31", IsActive: true}},
	)
	result = engine.Evaluate(context.Background(), invoice, snapshot)
	if result.FinalStatus != domain.StatusDraft {
		t.Fatalf("FinalStatus = %v, checks %+v", result.FinalStatus, result.Checks)
	}
	if result.RiskScore != 50 {
		t.Fatalf("RiskScore = %d, want 50", result.RiskScore)
	}
	if poster.calls != 0 {
		t.Fatalf("draft invoice must not post, got %d calls", poster.calls)
	}
}

func TestEvaluateAgainstEmptySnapshotNeverPanics(t *testing.T) {
	engine := newTestEngine(&fakePoster{})

	result := engine.Evaluate(context.Background(), approvableInvoice(), domain.EmptySnapshot())
	if result.FinalStatus != domain.StatusRejected {
		t.Fatalf("empty snapshot must reject via unauthorized IBAN, got %v", result.FinalStatus)
	}
}

func TestEvaluateSurfacesPostingFailure(t *testing.T) {
	poster := &fakePoster{err: errors.New("ledger unreachable")}
	engine := newTestEngine(poster)

	result := engine.Evaluate(context.Background(), approvableInvoice(), referenceSnapshot())

	if result.FinalStatus != domain.StatusApproved {
		t.Fatalf("posting failure must not change disposition, got %v", result.FinalStatus)
	}
	if result.LedgerPosted {
		t.Fatalf("LedgerPosted = true on failure")
	}
	if result.PostingError == "" {
		t.Fatalf("expected posting error to be recorded")
	}
}

func TestEvaluateRecordsLedgerRefusal(t *testing.T) {
	poster := &fakePoster{posted: false}
	engine := newTestEngine(poster)

	result := engine.Evaluate(context.Background(), approvableInvoice(), referenceSnapshot())
	if result.LedgerPosted {
		t.Fatalf("LedgerPosted = true, want false")
	}
	if result.PostingError != "ledger rejected posting" {
		t.Fatalf("PostingError = %q", result.PostingError)
	}
}

func TestEvaluateEndToEndFromRawText(t *testing.T) {
	text := "Vendor: Acme Corp\n" +
		"IBAN: DE89370400440532013000\n" +
		"Invoice #: INV-2024-001\n" +
		"Date: 2024-03-01\n" +
		"Total Amount: 1.500,00\n" +
		"Department: IT\n"

	parser := fields.NewParser(slog.New(slog.NewTextHandler(io.Discard, nil)), "EUR")
	invoice, err := parser.Parse(text, "doc-1")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	poster := &fakePoster{posted: true}
	result := newTestEngine(poster).Evaluate(context.Background(), invoice, referenceSnapshot())

	if result.FinalStatus != domain.StatusApproved {
		t.Fatalf("FinalStatus = %v, checks %+v", result.FinalStatus, result.Checks)
	}
	if poster.calls != 1 {
		t.Fatalf("poster calls = %d, want 1", poster.calls)
	}
	if got := poster.last.Amount.StringFixed(2); got != "1500.00" {
		t.Fatalf("posted amount = %s", got)
	}
}
