package compliance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finops-tools/finance-monitor/internal/core/domain"
	"github.com/finops-tools/finance-monitor/internal/fields"
)

var checkTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func referenceSnapshot() domain.Snapshot {
	return domain.NewSnapshot(
		[]domain.VendorRecord{
			{Name: "Acme Corp", IBAN: "DE89370400440532013000", RiskLevel: domain.RiskLow},
			{Name: "Shady Ltd", IBAN: "FR7630006000011234567890189", RiskLevel: domain.RiskHigh},
		},
		[]domain.BudgetRecord{
			{Department: "IT", TotalBudget: decimal.RequireFromString("50000"), RemainingBudget: decimal.RequireFromString("2000")},
		},
		[]domain.ContractRecord{
			{VendorName: "Acme Corp", StartDate: "2024-01-01", EndDate: "2024-12-31", IsActive: true},
			{VendorName: "Shady Ltd", StartDate: "2023-01-01", EndDate: "2023-12-31", IsActive: false},
		},
	)
}

func approvableInvoice() domain.Invoice {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return domain.Invoice{
		InvoiceID:  "INV-2024-001",
		VendorName: "Acme Corp",
		IBAN:       "DE89370400440532013000",
		Date:       &date,
		Amount:     decimal.RequireFromString("1500"),
		Currency:   "EUR",
		Department: "IT",
	}
}

func TestVerifyFinancialRouting(t *testing.T) {
	snapshot := referenceSnapshot()

	invoice := approvableInvoice()
	out := verifyFinancialRouting(invoice, snapshot, checkTime)
	if out.Status != domain.CheckPass || out.Message != "IBAN verified." {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	invoice.IBAN = fields.UnknownIBAN
	out = verifyFinancialRouting(invoice, snapshot, checkTime)
	if out.Status != domain.CheckFail || out.Message != "Missing IBAN." {
		t.Fatalf("missing IBAN outcome: %+v", out)
	}

	// A missing IBAN fails even against an empty snapshot.
	out = verifyFinancialRouting(invoice, domain.EmptySnapshot(), checkTime)
	if out.Status != domain.CheckFail || out.Message != "Missing IBAN." {
		t.Fatalf("missing IBAN against empty snapshot: %+v", out)
	}

	invoice.IBAN = "GB00UNKNOWN0000000000"
	out = verifyFinancialRouting(invoice, snapshot, checkTime)
	if out.Status != domain.CheckFail || out.Message != "Unauthorized IBAN: GB00UNKNOWN0000000000" {
		t.Fatalf("unauthorized IBAN outcome: %+v", out)
	}
}

func TestAssessVendorRisk(t *testing.T) {
	snapshot := referenceSnapshot()

	invoice := approvableInvoice()
	out := assessVendorRisk(invoice, snapshot, checkTime)
	if out.Status != domain.CheckPass || out.Message != "Vendor risk acceptable." {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	invoice.VendorName = "  ACME CORP "
	out = assessVendorRisk(invoice, snapshot, checkTime)
	if out.Status != domain.CheckPass {
		t.Fatalf("vendor match must be case and whitespace insensitive: %+v", out)
	}

	invoice.VendorName = "Shady Ltd"
	out = assessVendorRisk(invoice, snapshot, checkTime)
	if out.Status != domain.CheckFail || out.Message != "Vendor flagged as High Risk." {
		t.Fatalf("high risk outcome: %+v", out)
	}

	invoice.VendorName = "Nobody GmbH"
	out = assessVendorRisk(invoice, snapshot, checkTime)
	if out.Status != domain.CheckWarning || out.Message != "Vendor not in master records." {
		t.Fatalf("unknown vendor outcome: %+v", out)
	}
}

func TestValidateBudgetaryAlignment(t *testing.T) {
	snapshot := referenceSnapshot()

	invoice := approvableInvoice()
	out := validateBudgetaryAlignment(invoice, snapshot, checkTime)
	if out.Status != domain.CheckPass || out.Message != "Funds available (500.00 remaining)" {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	// Exactly exhausting the budget still passes.
	invoice.Amount = decimal.RequireFromString("2000")
	out = validateBudgetaryAlignment(invoice, snapshot, checkTime)
	if out.Status != domain.CheckPass || out.Message != "Funds available (0.00 remaining)" {
		t.Fatalf("boundary outcome: %+v", out)
	}

	invoice.Amount = decimal.RequireFromString("2000.01")
	out = validateBudgetaryAlignment(invoice, snapshot, checkTime)
	if out.Status != domain.CheckFail {
		t.Fatalf("overrun outcome: %+v", out)
	}
	if out.Message != "Insufficent funds. Request: 2000.01, Remaining: 2000" {
		t.Fatalf("overrun message: %q", out.Message)
	}

	invoice.Amount = decimal.RequireFromString("10")
	invoice.Department = "Legal"
	out = validateBudgetaryAlignment(invoice, snapshot, checkTime)
	if out.Status != domain.CheckFail || out.Message != "No budget found for Legal." {
		t.Fatalf("missing budget outcome: %+v", out)
	}

	// An unspecified department warns even when the snapshot is empty.
	invoice.Department = fields.UnknownDepartment
	out = validateBudgetaryAlignment(invoice, domain.EmptySnapshot(), checkTime)
	if out.Status != domain.CheckWarning || out.Message != "Department unspecified." {
		t.Fatalf("unspecified department outcome: %+v", out)
	}
}

func TestVerifyContractualStanding(t *testing.T) {
	snapshot := referenceSnapshot()

	invoice := approvableInvoice()
	out := verifyContractualStanding(invoice, snapshot, checkTime)
	if out.Status != domain.CheckPass || out.Message != "Covered by contract." {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	// Window boundaries are inclusive.
	for _, iso := range []string{"2024-01-01", "2024-12-31"} {
		date, _ := time.Parse("2006-01-02", iso)
		invoice.Date = &date
		out = verifyContractualStanding(invoice, snapshot, checkTime)
		if out.Status != domain.CheckPass {
			t.Fatalf("boundary date %s outcome: %+v", iso, out)
		}
	}

	outside, _ := time.Parse("2006-01-02", "2025-01-01")
	invoice.Date = &outside
	out = verifyContractualStanding(invoice, snapshot, checkTime)
	if out.Status != domain.CheckFail || out.Message != "No active contract." {
		t.Fatalf("outside window outcome: %+v", out)
	}

	// An inactive contract never covers, even inside its window.
	inWindow, _ := time.Parse("2006-01-02", "2023-06-01")
	invoice.VendorName = "Shady Ltd"
	invoice.Date = &inWindow
	out = verifyContractualStanding(invoice, snapshot, checkTime)
	if out.Status != domain.CheckFail || out.Message != "No active contract." {
		t.Fatalf("inactive contract outcome: %+v", out)
	}

	invoice.Date = nil
	out = verifyContractualStanding(invoice, snapshot, checkTime)
	if out.Status != domain.CheckFail || out.Message != "Invoice missing date." {
		t.Fatalf("missing date outcome: %+v", out)
	}
}

func TestAggregateDispositionLattice(t *testing.T) {
	statuses := []domain.CheckStatus{domain.CheckPass, domain.CheckWarning, domain.CheckFail}

	// Exhaustive over all four-check combinations: FAIL dominates WARNING,
	// WARNING dominates PASS, regardless of position.
	for _, a := range statuses {
		for _, b := range statuses {
			for _, c := range statuses {
				for _, d := range statuses {
					combo := []domain.CheckOutcome{
						{Status: a}, {Status: b}, {Status: c}, {Status: d},
					}
					got, score := Aggregate(combo)

					want := domain.StatusApproved
					for _, s := range []domain.CheckStatus{a, b, c, d} {
						if s == domain.CheckFail {
							want = domain.StatusRejected
							break
						}
						if s == domain.CheckWarning {
							want = domain.StatusDraft
						}
					}
					if got != want {
						t.Fatalf("Aggregate(%v %v %v %v) = %v, want %v", a, b, c, d, got, want)
					}
					if score != domain.RiskScoreFor(want) {
						t.Fatalf("risk score for %v = %d", want, score)
					}
				}
			}
		}
	}
}

func TestAggregateEmptyChecksApproves(t *testing.T) {
	status, score := Aggregate(nil)
	if status != domain.StatusApproved || score != 0 {
		t.Fatalf("Aggregate(nil) = %v/%d", status, score)
	}
}
