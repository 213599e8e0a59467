// Package compliance runs independent business-rule checks against a
// reference snapshot and aggregates them into a single auditable
// disposition.
package compliance

import (
	"fmt"
	"time"

	"github.com/finops-tools/finance-monitor/internal/core/domain"
	"github.com/finops-tools/finance-monitor/internal/fields"
)

// checkFunc is one stateless business-rule evaluation. Checks read only
// their inputs and never depend on another check's outcome.
type checkFunc func(invoice domain.Invoice, snapshot domain.Snapshot, now time.Time) domain.CheckOutcome

// evaluationOrder fixes the order of the checks sequence in every result.
var evaluationOrder = []checkFunc{
	verifyFinancialRouting,
	assessVendorRisk,
	validateBudgetaryAlignment,
	verifyContractualStanding,
}

func outcome(name domain.CheckName, status domain.CheckStatus, message string, now time.Time) domain.CheckOutcome {
	return domain.CheckOutcome{
		CheckName:   name,
		Status:      status,
		Message:     message,
		EvaluatedAt: now,
	}
}

// verifyFinancialRouting compares the invoice IBAN against the set of
// authorized vendor IBANs. A missing IBAN always fails, whatever the
// vendor table holds.
func verifyFinancialRouting(invoice domain.Invoice, snapshot domain.Snapshot, now time.Time) domain.CheckOutcome {
	switch {
	case invoice.IBAN == fields.UnknownIBAN:
		return outcome(domain.CheckFinancialRouting, domain.CheckFail, "Missing IBAN.", now)
	case !snapshot.AuthorizedIBAN(invoice.IBAN):
		msg := fmt.Sprintf("Unauthorized IBAN: %s", invoice.IBAN)
		return outcome(domain.CheckFinancialRouting, domain.CheckFail, msg, now)
	default:
		return outcome(domain.CheckFinancialRouting, domain.CheckPass, "IBAN verified.", now)
	}
}

// assessVendorRisk matches the vendor by normalized name. An unknown vendor
// is a warning, not a failure; only a High risk rating rejects.
func assessVendorRisk(invoice domain.Invoice, snapshot domain.Snapshot, now time.Time) domain.CheckOutcome {
	vendor, ok := snapshot.VendorByName(invoice.VendorName)
	if !ok {
		return outcome(domain.CheckVendorRisk, domain.CheckWarning, "Vendor not in master records.", now)
	}
	if vendor.RiskLevel == domain.RiskHigh {
		return outcome(domain.CheckVendorRisk, domain.CheckFail, "Vendor flagged as High Risk.", now)
	}
	return outcome(domain.CheckVendorRisk, domain.CheckPass, "Vendor risk acceptable.", now)
}

// validateBudgetaryAlignment is advisory: the remaining figure is reported
// post-deduction but nothing is actually deducted from the snapshot.
func validateBudgetaryAlignment(invoice domain.Invoice, snapshot domain.Snapshot, now time.Time) domain.CheckOutcome {
	if invoice.Department == fields.UnknownDepartment {
		return outcome(domain.CheckBudget, domain.CheckWarning, "Department unspecified.", now)
	}

	allocation, ok := snapshot.BudgetForDepartment(invoice.Department)
	if !ok {
		msg := fmt.Sprintf("No budget found for %s.", invoice.Department)
		return outcome(domain.CheckBudget, domain.CheckFail, msg, now)
	}

	if invoice.Amount.GreaterThan(allocation.RemainingBudget) {
		msg := fmt.Sprintf("Insufficent funds. Request: %s, Remaining: %s",
			invoice.Amount.String(), allocation.RemainingBudget.String())
		return outcome(domain.CheckBudget, domain.CheckFail, msg, now)
	}

	remaining := allocation.RemainingBudget.Sub(invoice.Amount)
	msg := fmt.Sprintf("Funds available (%s remaining)", remaining.StringFixed(2))
	return outcome(domain.CheckBudget, domain.CheckPass, msg, now)
}

// verifyContractualStanding requires a parsed invoice date and at least one
// active contract whose window covers it. Date windows compare as ISO
// strings, inclusive on both ends.
func verifyContractualStanding(invoice domain.Invoice, snapshot domain.Snapshot, now time.Time) domain.CheckOutcome {
	if invoice.Date == nil {
		return outcome(domain.CheckContract, domain.CheckFail, "Invoice missing date.", now)
	}

	invoiceDate := invoice.DateISO()
	for _, agreement := range snapshot.ContractsForVendor(invoice.VendorName) {
		if agreement.IsActive && agreement.StartDate <= invoiceDate && invoiceDate <= agreement.EndDate {
			return outcome(domain.CheckContract, domain.CheckPass, "Covered by contract.", now)
		}
	}
	return outcome(domain.CheckContract, domain.CheckFail, "No active contract.", now)
}

// Aggregate collapses check outcomes into the final disposition. FAIL
// dominates, then WARNING; the fold is order-independent.
func Aggregate(checks []domain.CheckOutcome) (domain.FinalStatus, int) {
	status := domain.StatusApproved
	for _, check := range checks {
		switch check.Status {
		case domain.CheckFail:
			return domain.StatusRejected, domain.RiskScoreFor(domain.StatusRejected)
		case domain.CheckWarning:
			status = domain.StatusDraft
		}
	}
	return status, domain.RiskScoreFor(status)
}
