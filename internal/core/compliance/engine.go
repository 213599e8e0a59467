package compliance

import (
	"context"
	"log/slog"
	"time"

	"github.com/finops-tools/finance-monitor/internal/core/domain"
	"github.com/finops-tools/finance-monitor/internal/core/ports"
)

// Engine orchestrates the check functions for one invoice against one
// snapshot. Check failures are normal outcomes, never errors; the only side
// effect is a single ledger posting call on an APPROVED disposition.
type Engine struct {
	logger *slog.Logger
	poster ports.LedgerPoster
	now    func() time.Time
}

func NewEngine(logger *slog.Logger, poster ports.LedgerPoster) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger: logger,
		poster: poster,
		now:    time.Now,
	}
}

// WithClock overrides the evaluation timestamp source.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	if now != nil {
		e.now = now
	}
	return e
}

func (e *Engine) Evaluate(ctx context.Context, invoice domain.Invoice, snapshot domain.Snapshot) domain.ProcessingResult {
	now := e.now().UTC()

	checks := make([]domain.CheckOutcome, 0, len(evaluationOrder))
	for _, check := range evaluationOrder {
		checks = append(checks, check(invoice, snapshot, now))
	}

	finalStatus, riskScore := Aggregate(checks)

	result := domain.ProcessingResult{
		Invoice:     invoice,
		Checks:      checks,
		FinalStatus: finalStatus,
		RiskScore:   riskScore,
	}

	if finalStatus == domain.StatusApproved {
		e.postToLedger(ctx, &result)
	}

	e.logger.Info("invoice_evaluated",
		"invoice_id", invoice.InvoiceID,
		"vendor", invoice.VendorName,
		"final_status", finalStatus,
		"risk_score", riskScore,
		"ledger_posted", result.LedgerPosted,
	)
	return result
}

// postToLedger records the posting outcome on the result. A failure is
// surfaced for audit but the disposition never changes retroactively.
func (e *Engine) postToLedger(ctx context.Context, result *domain.ProcessingResult) {
	if e.poster == nil {
		return
	}
	posted, err := e.poster.PostInvoice(ctx, result.Invoice)
	if err != nil {
		result.PostingError = err.Error()
		e.logger.Error("ledger_posting_failed",
			"invoice_id", result.Invoice.InvoiceID, "error", err)
		return
	}
	result.LedgerPosted = posted
	if !posted {
		result.PostingError = "ledger rejected posting"
		e.logger.Error("ledger_posting_rejected", "invoice_id", result.Invoice.InvoiceID)
	}
}
