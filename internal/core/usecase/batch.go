package usecase

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/finops-tools/finance-monitor/internal/core/domain"
	"github.com/finops-tools/finance-monitor/internal/core/ports"
)

// AuditBatchUseCase runs one audit cycle over already-extracted document
// texts. Documents are independent: a failed one yields an error entry and
// the cycle continues. The reference snapshot is loaded once per cycle and
// shared read-only across all documents.
type AuditBatchUseCase struct {
	logger    *slog.Logger
	parser    ports.FieldParser
	reference ports.ReferenceSource
	engine    ports.ComplianceEvaluator
}

func NewAuditBatchUseCase(
	logger *slog.Logger,
	parser ports.FieldParser,
	reference ports.ReferenceSource,
	engine ports.ComplianceEvaluator,
) *AuditBatchUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditBatchUseCase{
		logger:    logger,
		parser:    parser,
		reference: reference,
		engine:    engine,
	}
}

func (uc *AuditBatchUseCase) ProcessBatch(ctx context.Context, docs []domain.SourceDocument) []domain.BatchEntry {
	snapshot, err := uc.reference.Load(ctx)
	if err != nil {
		uc.logger.Warn("reference_data_unavailable", "error", err)
		snapshot = domain.EmptySnapshot()
	}

	entries := make([]domain.BatchEntry, 0, len(docs))
	for _, doc := range docs {
		entry := domain.BatchEntry{Ref: doc.Ref}

		invoice, err := uc.parser.Parse(doc.Text, doc.Ref)
		if err != nil {
			entry.Error = err.Error()
			uc.logger.Error("batch_document_failed", "ref", doc.Ref, "error", err)
			entries = append(entries, entry)
			continue
		}

		result := uc.engine.Evaluate(ctx, invoice, snapshot)
		entry.Result = &result
		entries = append(entries, entry)
	}
	return entries
}

// Summarize folds batch entries into the cycle KPIs: total volume, the
// amount held back from auto-posting (draft/rejected), and alert counts.
func Summarize(entries []domain.BatchEntry) domain.CycleSummary {
	summary := domain.CycleSummary{
		Documents:       len(entries),
		VolumeProcessed: decimal.Zero,
		CapitalSecured:  decimal.Zero,
	}
	for _, entry := range entries {
		if entry.Result == nil {
			summary.Errors++
			continue
		}
		summary.VolumeProcessed = summary.VolumeProcessed.Add(entry.Result.Invoice.Amount)
		switch entry.Result.FinalStatus {
		case domain.StatusApproved:
			summary.Approved++
		case domain.StatusDraft:
			summary.Drafts++
			summary.CapitalSecured = summary.CapitalSecured.Add(entry.Result.Invoice.Amount)
		case domain.StatusRejected:
			summary.Rejected++
			summary.CapitalSecured = summary.CapitalSecured.Add(entry.Result.Invoice.Amount)
		}
		if entry.Result.RiskScore > 0 {
			summary.RiskAlerts++
		}
	}
	return summary
}
