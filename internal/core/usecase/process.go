package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/finops-tools/finance-monitor/internal/core/domain"
	"github.com/finops-tools/finance-monitor/internal/core/ports"
)

type ProcessInvoiceUseCase struct {
	logger    *slog.Logger
	repo      ports.DocumentRepository
	extractor ports.TextExtractor
	parser    ports.FieldParser
	reference ports.ReferenceSource
	engine    ports.ComplianceEvaluator
}

func NewProcessInvoiceUseCase(
	logger *slog.Logger,
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	parser ports.FieldParser,
	reference ports.ReferenceSource,
	engine ports.ComplianceEvaluator,
) *ProcessInvoiceUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessInvoiceUseCase{
		logger:    logger,
		repo:      repo,
		extractor: extractor,
		parser:    parser,
		reference: reference,
		engine:    engine,
	}
}

// ProcessByID runs one full compliance cycle for a stored document:
// extract text, parse fields, load the reference snapshot, evaluate, and
// persist the result. Extraction failure is fatal to the document;
// reference-data failure degrades to an empty snapshot.
func (uc *ProcessInvoiceUseCase) ProcessByID(ctx context.Context, documentID string) (*domain.ProcessingResult, error) {
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return nil, fmt.Errorf("set status=processing: %w", err)
	}

	result, err := uc.processPipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return nil, fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return nil, err
	}

	if err := uc.repo.SaveResult(ctx, documentID, *result); err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return nil, fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return nil, err
	}

	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusProcessed, ""); err != nil {
		return nil, fmt.Errorf("set status=processed: %w", err)
	}

	return result, nil
}

func (uc *ProcessInvoiceUseCase) processPipeline(ctx context.Context, documentID string) (*domain.ProcessingResult, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}

	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}

	invoice, err := uc.parser.Parse(text, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("parse invoice fields: %w", err)
	}

	snapshot := uc.loadSnapshot(ctx)
	result := uc.engine.Evaluate(ctx, invoice, snapshot)
	return &result, nil
}

// loadSnapshot degrades to empty reference collections rather than failing
// the document; every check reports its missing-data path against them.
func (uc *ProcessInvoiceUseCase) loadSnapshot(ctx context.Context) domain.Snapshot {
	snapshot, err := uc.reference.Load(ctx)
	if err != nil {
		uc.logger.Warn("reference_data_unavailable", "error", err)
		return domain.EmptySnapshot()
	}
	return snapshot
}

func (uc *ProcessInvoiceUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, processErr.Error())
}
