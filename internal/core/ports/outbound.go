package ports

import (
	"context"
	"io"

	"github.com/finops-tools/finance-monitor/internal/core/domain"
)

// DocumentRepository persists uploaded documents and their processing results.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveResult(ctx context.Context, id string, result domain.ProcessingResult) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishInvoiceIngested(ctx context.Context, documentID string) error
	SubscribeInvoiceIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor turns a stored document into raw page text. It may return an
// empty string; the core treats that as an extraction failure.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// FieldParser recovers a structured invoice from raw document text.
type FieldParser interface {
	Parse(rawText, sourceRef string) (domain.Invoice, error)
}

// ReferenceSource loads the read-only reference snapshot for one cycle.
type ReferenceSource interface {
	Load(ctx context.Context) (domain.Snapshot, error)
}

// LedgerPoster records an approved invoice in the external accounting ledger.
// The boolean mirrors the ledger's own acknowledgement and is kept for audit.
type LedgerPoster interface {
	PostInvoice(ctx context.Context, invoice domain.Invoice) (bool, error)
}

// ComplianceEvaluator runs all checks against one invoice and one snapshot.
type ComplianceEvaluator interface {
	Evaluate(ctx context.Context, invoice domain.Invoice, snapshot domain.Snapshot) domain.ProcessingResult
}

// ReportWriter renders an audit cycle into a shareable artifact.
type ReportWriter interface {
	WriteAuditLog(path string, entries []domain.BatchEntry, summary domain.CycleSummary) error
}
