package ports

import (
	"context"
	"io"

	"github.com/finops-tools/finance-monitor/internal/core/domain"
)

// InvoiceIngestor is the inbound contract for document upload orchestration.
type InvoiceIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document metadata and results.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// InvoiceProcessor is the inbound contract for asynchronous processing.
type InvoiceProcessor interface {
	ProcessByID(ctx context.Context, documentID string) (*domain.ProcessingResult, error)
}

// BatchAuditor runs one audit cycle over already-extracted document texts.
type BatchAuditor interface {
	ProcessBatch(ctx context.Context, docs []domain.SourceDocument) []domain.BatchEntry
}
