// Package extractor routes stored documents to the text extraction backend
// matching their format.
package extractor

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/finops-tools/finance-monitor/internal/core/domain"
	"github.com/finops-tools/finance-monitor/internal/core/ports"
)

type Dispatch struct {
	pdf      ports.TextExtractor
	fallback ports.TextExtractor
}

func NewDispatch(pdf, fallback ports.TextExtractor) *Dispatch {
	return &Dispatch{pdf: pdf, fallback: fallback}
}

func (d *Dispatch) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	if isPDF(doc) {
		return d.pdf.Extract(ctx, doc)
	}
	return d.fallback.Extract(ctx, doc)
}

func isPDF(doc *domain.Document) bool {
	if strings.EqualFold(doc.MimeType, "application/pdf") {
		return true
	}
	return strings.EqualFold(filepath.Ext(doc.Filename), ".pdf")
}
