// Command auditcycle runs one offline compliance cycle over a directory of
// invoice documents and writes an XLSX audit log. It needs no database or
// queue: documents are read straight from disk.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/finops-tools/finance-monitor/internal/config"
	"github.com/finops-tools/finance-monitor/internal/core/compliance"
	"github.com/finops-tools/finance-monitor/internal/core/domain"
	"github.com/finops-tools/finance-monitor/internal/core/ports"
	"github.com/finops-tools/finance-monitor/internal/core/usecase"
	"github.com/finops-tools/finance-monitor/internal/fields"
	"github.com/finops-tools/finance-monitor/internal/infrastructure/extractor"
	"github.com/finops-tools/finance-monitor/internal/infrastructure/extractor/pdftext"
	"github.com/finops-tools/finance-monitor/internal/infrastructure/extractor/plaintext"
	"github.com/finops-tools/finance-monitor/internal/infrastructure/ledger/odoo"
	"github.com/finops-tools/finance-monitor/internal/infrastructure/reference/csvref"
	"github.com/finops-tools/finance-monitor/internal/infrastructure/report/excel"
	"github.com/finops-tools/finance-monitor/internal/infrastructure/resilience"
	"github.com/finops-tools/finance-monitor/internal/infrastructure/storage/localfs"
	"github.com/finops-tools/finance-monitor/internal/observability/logging"
)

func main() {
	inputDir := flag.String("dir", "./data/inbox", "directory with invoice documents (.txt, .pdf)")
	outPath := flag.String("out", "audit_log.xlsx", "path of the XLSX audit log to write")
	postLedger := flag.Bool("post", false, "post approved invoices to the ledger")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewJSONLogger("auditcycle", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	storage, err := localfs.New(*inputDir)
	if err != nil {
		log.Fatalf("open input dir: %v", err)
	}
	textExtractor := extractor.NewDispatch(
		pdftext.NewExtractor(storage),
		plaintext.NewExtractor(storage),
	)

	// A typed nil pointer must never reach the engine as a non-nil
	// interface, so the poster stays an interface variable.
	var poster ports.LedgerPoster
	if *postLedger {
		poster = odoo.NewWithOptions(cfg.LedgerURL, cfg.LedgerAPIKey, odoo.Options{
			ResilienceExecutor: resilience.NewExecutor(resilience.PostingConfig()),
		})
	}

	parser := fields.NewParser(logger, cfg.ReportingCurrency)
	reference := csvref.NewSource(logger, cfg.ReferenceDataDir)
	engine := compliance.NewEngine(logger, poster)
	batchUC := usecase.NewAuditBatchUseCase(logger, parser, reference, engine)

	docs, err := collectDocuments(ctx, *inputDir, textExtractor)
	if err != nil {
		log.Fatalf("collect documents: %v", err)
	}
	if len(docs) == 0 {
		log.Fatalf("no invoice documents found in %s", *inputDir)
	}

	entries := batchUC.ProcessBatch(ctx, docs)
	summary := usecase.Summarize(entries)

	var writer ports.ReportWriter = excel.NewWriter(logger)
	if err := writer.WriteAuditLog(*outPath, entries, summary); err != nil {
		log.Fatalf("write audit log: %v", err)
	}

	printSummary(summary, *outPath)
}

func collectDocuments(ctx context.Context, dir string, textExtractor *extractor.Dispatch) ([]domain.SourceDocument, error) {
	fsEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(fsEntries))
	for _, entry := range fsEntries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".txt", ".text", ".pdf":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	docs := make([]domain.SourceDocument, 0, len(names))
	for _, name := range names {
		doc := &domain.Document{
			ID:          name,
			Filename:    name,
			StoragePath: name,
		}
		text, err := textExtractor.Extract(ctx, doc)
		if err != nil {
			// ProcessBatch reports it as a failed entry instead of
			// dropping the document silently.
			docs = append(docs, domain.SourceDocument{Ref: name, Text: ""})
			continue
		}
		docs = append(docs, domain.SourceDocument{Ref: name, Text: text})
	}
	return docs, nil
}

func printSummary(summary domain.CycleSummary, outPath string) {
	fmt.Printf("Documents processed: %d\n", summary.Documents)
	fmt.Printf("  Approved:          %d\n", summary.Approved)
	fmt.Printf("  Drafts:            %d\n", summary.Drafts)
	fmt.Printf("  Rejected:          %d\n", summary.Rejected)
	fmt.Printf("  Errors:            %d\n", summary.Errors)
	fmt.Printf("Volume processed:    %s\n", summary.VolumeProcessed.StringFixed(2))
	fmt.Printf("Capital secured:     %s\n", summary.CapitalSecured.StringFixed(2))
	fmt.Printf("Risk alerts:         %d\n", summary.RiskAlerts)
	fmt.Printf("Audit log written to %s\n", outPath)
}
