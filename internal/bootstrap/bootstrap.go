package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/finops-tools/finance-monitor/internal/config"
	"github.com/finops-tools/finance-monitor/internal/core/compliance"
	"github.com/finops-tools/finance-monitor/internal/core/ports"
	"github.com/finops-tools/finance-monitor/internal/core/usecase"
	"github.com/finops-tools/finance-monitor/internal/fields"
	"github.com/finops-tools/finance-monitor/internal/infrastructure/extractor"
	"github.com/finops-tools/finance-monitor/internal/infrastructure/extractor/pdftext"
	"github.com/finops-tools/finance-monitor/internal/infrastructure/extractor/plaintext"
	"github.com/finops-tools/finance-monitor/internal/infrastructure/ledger/odoo"
	"github.com/finops-tools/finance-monitor/internal/infrastructure/queue/nats"
	"github.com/finops-tools/finance-monitor/internal/infrastructure/reference/csvref"
	"github.com/finops-tools/finance-monitor/internal/infrastructure/repository/postgres"
	"github.com/finops-tools/finance-monitor/internal/infrastructure/resilience"
	"github.com/finops-tools/finance-monitor/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     ports.MessageQueue
	Repo      ports.DocumentRepository
	IngestUC  ports.InvoiceIngestor
	ProcessUC ports.InvoiceProcessor
	BatchUC   ports.BatchAuditor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	textExtractor := extractor.NewDispatch(
		pdftext.NewExtractor(storage),
		plaintext.NewExtractor(storage),
	)
	parser := fields.NewParser(logger, cfg.ReportingCurrency)
	reference := csvref.NewSource(logger, cfg.ReferenceDataDir)

	poster := odoo.NewWithOptions(cfg.LedgerURL, cfg.LedgerAPIKey, odoo.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.PostingConfig()),
	})
	engine := compliance.NewEngine(logger, poster)

	ingestUC := usecase.NewIngestInvoiceUseCase(repo, storage, queue)
	processUC := usecase.NewProcessInvoiceUseCase(logger, repo, textExtractor, parser, reference, engine)
	batchUC := usecase.NewAuditBatchUseCase(logger, parser, reference, engine)

	return &App{
		Config: cfg,
		Logger: logger,
		Queue:  queue,
		Repo:   repo,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		BatchUC:   batchUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
