package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"github.com/finops-tools/finance-monitor/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS invoice_documents (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT,
	invoice_id TEXT,
	vendor_name TEXT,
	iban TEXT,
	invoice_date DATE,
	amount NUMERIC(14,2),
	currency TEXT,
	department TEXT,
	final_status TEXT,
	risk_score INTEGER,
	ledger_posted BOOLEAN NOT NULL DEFAULT FALSE,
	posting_error TEXT,
	checks JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_invoice_documents_status ON invoice_documents(status);
CREATE INDEX IF NOT EXISTS idx_invoice_documents_final_status ON invoice_documents(final_status);
CREATE INDEX IF NOT EXISTS idx_invoice_documents_created_at ON invoice_documents(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO invoice_documents (
	id, filename, mime_type, storage_path, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		doc.ID, doc.Filename, doc.MimeType, doc.StoragePath, string(doc.Status), doc.Error,
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert invoice document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, mime_type, storage_path, status, error_message,
	invoice_id, vendor_name, iban, invoice_date, amount, currency, department,
	final_status, risk_score, ledger_posted, posting_error, checks,
	created_at, updated_at
FROM invoice_documents
WHERE id = $1
`, id)

	var (
		doc          domain.Document
		status       string
		errMessage   sql.NullString
		invoiceID    sql.NullString
		vendorName   sql.NullString
		iban         sql.NullString
		invoiceDate  sql.NullTime
		amount       sql.NullString
		currency     sql.NullString
		department   sql.NullString
		finalStatus  sql.NullString
		riskScore    sql.NullInt64
		ledgerPosted bool
		postingError sql.NullString
		checksRaw    []byte
	)

	err := row.Scan(
		&doc.ID, &doc.Filename, &doc.MimeType, &doc.StoragePath, &status, &errMessage,
		&invoiceID, &vendorName, &iban, &invoiceDate, &amount, &currency, &department,
		&finalStatus, &riskScore, &ledgerPosted, &postingError, &checksRaw,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan invoice document: %w", err)
	}

	doc.Status = domain.DocumentStatus(status)
	doc.Error = errMessage.String

	if finalStatus.Valid {
		result, err := assembleResult(
			invoiceID, vendorName, iban, invoiceDate, amount, currency, department,
			finalStatus, riskScore, ledgerPosted, postingError, checksRaw, doc.ID,
		)
		if err != nil {
			return nil, err
		}
		doc.Result = result
	}
	return &doc, nil
}

func assembleResult(
	invoiceID, vendorName, iban sql.NullString,
	invoiceDate sql.NullTime,
	amount, currency, department, finalStatus sql.NullString,
	riskScore sql.NullInt64,
	ledgerPosted bool,
	postingError sql.NullString,
	checksRaw []byte,
	sourceRef string,
) (*domain.ProcessingResult, error) {
	var checks []domain.CheckOutcome
	if len(checksRaw) > 0 {
		if err := json.Unmarshal(checksRaw, &checks); err != nil {
			return nil, fmt.Errorf("unmarshal checks: %w", err)
		}
	}

	amountValue := decimal.Zero
	if amount.Valid {
		parsed, err := decimal.NewFromString(amount.String)
		if err != nil {
			return nil, fmt.Errorf("parse stored amount: %w", err)
		}
		amountValue = parsed
	}

	var date *time.Time
	if invoiceDate.Valid {
		d := invoiceDate.Time
		date = &d
	}

	return &domain.ProcessingResult{
		Invoice: domain.Invoice{
			InvoiceID:  invoiceID.String,
			VendorName: vendorName.String,
			IBAN:       iban.String,
			Date:       date,
			Amount:     amountValue,
			Currency:   currency.String,
			Department: department.String,
			SourceRef:  sourceRef,
		},
		Checks:       checks,
		FinalStatus:  domain.FinalStatus(finalStatus.String),
		RiskScore:    int(riskScore.Int64),
		LedgerPosted: ledgerPosted,
		PostingError: postingError.String,
	}, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE invoice_documents
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return requireRowAffected(res, "update document status", id)
}

func (r *DocumentRepository) SaveResult(ctx context.Context, id string, result domain.ProcessingResult) error {
	checksJSON, err := json.Marshal(result.Checks)
	if err != nil {
		return fmt.Errorf("marshal checks: %w", err)
	}

	var invoiceDate any
	if result.Invoice.Date != nil {
		invoiceDate = *result.Invoice.Date
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE invoice_documents
SET invoice_id = $2, vendor_name = $3, iban = $4, invoice_date = $5,
	amount = $6, currency = $7, department = $8,
	final_status = $9, risk_score = $10, ledger_posted = $11, posting_error = $12,
	checks = $13, updated_at = $14
WHERE id = $1
`,
		id, result.Invoice.InvoiceID, result.Invoice.VendorName, result.Invoice.IBAN, invoiceDate,
		result.Invoice.Amount.StringFixed(2), result.Invoice.Currency, result.Invoice.Department,
		string(result.FinalStatus), result.RiskScore, result.LedgerPosted, result.PostingError,
		checksJSON, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save processing result: %w", err)
	}
	return requireRowAffected(res, "save processing result", id)
}

func requireRowAffected(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}
