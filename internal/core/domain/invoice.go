package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DocumentStatus string

const (
	StatusReceived   DocumentStatus = "received"
	StatusProcessing DocumentStatus = "processing"
	StatusProcessed  DocumentStatus = "processed"
	StatusFailed     DocumentStatus = "failed"
)

// Document is an uploaded source file awaiting or past compliance processing.
type Document struct {
	ID          string            `json:"id"`
	Filename    string            `json:"filename"`
	MimeType    string            `json:"mime_type"`
	StoragePath string            `json:"storage_path"`
	Status      DocumentStatus    `json:"status"`
	Error       string            `json:"error,omitempty"`
	Result      *ProcessingResult `json:"result,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Invoice is the structured record recovered from a document's raw text.
// It is built once by the field parser and never mutated afterwards.
type Invoice struct {
	InvoiceID  string          `json:"invoice_id"`
	VendorName string          `json:"vendor_name"`
	IBAN       string          `json:"iban"`
	Date       *time.Time      `json:"date,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Department string          `json:"department"`
	SourceRef  string          `json:"source_ref"`
}

// DateISO returns the invoice date as YYYY-MM-DD, or "" when no date parsed.
func (inv Invoice) DateISO() string {
	if inv.Date == nil {
		return ""
	}
	return inv.Date.Format("2006-01-02")
}

type CheckStatus string

const (
	CheckPass    CheckStatus = "PASS"
	CheckWarning CheckStatus = "WARNING"
	CheckFail    CheckStatus = "FAIL"
)

type CheckName string

const (
	CheckFinancialRouting CheckName = "Financial Routing"
	CheckVendorRisk       CheckName = "Vendor Risk"
	CheckBudget           CheckName = "Budget Check"
	CheckContract         CheckName = "Contract Check"
)

type CheckOutcome struct {
	CheckName   CheckName   `json:"check_name"`
	Status      CheckStatus `json:"status"`
	Message     string      `json:"message"`
	EvaluatedAt time.Time   `json:"evaluated_at"`
}

type FinalStatus string

const (
	StatusApproved FinalStatus = "APPROVED"
	StatusDraft    FinalStatus = "DRAFT"
	StatusRejected FinalStatus = "REJECTED"
)

// RiskScoreFor maps a disposition to its fixed risk score.
func RiskScoreFor(status FinalStatus) int {
	switch status {
	case StatusRejected:
		return 100
	case StatusDraft:
		return 50
	default:
		return 0
	}
}

// ProcessingResult is the immutable outcome of one compliance cycle for one
// invoice: the four check outcomes in evaluation order, the aggregated
// disposition, and the ledger posting outcome when the invoice was approved.
type ProcessingResult struct {
	Invoice      Invoice        `json:"invoice"`
	Checks       []CheckOutcome `json:"checks"`
	FinalStatus  FinalStatus    `json:"final_status"`
	RiskScore    int            `json:"risk_score"`
	LedgerPosted bool           `json:"ledger_posted"`
	PostingError string         `json:"posting_error,omitempty"`
}

// SourceDocument is one batch input: raw text already materialized by a
// text-extraction provider.
type SourceDocument struct {
	Ref  string `json:"ref"`
	Text string `json:"text"`
}

// BatchEntry reports one document of a batch: either a result or an error,
// never both. A failed entry does not abort the batch.
type BatchEntry struct {
	Ref    string            `json:"ref"`
	Result *ProcessingResult `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// CycleSummary aggregates one audit cycle the way the reporting surface
// consumes it: processed volume and the amount held back from auto-posting.
type CycleSummary struct {
	Documents       int             `json:"documents"`
	Approved        int             `json:"approved"`
	Drafts          int             `json:"drafts"`
	Rejected        int             `json:"rejected"`
	Errors          int             `json:"errors"`
	VolumeProcessed decimal.Decimal `json:"volume_processed"`
	CapitalSecured  decimal.Decimal `json:"capital_secured"`
	RiskAlerts      int             `json:"risk_alerts"`
}
