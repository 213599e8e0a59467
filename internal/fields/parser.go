// Package fields recovers structured invoice records from noisy document
// text. Every field is extracted by an ordered chain of heuristics; the
// first rule that succeeds wins and failures degrade to documented defaults
// instead of errors. Only blank input is fatal.
package fields

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finops-tools/finance-monitor/internal/core/domain"
)

const (
	UnknownVendor     = "Unknown Vendor"
	UnknownIBAN       = "UNKNOWN"
	UnknownInvoiceID  = "UNKNOWN"
	UnknownDepartment = "Unknown"
)

type Parser struct {
	logger   *slog.Logger
	currency string
}

func NewParser(logger *slog.Logger, currency string) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	if currency == "" {
		currency = "EUR"
	}
	return &Parser{logger: logger, currency: currency}
}

// Parse builds an Invoice from raw text. It fails only when the text is
// blank or whitespace; every per-field miss falls back to its default and
// is logged at warn level.
func (p *Parser) Parse(rawText, sourceRef string) (domain.Invoice, error) {
	if strings.TrimSpace(rawText) == "" {
		p.logger.Warn("empty_content", "source_ref", sourceRef)
		return domain.Invoice{}, domain.WrapError(
			domain.ErrEmptyContent,
			"parse invoice fields",
			errors.New("text extraction returned empty result"),
		)
	}

	vendor := extractVendor(rawText)
	iban := extractIBAN(rawText)
	invoiceID := extractInvoiceID(rawText)
	date := extractDate(rawText)
	amount, amountOK := extractAmount(rawText)

	department := extractDepartment(rawText)

	if iban == UnknownIBAN {
		p.logger.Warn("field_default", "field", "iban", "source_ref", sourceRef)
	}
	if invoiceID == UnknownInvoiceID {
		p.logger.Warn("field_default", "field", "invoice_id", "source_ref", sourceRef)
	}
	if date == nil {
		p.logger.Warn("field_default", "field", "date", "source_ref", sourceRef)
	}
	if !amountOK {
		p.logger.Warn("field_default", "field", "amount", "source_ref", sourceRef)
	}

	return domain.Invoice{
		InvoiceID:  invoiceID,
		VendorName: vendor,
		IBAN:       iban,
		Date:       date,
		Amount:     amount,
		Currency:   p.currency,
		Department: department,
		SourceRef:  sourceRef,
	}, nil
}

// parseDateStrict accepts only valid ISO calendar dates.
func parseDateStrict(token string) (*time.Time, bool) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(token))
	if err != nil {
		return nil, false
	}
	return &t, true
}

// parseAmountToken normalizes a locale-ambiguous numeral token and parses
// it. Both separators present: the later-occurring one is the decimal mark.
// Comma only: two trailing digits mean cents, anything else is a thousands
// separator.
func parseAmountToken(token string) (decimal.Decimal, bool) {
	raw := strings.TrimSpace(token)
	hasComma := strings.Contains(raw, ",")
	hasDot := strings.Contains(raw, ".")

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(raw, ",") > strings.LastIndex(raw, ".") {
			raw = strings.ReplaceAll(raw, ".", "")
			raw = strings.ReplaceAll(raw, ",", ".")
		} else {
			raw = strings.ReplaceAll(raw, ",", "")
		}
	case hasComma:
		parts := strings.Split(raw, ",")
		if len(parts[len(parts)-1]) == 2 {
			raw = strings.ReplaceAll(raw, ",", ".")
		} else {
			raw = strings.ReplaceAll(raw, ",", "")
		}
	}

	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}
