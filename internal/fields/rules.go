package fields

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// fieldRule pairs a compiled matcher with a post-processing extractor.
// Chains run in priority order; the first rule whose extractor accepts the
// match wins.
type fieldRule struct {
	matcher *regexp.Regexp
	extract func(match []string) (string, bool)
}

func applyRules(rules []fieldRule, text string) (string, bool) {
	for _, r := range rules {
		m := r.matcher.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if value, ok := r.extract(m); ok {
			return value, true
		}
	}
	return "", false
}

func trimmedCapture(match []string) (string, bool) {
	value := strings.TrimSpace(match[1])
	return value, value != ""
}

var (
	vendorLabelRe = regexp.MustCompile(`(?i)(?:Vendor|FROM|Issuer):\s*(.+)`)

	ibanLabelRe = regexp.MustCompile(`(?i)(?:IBAN|Account|PAY TO)[:,]?\s*([A-Z]{2}[0-9A-Z\s]{13,32})`)
	ibanCutRe   = regexp.MustCompile(`\n|\s{2,}`)

	invoiceIDLabelRe    = regexp.MustCompile(`(?i)(?:Invoice #|REF|Invoice Number|ID):\s*([A-Z0-9\-/]+)`)
	invoiceIDFallbackRe = regexp.MustCompile(`INV-\d{4}-\d+`)

	dateLabelRe = regexp.MustCompile(`(?i)(?:Date|Issued):\s*(\d{4}-\d{2}-\d{2})`)
	dateBareRe  = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

	amountLabelRe = regexp.MustCompile(`(?i)(?:Total Amount|BALANCE DUE|TOTAL|Grand Total)[:\s]*(?:EUR|€)?\s*([\d.,]+)`)

	departmentLabelRe = regexp.MustCompile(`(?i)(?:Department|DEPT|Cost Center):\s*(\w+)`)
)

var vendorRules = []fieldRule{
	{matcher: vendorLabelRe, extract: trimmedCapture},
}

// vendor header tokens skipped by the first-line fallback.
var genericHeaders = map[string]struct{}{
	"INVOICE": {},
	"BILL":    {},
	"RECEIPT": {},
}

func extractVendor(text string) string {
	if vendor, ok := applyRules(vendorRules, text); ok {
		return vendor
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if _, generic := genericHeaders[strings.ToUpper(line)]; generic {
			continue
		}
		return line
	}
	return UnknownVendor
}

var ibanRules = []fieldRule{
	{matcher: ibanLabelRe, extract: func(match []string) (string, bool) {
		raw := strings.TrimSpace(match[1])
		// The character class spans whitespace, so a greedy match can run
		// into the next line or column; truncate there.
		clean := ibanCutRe.Split(raw, 2)[0]
		clean = strings.ReplaceAll(clean, " ", "")
		return strings.TrimSpace(clean), clean != ""
	}},
}

func extractIBAN(text string) string {
	if iban, ok := applyRules(ibanRules, text); ok {
		return iban
	}
	return UnknownIBAN
}

var invoiceIDRules = []fieldRule{
	{matcher: invoiceIDLabelRe, extract: func(match []string) (string, bool) {
		value := strings.TrimSpace(strings.SplitN(match[1], "/", 2)[0])
		return value, value != ""
	}},
	{matcher: invoiceIDFallbackRe, extract: func(match []string) (string, bool) {
		return match[0], true
	}},
}

func extractInvoiceID(text string) string {
	if id, ok := applyRules(invoiceIDRules, text); ok {
		return id
	}
	return UnknownInvoiceID
}

var dateRules = []fieldRule{
	{matcher: dateLabelRe, extract: func(match []string) (string, bool) {
		if _, ok := parseDateStrict(match[1]); !ok {
			return "", false
		}
		return strings.TrimSpace(match[1]), true
	}},
	{matcher: dateBareRe, extract: func(match []string) (string, bool) {
		if _, ok := parseDateStrict(match[0]); !ok {
			return "", false
		}
		return strings.TrimSpace(match[0]), true
	}},
}

func extractDate(text string) *time.Time {
	token, ok := applyRules(dateRules, text)
	if !ok {
		return nil
	}
	date, _ := parseDateStrict(token)
	return date
}

var amountRules = []fieldRule{
	{matcher: amountLabelRe, extract: trimmedCapture},
}

func extractAmount(text string) (decimal.Decimal, bool) {
	token, ok := applyRules(amountRules, text)
	if !ok {
		return decimal.Zero, false
	}
	return parseAmountToken(token)
}

var departmentRules = []fieldRule{
	{matcher: departmentLabelRe, extract: trimmedCapture},
}

func extractDepartment(text string) string {
	if dept, ok := applyRules(departmentRules, text); ok {
		return dept
	}
	return UnknownDepartment
}
