package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

type VendorRecord struct {
	Name      string    `json:"vendor_name"`
	IBAN      string    `json:"iban"`
	RiskLevel RiskLevel `json:"risk_level"`
}

type BudgetRecord struct {
	Department      string          `json:"department"`
	TotalBudget     decimal.Decimal `json:"total_budget"`
	RemainingBudget decimal.Decimal `json:"remaining_budget"`
}

type ContractRecord struct {
	VendorName string `json:"vendor_name"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	IsActive   bool   `json:"is_active"`
}

// NormalizeKey is the single normalization applied at every reference
// comparison site: trimmed, lowercased.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeIBAN strips all internal whitespace.
func NormalizeIBAN(iban string) string {
	return strings.ReplaceAll(strings.TrimSpace(iban), " ", "")
}

// Snapshot is the read-only reference view for one processing cycle.
// Lookup indexes are built once at construction; checks never scan.
type Snapshot struct {
	Vendors   []VendorRecord
	Budgets   []BudgetRecord
	Contracts []ContractRecord

	ibans             map[string]struct{}
	vendorsByName     map[string]VendorRecord
	budgetsByDept     map[string]BudgetRecord
	contractsByVendor map[string][]ContractRecord
}

func NewSnapshot(vendors []VendorRecord, budgets []BudgetRecord, contracts []ContractRecord) Snapshot {
	snap := Snapshot{
		Vendors:   vendors,
		Budgets:   budgets,
		Contracts: contracts,

		ibans:             make(map[string]struct{}, len(vendors)),
		vendorsByName:     make(map[string]VendorRecord, len(vendors)),
		budgetsByDept:     make(map[string]BudgetRecord, len(budgets)),
		contractsByVendor: make(map[string][]ContractRecord, len(contracts)),
	}
	for _, v := range vendors {
		snap.ibans[NormalizeIBAN(v.IBAN)] = struct{}{}
		key := NormalizeKey(v.Name)
		if _, exists := snap.vendorsByName[key]; !exists {
			snap.vendorsByName[key] = v
		}
	}
	for _, b := range budgets {
		key := NormalizeKey(b.Department)
		if _, exists := snap.budgetsByDept[key]; !exists {
			snap.budgetsByDept[key] = b
		}
	}
	for _, c := range contracts {
		key := NormalizeKey(c.VendorName)
		snap.contractsByVendor[key] = append(snap.contractsByVendor[key], c)
	}
	return snap
}

// EmptySnapshot is the degraded view used when reference data cannot be
// loaded; every check reports its missing-data path against it.
func EmptySnapshot() Snapshot {
	return NewSnapshot(nil, nil, nil)
}

func (s Snapshot) AuthorizedIBAN(iban string) bool {
	_, ok := s.ibans[NormalizeIBAN(iban)]
	return ok
}

func (s Snapshot) VendorByName(name string) (VendorRecord, bool) {
	v, ok := s.vendorsByName[NormalizeKey(name)]
	return v, ok
}

func (s Snapshot) BudgetForDepartment(department string) (BudgetRecord, bool) {
	b, ok := s.budgetsByDept[NormalizeKey(department)]
	return b, ok
}

func (s Snapshot) ContractsForVendor(name string) []ContractRecord {
	return s.contractsByVendor[NormalizeKey(name)]
}
