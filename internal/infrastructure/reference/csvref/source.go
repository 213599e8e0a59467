// Package csvref loads the vendor, budget and contract reference tables
// from CSV files. A load failure never crashes a processing cycle: the
// source degrades to empty collections and lets every check report its
// missing-data path.
package csvref

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/finops-tools/finance-monitor/internal/core/domain"
)

const (
	vendorsFile   = "vendors.csv"
	budgetsFile   = "budgets.csv"
	contractsFile = "contracts.csv"
)

type Source struct {
	logger *slog.Logger
	dir    string
}

func NewSource(logger *slog.Logger, dir string) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		dir = "data"
	}
	return &Source{logger: logger, dir: dir}
}

// Load reads all three tables and builds the indexed snapshot. Any failure
// returns an empty snapshot together with ErrReferenceUnavailable so the
// caller can log the degradation.
func (s *Source) Load(_ context.Context) (domain.Snapshot, error) {
	vendors, err := s.loadVendors()
	if err != nil {
		return s.degrade(err)
	}
	budgets, err := s.loadBudgets()
	if err != nil {
		return s.degrade(err)
	}
	contracts, err := s.loadContracts()
	if err != nil {
		return s.degrade(err)
	}
	return domain.NewSnapshot(vendors, budgets, contracts), nil
}

func (s *Source) degrade(err error) (domain.Snapshot, error) {
	s.logger.Error("reference_data_unavailable", "dir", s.dir, "error", err)
	return domain.EmptySnapshot(), domain.WrapError(domain.ErrReferenceUnavailable, "load reference data", err)
}

func (s *Source) loadVendors() ([]domain.VendorRecord, error) {
	rows, err := s.readTable(vendorsFile, []string{"vendor_name", "iban", "risk_level"})
	if err != nil {
		return nil, err
	}
	vendors := make([]domain.VendorRecord, 0, len(rows))
	for _, row := range rows {
		risk := domain.RiskLevel(strings.TrimSpace(row["risk_level"]))
		if risk == "" {
			risk = domain.RiskMedium
		}
		vendors = append(vendors, domain.VendorRecord{
			Name:      row["vendor_name"],
			IBAN:      row["iban"],
			RiskLevel: risk,
		})
	}
	return vendors, nil
}

func (s *Source) loadBudgets() ([]domain.BudgetRecord, error) {
	rows, err := s.readTable(budgetsFile, []string{"department", "total_budget", "remaining_budget"})
	if err != nil {
		return nil, err
	}
	budgets := make([]domain.BudgetRecord, 0, len(rows))
	for _, row := range rows {
		total, err := decimal.NewFromString(strings.TrimSpace(row["total_budget"]))
		if err != nil {
			return nil, fmt.Errorf("parse total_budget %q: %w", row["total_budget"], err)
		}
		remaining, err := decimal.NewFromString(strings.TrimSpace(row["remaining_budget"]))
		if err != nil {
			return nil, fmt.Errorf("parse remaining_budget %q: %w", row["remaining_budget"], err)
		}
		budgets = append(budgets, domain.BudgetRecord{
			Department:      row["department"],
			TotalBudget:     total,
			RemainingBudget: remaining,
		})
	}
	return budgets, nil
}

func (s *Source) loadContracts() ([]domain.ContractRecord, error) {
	rows, err := s.readTable(contractsFile, []string{"vendor_name", "start_date", "end_date", "is_active"})
	if err != nil {
		return nil, err
	}
	contracts := make([]domain.ContractRecord, 0, len(rows))
	for _, row := range rows {
		active, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(row["is_active"])))
		if err != nil {
			return nil, fmt.Errorf("parse is_active %q: %w", row["is_active"], err)
		}
		contracts = append(contracts, domain.ContractRecord{
			VendorName: row["vendor_name"],
			StartDate:  strings.TrimSpace(row["start_date"]),
			EndDate:    strings.TrimSpace(row["end_date"]),
			IsActive:   active,
		})
	}
	return contracts, nil
}

// readTable reads a header-keyed CSV file into row maps, requiring the
// named columns to be present.
func (s *Source) readTable(name string, required []string) ([]map[string]string, error) {
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read %s: %w", name, errors.New("missing header row"))
	}

	header := records[0]
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("read %s: missing column %q", name, col)
		}
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(required))
		for _, col := range required {
			i := index[col]
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
