// Package sample generates synthetic ledgers for trying out tdscan.
package sample

import (
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/tdscan/internal/model"
	"github.com/xuri/excelize/v2"
)

// profile describes the parties and amounts generated for one section
type profile struct {
	section     string
	debitLedger string
	voucherType string
	minAmount   int
	maxAmount   int
	parties     []string
}

var profiles = []profile{
	{"194J", "Professional Fees", "Payment", 10000, 500000,
		[]string{"M/s. ABC Consultants", "Professional Services Ltd", "Tech Solutions Inc", "Freelance Expert", "Legal Advisors LLP"}},
	{"194C", "Contractor Payments", "Payment", 20000, 800000,
		[]string{"M/s. XYZ Contractors", "Build-It Construction", "Alpha Builders", "Advertising Agency", "Catering Services"}},
	{"194H", "Brokerage", "Payment", 5000, 200000,
		[]string{"Commission Agents", "Brokerage Firm", "Agent Services", "Stock Broker", "Insurance Broker"}},
	{"194I", "Rent Expense", "Payment", 15000, 400000,
		[]string{"Rent - Office Space", "Rental Property", "Lease Holdings", "Commercial Rent", "Equipment Hire"}},
	{"194K", "Investment Income", "Receipt", 3000, 100000,
		[]string{"Mutual Fund Units", "UTI Dividend", "SIP Returns", "Equity Fund", "Debt Fund"}},
	{"194A", "Interest Income", "Receipt", 5000, 150000,
		[]string{"Bank Interest", "FD Interest", "Savings Account Interest"}},
	{"194D", "Commission Expense", "Payment", 10000, 300000,
		[]string{"Insurance Commission", "Policy Commission"}},
}

// FinancialYearStart is the first date generated ledgers cover
var FinancialYearStart = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

// Generate returns count synthetic ledger rows sorted by date. The same seed
// always yields the same ledger.
func Generate(count int, seed uint64) []model.RawTransaction {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	type dated struct {
		date time.Time
		tx   model.RawTransaction
	}
	rows := make([]dated, count)
	for i := range rows {
		p := profiles[rng.IntN(len(profiles))]
		date := FinancialYearStart.AddDate(0, 0, rng.IntN(366))
		amount := p.minAmount + rng.IntN(p.maxAmount-p.minAmount+1)

		rows[i] = dated{
			date: date,
			tx: model.RawTransaction{
				Date:          date.Format("2006-01-02"),
				DebitParty:    p.debitLedger,
				CreditParty:   p.parties[rng.IntN(len(p.parties))],
				VoucherType:   p.voucherType,
				VoucherNumber: fmt.Sprintf("V%d", 1000+i),
				Amount:        strconv.Itoa(amount),
			},
		}
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].date.Before(rows[j].date) })

	out := make([]model.RawTransaction, count)
	for i, r := range rows {
		out[i] = r.tx
		out[i].Row = i + 1
	}
	return out
}

// SectionCounts tallies generated rows per section, keyed by debit ledger
func SectionCounts(txs []model.RawTransaction) map[string]int {
	bySection := make(map[string]string, len(profiles))
	for _, p := range profiles {
		bySection[p.debitLedger] = p.section
	}
	counts := make(map[string]int)
	for _, tx := range txs {
		if s, ok := bySection[tx.DebitParty]; ok {
			counts[s]++
		}
	}
	return counts
}

var header = []string{
	model.ColumnDate, model.ColumnDebitLedger, model.ColumnCreditLedger,
	model.ColumnVoucherType, model.ColumnVoucherNumber, model.ColumnAmount,
}

func cells(tx model.RawTransaction) []string {
	return []string{tx.Date, tx.DebitParty, tx.CreditParty, tx.VoucherType, tx.VoucherNumber, tx.Amount}
}

// Write saves the ledger as CSV or XLSX, chosen by the file extension
func Write(path string, txs []model.RawTransaction) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return writeCSV(path, txs)
	case ".xlsx":
		return writeXLSX(path, txs)
	default:
		return fmt.Errorf("unsupported sample format %q (use .csv or .xlsx)", filepath.Ext(path))
	}
}

func writeCSV(path string, txs []model.RawTransaction) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, tx := range txs {
		if err := w.Write(cells(tx)); err != nil {
			return fmt.Errorf("write row %d: %w", tx.Row, err)
		}
	}
	w.Flush()
	return w.Error()
}

func writeXLSX(path string, txs []model.RawTransaction) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Sheet1"
	for col, h := range header {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for i, tx := range txs {
		row := cells(tx)
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			var value interface{} = v
			if col == len(row)-1 {
				if n, err := strconv.Atoi(v); err == nil {
					value = n
				}
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("write row %d: %w", tx.Row, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
