package ingest

import (
	"fmt"
	"strings"

	"github.com/ppiankov/tdscan/internal/model"
)

// headerAliases maps normalised header text to canonical column names
var headerAliases = map[string]string{
	"date":             model.ColumnDate,
	"voucher date":     model.ColumnDate,
	"transaction date": model.ColumnDate,
	"txn date":         model.ColumnDate,

	"debit ledger": model.ColumnDebitLedger,
	"debit":        model.ColumnDebitLedger,
	"debit party":  model.ColumnDebitLedger,
	"dr ledger":    model.ColumnDebitLedger,

	"credit ledger": model.ColumnCreditLedger,
	"credit":        model.ColumnCreditLedger,
	"credit party":  model.ColumnCreditLedger,
	"cr ledger":     model.ColumnCreditLedger,

	"voucher type": model.ColumnVoucherType,
	"vch type":     model.ColumnVoucherType,

	"voucher no.":    model.ColumnVoucherNumber,
	"voucher no":     model.ColumnVoucherNumber,
	"voucher number": model.ColumnVoucherNumber,
	"vch no.":        model.ColumnVoucherNumber,
	"vch no":         model.ColumnVoucherNumber,

	"amount": model.ColumnAmount,
	"amt":    model.ColumnAmount,
	"value":  model.ColumnAmount,
}

// canonicalColumn resolves a header cell to a canonical column name
func canonicalColumn(header string) (string, bool) {
	h := strings.TrimPrefix(header, "\ufeff")
	h = strings.ToLower(strings.Join(strings.Fields(h), " "))
	col, ok := headerAliases[h]
	return col, ok
}

// columnIndex maps canonical columns to positions. The first occurrence of a
// column wins.
func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int)
	for i, cell := range header {
		col, ok := canonicalColumn(cell)
		if !ok {
			continue
		}
		if _, seen := index[col]; !seen {
			index[col] = i
		}
	}

	var missing []string
	for _, col := range model.RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return index, nil
}

// tableRecords converts a header plus data rows into raw transactions.
// Fully blank rows are skipped; rows are numbered from 1 in data order.
func tableRecords(header []string, rows [][]string) ([]model.RawTransaction, error) {
	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	cell := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	records := make([]model.RawTransaction, 0, len(rows))
	n := 0
	for _, row := range rows {
		if blank(row) {
			continue
		}
		n++
		records = append(records, model.RawTransaction{
			Row:           n,
			Date:          cell(row, model.ColumnDate),
			DebitParty:    cell(row, model.ColumnDebitLedger),
			CreditParty:   cell(row, model.ColumnCreditLedger),
			VoucherType:   cell(row, model.ColumnVoucherType),
			VoucherNumber: cell(row, model.ColumnVoucherNumber),
			Amount:        cell(row, model.ColumnAmount),
		})
	}
	return records, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
