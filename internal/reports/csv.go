package reports

import (
	"encoding/csv"
	"io"

	"github.com/shopspring/decimal"
)

// WriteProductCSV serialises the product overview to CSV. Amounts are plain
// two-decimal numbers.
func WriteProductCSV(w io.Writer, rows []ProductRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(productHeaders); err != nil {
		return err
	}
	for _, r := range rows {
		if err := writer.Write(productRecord(r, plainAmount)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func plainAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
