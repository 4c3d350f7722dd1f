package source

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/theirongolddev/ledgerscope/internal/model"
)

// WriteCSV writes txns as a ledger CSV with the canonical header.
func WriteCSV(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	rec := make([]string, len(Header))
	for _, t := range txns {
		rec[0] = strconv.FormatInt(t.ID, 10)
		rec[1] = strconv.FormatInt(t.UserID, 10)
		rec[2] = t.Timestamp.Format("2006-01-02 15:04:05")
		rec[3] = t.Amount.StringFixed(2)
		rec[4] = t.Category
		rec[5] = t.Merchant
		rec[6] = t.PaymentMethod
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
