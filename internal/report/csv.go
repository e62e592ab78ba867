// Package report writes the end-of-run CSV artifact: one row per created
// draft order.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Row is one created draft in the run report.
type Row struct {
	RecordID      string
	DraftOrderID  string
	PONumber      string
	Company       string
	BuyerEmail    string
	LineItemCount int
	CreatedAt     string
}

var header = []string{
	"mt_recordID",
	"shopify_draft_order_id",
	"poNumber",
	"company",
	"buyer_email",
	"line_item_count",
	"created_at",
}

// Write writes rows to a timestamped CSV under dir, creating dir if
// needed. No rows means no file: returns ("", nil).
func Write(dir string, rows []Row) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("mt_to_shopify_exports_%s.csv", time.Now().Format("20060102_150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.RecordID,
			r.DraftOrderID,
			r.PONumber,
			r.Company,
			r.BuyerEmail,
			strconv.Itoa(r.LineItemCount),
			r.CreatedAt,
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return path, nil
}
