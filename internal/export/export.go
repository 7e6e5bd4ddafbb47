// internal/export/export.go
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/dex-sniper/internal/storage/models"
)

// Format is the output file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Options narrows which ledger entries end up in the file.
type Options struct {
	Format          Format
	StartTime       time.Time
	EndTime         time.Time
	PairFilter      string                // single pair address, empty for all
	DirectionFilter models.TradeDirection // BUY, SELL, empty for both
	OutputDir       string
}

// Exporter writes trade history snapshots to disk.
type Exporter struct {
	logger *zap.Logger
}

func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger.Named("export")}
}

// Export filters, sorts and writes the entries, returning the path of the
// created file. An empty result set is an error so callers never mistake a
// bad filter for a clean export.
func (e *Exporter) Export(entries []*models.TradeLedgerEntry, opts Options) (string, error) {
	filtered := filter(entries, opts)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no ledger entries match the export criteria")
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	outputPath := filepath.Join(opts.OutputDir, filename(opts))

	var err error
	switch opts.Format {
	case FormatCSV:
		err = writeCSV(filtered, outputPath)
	case FormatJSON:
		err = writeJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", opts.Format)
	}
	if err != nil {
		return "", err
	}

	e.logger.Info("trade history exported",
		zap.String("file", outputPath),
		zap.Int("entries", len(filtered)),
		zap.String("format", string(opts.Format)))
	return outputPath, nil
}

func filter(entries []*models.TradeLedgerEntry, opts Options) []*models.TradeLedgerEntry {
	var out []*models.TradeLedgerEntry
	for _, entry := range entries {
		if !opts.StartTime.IsZero() && entry.Timestamp.Before(opts.StartTime) {
			continue
		}
		if !opts.EndTime.IsZero() && entry.Timestamp.After(opts.EndTime) {
			continue
		}
		if opts.PairFilter != "" && entry.PairAddress != opts.PairFilter {
			continue
		}
		if opts.DirectionFilter != "" && entry.Direction != opts.DirectionFilter {
			continue
		}
		out = append(out, entry)
	}
	return out
}

func filename(opts Options) string {
	stamp := time.Now().Format("20060102_150405")
	prefix := "trades_all"
	if opts.DirectionFilter != "" {
		prefix = "trades_" + string(opts.DirectionFilter)
	}
	return fmt.Sprintf("%s_%s.%s", prefix, stamp, opts.Format)
}

var csvHeader = []string{"tx_id", "pair_address", "direction", "amount", "price", "timestamp"}

func csvRow(entry *models.TradeLedgerEntry) []string {
	return []string{
		entry.TxID,
		entry.PairAddress,
		string(entry.Direction),
		strconv.FormatFloat(entry.Amount, 'f', -1, 64),
		strconv.FormatFloat(entry.Price, 'f', -1, 64),
		entry.Timestamp.UTC().Format(time.RFC3339),
	}
}

func writeCSV(entries []*models.TradeLedgerEntry, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, entry := range entries {
		if err := writer.Write(csvRow(entry)); err != nil {
			return fmt.Errorf("write csv row %s: %w", entry.TxID, err)
		}
	}
	return writer.Error()
}

// jsonEntry mirrors TradeLedgerEntry with stable JSON field names, so the
// export format is decoupled from the database schema.
type jsonEntry struct {
	TxID        string    `json:"tx_id"`
	PairAddress string    `json:"pair_address"`
	Direction   string    `json:"direction"`
	Amount      float64   `json:"amount"`
	Price       float64   `json:"price"`
	Timestamp   time.Time `json:"timestamp"`
}

// Summary aggregates the exported entries.
type Summary struct {
	TotalEntries    int       `json:"total_entries"`
	BuyCount        int       `json:"buy_count"`
	SellCount       int       `json:"sell_count"`
	UniquePairs     int       `json:"unique_pairs"`
	TotalBuyVolume  float64   `json:"total_buy_volume"`
	TotalSellVolume float64   `json:"total_sell_volume"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
}

func summarize(entries []*models.TradeLedgerEntry) Summary {
	summary := Summary{TotalEntries: len(entries)}
	if len(entries) == 0 {
		return summary
	}

	summary.StartDate = entries[0].Timestamp
	summary.EndDate = entries[len(entries)-1].Timestamp

	pairs := make(map[string]struct{})
	for _, entry := range entries {
		pairs[entry.PairAddress] = struct{}{}
		switch entry.Direction {
		case models.DirectionBuy:
			summary.BuyCount++
			summary.TotalBuyVolume += entry.Amount
		case models.DirectionSell:
			summary.SellCount++
			summary.TotalSellVolume += entry.Amount
		}
	}
	summary.UniquePairs = len(pairs)
	return summary
}

func writeJSON(entries []*models.TradeLedgerEntry, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}
	defer file.Close()

	rows := make([]jsonEntry, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, jsonEntry{
			TxID:        entry.TxID,
			PairAddress: entry.PairAddress,
			Direction:   string(entry.Direction),
			Amount:      entry.Amount,
			Price:       entry.Price,
			Timestamp:   entry.Timestamp,
		})
	}

	payload := struct {
		ExportTime time.Time   `json:"export_time"`
		EntryCount int         `json:"entry_count"`
		Summary    Summary     `json:"summary"`
		Entries    []jsonEntry `json:"entries"`
	}{
		ExportTime: time.Now().UTC(),
		EntryCount: len(rows),
		Summary:    summarize(entries),
		Entries:    rows,
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil {
		return fmt.Errorf("encode json export: %w", err)
	}
	return nil
}
