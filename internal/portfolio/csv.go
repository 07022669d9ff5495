package portfolio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

// Columns is the CSV column order used for export
var Columns = []string{"symbol", "amount", "price", "total_value"}

// ReadCSV parses a portfolio CSV. The header must name at least the symbol and
// amount columns; price and total_value are optional and may be blank.
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range Columns[:2] {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	var rows []Row
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row, err := parseRecord(record, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func parseRecord(record []string, index map[string]int) (Row, error) {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	symbol := field("symbol")
	if symbol == "" {
		return Row{}, errors.New("empty symbol")
	}

	amount, err := decimal.NewFromString(field("amount"))
	if err != nil {
		return Row{}, fmt.Errorf("invalid amount for %s: %w", symbol, err)
	}

	row := NewRow(symbol, amount)
	if price, ok, err := optionalDecimal(field("price")); err != nil {
		return Row{}, fmt.Errorf("invalid price for %s: %w", symbol, err)
	} else if ok {
		row = row.WithPrice(price)
	}

	return row, nil
}

// optionalDecimal treats blank and NaN cells as absent
func optionalDecimal(s string) (decimal.Decimal, bool, error) {
	if s == "" || strings.EqualFold(s, "nan") {
		return decimal.Zero, false, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false, err
	}
	return d, true, nil
}

// WriteCSV writes rows with the Columns header; unpriced rows get blank cells
func WriteCSV(w io.Writer, rows []Row) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range rows {
		record := []string{r.Symbol, r.Amount.String(), nullString(r.Price), nullString(r.TotalValue)}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row %s: %w", r.Symbol, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
