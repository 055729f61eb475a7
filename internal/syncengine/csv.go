package syncengine

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/ledgersync/internal/encoding"
)

var ErrEmptyCSV = errors.New("csv has no transactions")

type csvRow struct {
	Date        string `csv:"date"`
	Amount      string `csv:"amount"`
	Description string `csv:"description"`
	Reason      string `csv:"reason,omitempty"`
}

// CSVImport is the outcome of ParseCSV.
type CSVImport struct {
	Transactions []SyncTransaction
	Charset      encoding.Charset
	Delimiter    rune
	// Skipped counts rows whose amount could not be parsed.
	Skipped int
}

// ParseCSV reads one account's transactions from a CSV export with a date, amount, description and
// optional reason column. Any encoding is accepted, and the delimiter is ',' or ';' as found on the
// header line. With ';' a decimal comma is accepted in amounts.
func ParseCSV(r io.Reader) (*CSVImport, error) {
	utf8r, charset, err := encoding.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detecting encoding: %w", err)
	}

	br := bufio.NewReader(utf8r)
	delim := sniffDelimiter(br)

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	var rows []*csvRow
	if err := gocsv.UnmarshalCSV(cr, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, ErrEmptyCSV
		}

		return nil, fmt.Errorf("reading csv: %w", err)
	}

	out := &CSVImport{Charset: charset, Delimiter: delim, Transactions: make([]SyncTransaction, 0, len(rows))}

	for _, row := range rows {
		if strings.TrimSpace(row.Date) == "" && strings.TrimSpace(row.Description) == "" {
			continue
		}

		amount, err := parseAmount(row.Amount, delim)
		if err != nil {
			out.Skipped++
			continue
		}

		out.Transactions = append(out.Transactions, SyncTransaction{
			Date:        strings.TrimSpace(row.Date),
			Amount:      amount,
			Description: strings.TrimSpace(row.Description),
			Reason:      strings.TrimSpace(row.Reason),
		})
	}

	if len(out.Transactions) == 0 && out.Skipped == 0 {
		return nil, ErrEmptyCSV
	}

	return out, nil
}

func sniffDelimiter(br *bufio.Reader) rune {
	line, _ := br.Peek(br.Size())
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}

	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}

	return ','
}

func parseAmount(s string, delim rune) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if delim == ';' {
		s = strings.ReplaceAll(s, ",", ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing amount %q: %w", s, err)
	}

	return d, nil
}
