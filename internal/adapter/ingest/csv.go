// Package ingest turns raw CSV statements into normalized transaction
// records. Descriptions are cleaned and references canonicalized here, so
// the matching stages only ever see normalized text.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gorecon/internal/domain"
)

// dateFormats are tried in order when parsing the date column.
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02-Jan-2006",
	time.RFC3339,
}

// header aliases recognized for each column, lowercased.
var columnAliases = map[string][]string{
	"id":          {"id", "record_id", "transaction_id"},
	"date":        {"date", "transaction_date", "posting_date", "value_date"},
	"amount":      {"amount", "value", "debit_credit"},
	"description": {"description", "desc", "memo", "narrative", "details"},
	"reference":   {"reference", "ref", "check_number", "cheque_number"},
}

// Reader parses one CSV statement for a single source.
type Reader struct {
	source string
}

// NewReader creates a reader tagging every record with the given origin,
// e.g. "ledger" or "bank".
func NewReader(source string) *Reader {
	return &Reader{source: source}
}

// LoadFile reads and parses a CSV file. Unparseable rows become
// rejections, not errors; only an unreadable file or header aborts.
func (rd *Reader) LoadFile(path string) ([]*domain.Record, []domain.Rejection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return rd.Read(f)
}

// Read parses CSV content. The first row must be a header naming at
// least the date, amount, and description columns.
func (rd *Reader) Read(r io.Reader) ([]*domain.Record, []domain.Rejection, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	cols, err := mapColumns(header)
	if err != nil {
		return nil, nil, err
	}

	var records []*domain.Record
	var rejections []domain.Rejection

	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++

		if err != nil {
			rejections = append(rejections, domain.Rejection{
				Record: &domain.Record{Source: rd.source},
				Reason: fmt.Sprintf("line %d: %v", line, err),
			})
			continue
		}

		rec, err := rd.parseRow(row, cols, line)
		if err != nil {
			rejections = append(rejections, domain.Rejection{
				Record: &domain.Record{Source: rd.source},
				Reason: err.Error(),
			})
			continue
		}

		records = append(records, rec)
	}

	return records, rejections, nil
}

type columns struct {
	id          int
	date        int
	amount      int
	description int
	reference   int
}

func mapColumns(header []string) (columns, error) {
	cols := columns{id: -1, date: -1, amount: -1, description: -1, reference: -1}

	find := func(key string) int {
		for i, h := range header {
			h = strings.ToLower(strings.TrimSpace(h))
			for _, alias := range columnAliases[key] {
				if h == alias {
					return i
				}
			}
		}
		return -1
	}

	cols.id = find("id")
	cols.date = find("date")
	cols.amount = find("amount")
	cols.description = find("description")
	cols.reference = find("reference")

	for _, required := range []struct {
		name string
		idx  int
	}{
		{"date", cols.date},
		{"amount", cols.amount},
		{"description", cols.description},
	} {
		if required.idx < 0 {
			return cols, fmt.Errorf("csv header missing %s column", required.name)
		}
	}

	return cols, nil
}

func (rd *Reader) parseRow(row []string, cols columns, line int) (*domain.Record, error) {
	get := func(idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	date, err := parseDate(get(cols.date))
	if err != nil {
		return nil, fmt.Errorf("line %d: %v", line, err)
	}

	amount, err := parseAmount(get(cols.amount))
	if err != nil {
		return nil, fmt.Errorf("line %d: %v", line, err)
	}

	id := get(cols.id)
	if id == "" {
		id = fmt.Sprintf("%s-%d", rd.source, line)
	}

	side := domain.SideCredit
	if amount.IsNegative() {
		side = domain.SideDebit
	}

	return &domain.Record{
		ID:          id,
		Source:      rd.source,
		Date:        date,
		Description: domain.NormalizeDescription(get(cols.description)),
		Reference:   domain.NormalizeReference(get(cols.reference)),
		Side:        side,
		Amount:      amount,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// parseAmount accepts currency symbols, thousands separators, and
// accounting-style parentheses for negatives.
func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	cleaner := strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", ",", "", " ", "")
	s = cleaner.Replace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unparseable amount %q", s)
	}

	if negative {
		d = d.Neg()
	}

	return d, nil
}
