// Package export writes merged collections as CSV or XLSX spreadsheets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"elevadorpro/pkg/domain"
)

// Format is a supported spreadsheet format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" (default when empty) and "xlsx".
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename builds an attachment name such as operations-20240102T150405Z.csv.
func Filename(c domain.Collection, f Format, at time.Time) string {
	return fmt.Sprintf("%s-%s.%s", c, at.UTC().Format("20060102T150405Z"), f)
}

// Columns orders the union of record fields: id, the collection's required
// fields, then the remaining fields alphabetically. Hidden fields are left
// out.
func Columns(c domain.Collection, recs []domain.Record, hidden ...string) []string {
	skip := make(map[string]bool, len(hidden))
	for _, h := range hidden {
		skip[h] = true
	}
	seen := make(map[string]bool)
	var cols []string
	add := func(name string) {
		if !seen[name] && !skip[name] {
			seen[name] = true
			cols = append(cols, name)
		}
	}
	add(domain.FieldID)
	for _, f := range domain.RequiredFields(c) {
		add(f)
	}
	var rest []string
	for _, rec := range recs {
		for k := range rec {
			if !seen[k] && !skip[k] {
				rest = append(rest, k)
				seen[k] = true
			}
		}
	}
	sort.Strings(rest)
	return append(cols, rest...)
}

// Write encodes recs in format f.
func Write(w io.Writer, f Format, c domain.Collection, recs []domain.Record, hidden ...string) error {
	cols := Columns(c, recs, hidden...)
	if f == FormatXLSX {
		return writeXLSX(w, c, cols, recs)
	}
	return writeCSV(w, cols, recs)
}

func writeCSV(w io.Writer, cols []string, recs []domain.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	row := make([]string, len(cols))
	for _, rec := range recs {
		for i, col := range cols {
			row[i] = cellText(rec[col])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, c domain.Collection, cols []string, recs []domain.Record) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := string(c)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	header := make([]any, len(cols))
	for i, col := range cols {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for r, rec := range recs {
		row := make([]any, len(cols))
		for i, col := range cols {
			row[i] = cellValue(rec[col])
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", r+2, err)
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}
	_, err := f.WriteTo(w)
	return err
}

// cellValue keeps numbers and booleans typed for spreadsheet cells.
func cellValue(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case float64, bool, string:
		return t
	default:
		return cellText(v)
	}
}

func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
