// Package ingest loads uploaded CSV and XLSX files into fully materialised
// tables with normalized headers.
package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"sales-insight/internal/models"
)

var (
	ErrUnsupported = errors.New("unsupported file type")
	ErrEmpty       = errors.New("dataset is empty")
)

// ctx is checked every checkEvery rows while reading.
const checkEvery = 4096

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat maps a file name to its format by extension.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupported, filepath.Ext(name))
	}
}

// Load reads the whole of r. The format is taken from name.
func Load(ctx context.Context, name string, r io.Reader) (*models.Table, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}

	var records [][]string
	switch format {
	case FormatCSV:
		records, err = readCSV(ctx, r)
	case FormatXLSX:
		records, err = readXLSX(ctx, r)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", format, err)
	}
	return build(ctx, records)
}

// LoadFile opens path and loads it.
func LoadFile(ctx context.Context, path string) (*models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	return Load(ctx, filepath.Base(path), f)
}

func readCSV(ctx context.Context, r io.Reader) ([][]string, error) {
	// excel exports often start with a byte order mark
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
		if len(records)%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	return records, nil
}

// readXLSX reads the first sheet with raw cell values. Numbers in date or
// datetime formatted cells are Excel serials and are rewritten as ISO dates,
// so the result does not depend on the workbook's display format.
func readXLSX(ctx context.Context, r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmpty
	}
	sheet := sheets[0]
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	styles := dateStyles{f: f, known: make(map[int]bool)}
	for i, row := range rows {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for j, cell := range row {
			serial, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				continue
			}
			name, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil || !styles.isDate(sheet, name) {
				continue
			}
			if ts, err := excelize.ExcelDateToTime(serial, false); err == nil {
				row[j] = formatSerial(ts)
			}
		}
	}
	return rows, nil
}

// dateStyles caches whether a style id carries a date number format.
type dateStyles struct {
	f     *excelize.File
	known map[int]bool
}

func (d dateStyles) isDate(sheet, cell string) bool {
	id, err := d.f.GetCellStyle(sheet, cell)
	if err != nil || id == 0 {
		return false
	}
	if v, ok := d.known[id]; ok {
		return v
	}
	st, err := d.f.GetStyle(id)
	v := err == nil && dateFormat(st)
	d.known[id] = v
	return v
}

// dateFormat reports whether st formats numbers as dates. Built-in ids
// 14-22 and 45-47 are the date and time formats; custom formats count when
// they carry a day or year token outside literals and brackets.
func dateFormat(st *excelize.Style) bool {
	if st.CustomNumFmt != nil {
		return dateTokens(*st.CustomNumFmt)
	}
	return (st.NumFmt >= 14 && st.NumFmt <= 22) || (st.NumFmt >= 45 && st.NumFmt <= 47)
}

func dateTokens(format string) bool {
	var quoted, bracket bool
	for _, c := range strings.ToLower(format) {
		switch {
		case c == '"':
			quoted = !quoted
		case quoted:
		case c == '[':
			bracket = true
		case c == ']':
			bracket = false
		case bracket:
		case c == 'd' || c == 'y':
			return true
		}
	}
	return false
}

func formatSerial(ts time.Time) string {
	ts = ts.Round(time.Second)
	if ts.Hour() == 0 && ts.Minute() == 0 && ts.Second() == 0 {
		return ts.Format("2006-01-02")
	}
	return ts.Format("2006-01-02 15:04:05")
}

// build turns raw records into a table. The first non-empty record is the
// header. Rows with every cell blank are dropped.
func build(ctx context.Context, records [][]string) (*models.Table, error) {
	start := 0
	for start < len(records) && blank(records[start]) {
		start++
	}
	if start == len(records) {
		return nil, ErrEmpty
	}
	columns := NormalizeHeaders(records[start])

	rows := make([]models.Row, 0, len(records)-start-1)
	for i, rec := range records[start+1:] {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if blank(rec) {
			continue
		}
		row := make(models.Row, len(columns))
		for j, col := range columns {
			if j < len(rec) {
				row[col] = strings.TrimSpace(rec[j])
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, ErrEmpty
	}
	return models.NewTable(columns, rows), nil
}

// NormalizeHeaders lower-cases and trims header cells. Blank headers become
// "unnamed: i" and repeated names get ".1", ".2" suffixes.
func NormalizeHeaders(raw []string) []string {
	out := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	for i, h := range raw {
		name := strings.ToLower(strings.TrimSpace(h))
		if name == "" {
			name = "unnamed: " + strconv.Itoa(i)
		}
		if used[name] {
			for n := 1; ; n++ {
				candidate := name + "." + strconv.Itoa(n)
				if !used[candidate] {
					name = candidate
					break
				}
			}
		}
		used[name] = true
		out[i] = name
	}
	return out
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
