package ingest

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"sales-insight/internal/models"
)

func TestNormalizeHeaders(t *testing.T) {
	got := NormalizeHeaders([]string{" Order Date ", "AMOUNT", "", "amount", "Amount", "amount.1"})
	assert.Equal(t, []string{"order date", "amount", "unnamed: 2", "amount.1", "amount.2", "amount.1.1"}, got)
}

func TestDetectFormat(t *testing.T) {
	f, err := DetectFormat("Sales.CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = DetectFormat("q3.xlsx")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = DetectFormat("report.pdf")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestLoad_CSV(t *testing.T) {
	data := "\xef\xbb\xbfOrder_Date,Amount,Client,\n" +
		"2024-01-05,120.5,Acme,x\n" +
		",,,\n" +
		"2024-01-09,\"1,000\",\"Beta, Inc\"\n" +
		"\n" +
		"2024-02-01,80,Gamma,y,extra\n"

	table, err := Load(context.Background(), "sales.csv", strings.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, []string{"order_date", "amount", "client", "unnamed: 3"}, table.Columns)
	require.Equal(t, 3, table.Len())
	assert.Equal(t, models.Row{"order_date": "2024-01-05", "amount": "120.5", "client": "Acme", "unnamed: 3": "x"}, table.Rows[0])
	assert.Equal(t, "Beta, Inc", table.Rows[1]["client"])
	assert.Equal(t, "", table.Rows[1]["unnamed: 3"], "short rows are padded")
	assert.Equal(t, "y", table.Rows[2]["unnamed: 3"])
	assert.Len(t, table.Rows[2], 4, "cells past the header are dropped")
}

func TestLoad_CSVEmpty(t *testing.T) {
	_, err := Load(context.Background(), "empty.csv", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Load(context.Background(), "header.csv", strings.NewReader("date,amount\n,\n"))
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestLoad_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Load(ctx, "sales.csv", strings.NewReader("date,amount\n2024-01-01,5\n"))
	assert.True(t, errors.Is(err, context.Canceled))
}

func xlsxFixture(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	cells := map[string]any{
		"A1": "Invoice Date", "B1": "Item", "C1": "Qty", "D1": "Unit_Price",
		"A2": "2024-03-01", "B2": "Widget", "C2": 3, "D2": 2.5,
		"A3": "2024-03-15", "B3": "Gadget", "C3": 1, "D3": 10,
		"A5": "2024-04-02", "B5": "Widget", "C5": 2, "D5": 2.5,
	}
	for cell, v := range cells {
		require.NoError(t, f.SetCellValue(sheet, cell, v))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestLoad_XLSX(t *testing.T) {
	table, err := Load(context.Background(), "sales.xlsx", strings.NewReader(string(xlsxFixture(t))))
	require.NoError(t, err)

	assert.Equal(t, []string{"invoice date", "item", "qty", "unit_price"}, table.Columns)
	require.Equal(t, 3, table.Len(), "blank row 4 is dropped")
	assert.Equal(t, "Widget", table.Rows[0]["item"])
	assert.Equal(t, 3.0, models.Number(table.Rows[0]["qty"]))
	assert.Equal(t, 2.5, models.Number(table.Rows[0]["unit_price"]))
	assert.Equal(t, "2024-04-02", table.Rows[2]["invoice date"])
}

func TestLoad_XLSXDateCells(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	shortDate, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	require.NoError(t, err)
	custom := "[$-409]yyyy/mm/dd"
	customDate, err := f.NewStyle(&excelize.Style{CustomNumFmt: &custom})
	require.NoError(t, err)
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	require.NoError(t, err)

	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Order Date", "Amount"}))
	require.NoError(t, f.SetCellValue(sheet, "A2", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, f.SetCellValue(sheet, "A3", time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, f.SetCellStyle(sheet, "A3", "A3", shortDate))
	require.NoError(t, f.SetCellValue(sheet, "A4", 45444))
	require.NoError(t, f.SetCellStyle(sheet, "A4", "A4", customDate))
	require.NoError(t, f.SetCellValue(sheet, "A5", time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)))
	for i, v := range []float64{1200.5, 40, 75, 10} {
		cell, _ := excelize.CoordinatesToCellName(2, i+2)
		require.NoError(t, f.SetCellValue(sheet, cell, v))
	}
	require.NoError(t, f.SetCellStyle(sheet, "B2", "B5", money))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	table, err := Load(context.Background(), "sales.xlsx", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, 4, table.Len())

	want := []string{"2024-03-15", "2024-04-02", "2024-06-01", "2024-06-03 14:30:00"}
	for i, w := range want {
		assert.Equal(t, w, table.Rows[i]["order date"])
		_, ok := models.Date(table.Rows[i]["order date"])
		assert.True(t, ok, "row %d date must parse", i)
	}
	assert.Equal(t, "1200.5", table.Rows[0]["amount"], "number formats do not leak into values")
}

func TestLoad_XLSXCorrupt(t *testing.T) {
	_, err := Load(context.Background(), "broken.xlsx", strings.NewReader("not a zip"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("Date,Revenue\n2024-01-01,10\n"), 0o644))

	table, err := LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())

	_, err = LoadFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
