package ingestion_engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"code.sajari.com/docconv"
	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var zipMagic = []byte("PK\x03\x04")

type convertFunc func(r io.Reader) (string, map[string]string, error)

// WordStrategy extracts raw text from DOCX and legacy DOC files via docconv.
type WordStrategy struct {
	convertDocx convertFunc
	convertDoc  convertFunc
}

func NewWordStrategy() *WordStrategy {
	return &WordStrategy{convertDocx: docconv.ConvertDocx, convertDoc: docconv.ConvertDoc}
}

func (s *WordStrategy) Name() string { return "word" }

func (s *WordStrategy) Extract(_ context.Context, buf []byte) (string, error) {
	convert, kind := s.convertDoc, "doc"
	if bytes.HasPrefix(buf, zipMagic) {
		convert, kind = s.convertDocx, "docx"
	}
	text, _, err := convert(bytes.NewReader(buf))
	if err != nil {
		return "", fmt.Errorf("docconv %s: %w", kind, err)
	}
	return strings.TrimSpace(text), nil
}

// SpreadsheetStrategy renders every sheet row by row. OOXML workbooks go
// through excelize, legacy BIFF workbooks (OLE container) through extrame/xls.
type SpreadsheetStrategy struct{}

var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0}

func (SpreadsheetStrategy) Name() string { return "spreadsheet" }

func (SpreadsheetStrategy) Extract(_ context.Context, buf []byte) (string, error) {
	if bytes.HasPrefix(buf, oleMagic) {
		return extractBIFF(buf)
	}
	f, err := excelize.OpenReader(bytes.NewReader(buf))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		writeSheet(&sb, sheet, rows)
	}
	return strings.TrimSpace(sb.String()), nil
}

func extractBIFF(buf []byte) (string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(buf), "utf-8")
	if err != nil {
		return "", fmt.Errorf("open xls workbook: %w", err)
	}
	if wb == nil {
		return "", fmt.Errorf("open xls workbook: no Workbook stream in OLE container")
	}

	var sb strings.Builder
	for i := 0; i < wb.NumSheets(); i++ {
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		rows := make([][]string, int(sheet.MaxRow)+1)
		for r := range rows {
			row := biffRow(sheet, r)
			if row == nil {
				continue
			}
			cells := make([]string, 0, row.LastCol()+1)
			for c := 0; c <= row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			rows[r] = trimTrailing(cells)
		}
		writeSheet(&sb, sheet.Name, rows)
	}
	return strings.TrimSpace(sb.String()), nil
}

// biffRow returns nil for rows the sheet never declared; xls.WorkSheet.Row
// panics on those.
func biffRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

func writeSheet(sb *strings.Builder, name string, rows [][]string) {
	fmt.Fprintf(sb, "Sheet: %s\n", name)
	for i, row := range rows {
		if !hasValue(row) {
			continue
		}
		fmt.Fprintf(sb, "Row %d: %s\n", i+1, strings.Join(row, " | "))
	}
	sb.WriteString("\n")
}

func trimTrailing(cells []string) []string {
	n := len(cells)
	for n > 0 && cells[n-1] == "" {
		n--
	}
	return cells[:n]
}

func hasValue(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return true
		}
	}
	return false
}
