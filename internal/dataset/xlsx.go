package dataset

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

type xlsxReader struct{}

func (xlsxReader) CanRead(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

func (xlsxReader) Read(r io.Reader, name string, opt ReadOptions) (*Dataset, error) {
	return ReadXLSX(r, name, opt.Sheet, opt.SheetIndex)
}

// ReadXLSX decodes one worksheet. The first non-empty row is the header.
// If sheetName is empty, sheetIndex (1-based, default 1) selects the sheet.
func ReadXLSX(r io.Reader, name string, sheetName string, sheetIndex int) (*Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ParseError{Name: name, Err: fmt.Errorf("open xlsx: %w", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	target := ""
	if sheetName != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, sheetName) {
				target = s
				break
			}
		}
		if target == "" {
			return nil, &ParseError{Name: name, Err: fmt.Errorf("sheet '%s' not found; available sheets: %s",
				sheetName, strings.Join(sheets, ", "))}
		}
	} else {
		idx := sheetIndex
		if idx <= 0 {
			idx = 1
		}
		if idx > len(sheets) {
			return nil, &ParseError{Name: name, Err: fmt.Errorf("sheet index %d out of range (workbook has %d sheets)", idx, len(sheets))}
		}
		target = sheets[idx-1]
	}

	raw, err := f.GetRows(target)
	if err != nil {
		return nil, &ParseError{Name: name, Err: fmt.Errorf("read sheet %s: %w", target, err)}
	}
	var header []string
	var body [][]string
	for _, row := range raw {
		if blankRow(row) {
			continue
		}
		if header == nil {
			header = row
			continue
		}
		body = append(body, row)
	}
	if header == nil {
		return nil, &ParseError{Name: name, Err: fmt.Errorf("sheet %s has no columns to parse", target)}
	}
	// Cells beyond the header become unnamed columns.
	width := len(header)
	for _, row := range body {
		if len(row) > width {
			width = len(row)
		}
	}
	if width > len(header) {
		ext := make([]string, width)
		copy(ext, header)
		header = ext
	}
	return New(name, normalizeHeader(header), body), nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
