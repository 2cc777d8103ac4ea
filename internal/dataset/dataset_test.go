package dataset

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestReadCSVPadsShortRowsAndSkipsBlankLines(t *testing.T) {
	in := "a,b,c\n1,2,3\n\n4,5\n"
	ds, err := ReadCSV(strings.NewReader(in), "short.csv", ',')
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if ds.Len() != 2 || ds.Width() != 3 {
		t.Fatalf("unexpected shape %dx%d", ds.Len(), ds.Width())
	}
	if got := ds.Rows[1]; got[0] != "4" || got[1] != "5" || got[2] != "" {
		t.Fatalf("expected padded row, got %q", got)
	}
}

func TestReadCSVRejectsWideRows(t *testing.T) {
	in := "a,b\n1,2\n3,4,5\n"
	_, err := ReadCSV(strings.NewReader(in), "wide.csv", ',')
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if pe.Line != 3 {
		t.Fatalf("expected line 3, got %d", pe.Line)
	}
	if !strings.Contains(pe.Error(), "expected 2 fields, saw 3") {
		t.Fatalf("unexpected message: %s", pe.Error())
	}
}

func TestReadCSVBinaryIsParseError(t *testing.T) {
	bin := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d, 0xff, 0xfe}
	_, err := ReadCSV(bytes.NewReader(bin), "image.csv", ',')
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError for binary input, got %v", err)
	}
}

func TestReadCSVEmptyInputIsParseError(t *testing.T) {
	for name, in := range map[string][]byte{"empty.csv": nil, "bom.csv": utf8BOM} {
		_, err := ReadCSV(bytes.NewReader(in), name, ',')
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("%s: expected ParseError, got %v", name, err)
		}
		if !strings.Contains(pe.Error(), "no columns to parse from input") {
			t.Fatalf("%s: unexpected message %q", name, pe.Error())
		}
	}
}

func TestReadCSVKeepsLeadingSpaces(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader("name,code\n  Ada, 007\n"), "space.csv", ',')
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if got := ds.Rows[0]; got[0] != "  Ada" || got[1] != " 007" {
		t.Fatalf("leading spaces were trimmed: %q", got)
	}
	var buf bytes.Buffer
	if err := ds.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	back, err := ReadCSV(&buf, "space.csv", ',')
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if got := back.Rows[0]; got[0] != "  Ada" || got[1] != " 007" {
		t.Fatalf("export lost leading spaces: %q", got)
	}
}

func TestReadCSVBadQuote(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b\n\"x,1\n"), "quote.csv", ',')
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestNormalizeHeader(t *testing.T) {
	got := normalizeHeader([]string{"a", "a", "", "a.1", "a"})
	want := []string{"a", "a.1", "Unnamed: 2", "a.1.1", "a.2"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("normalizeHeader = %q, want %q", got, want)
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	orig := New("rt", []string{"name", "note", "value"}, [][]string{
		{"alpha", "has, comma", "1.5"},
		{"beta", "quote \"inside\"", ""},
		{"gamma", " leading space", "3"},
		{"delta", "multi\nline", "-2e3"},
	})
	var buf bytes.Buffer
	if err := orig.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if strings.HasPrefix(buf.String(), ",") {
		t.Fatalf("unexpected index column: %q", buf.String())
	}
	back, err := ReadCSV(&buf, "rt", ',')
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	back.Name = orig.Name
	if !orig.Equal(back) {
		t.Fatalf("round trip mismatch:\n%v\n%v", orig.Rows, back.Rows)
	}
}

func TestReadDispatchesTSVByExtension(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "metrics.tsv")
	if err := os.WriteFile(p, []byte("x\ty\n1\t2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ds, err := ReadFile(p, ReadOptions{})
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if ds.Name != "metrics.tsv" || ds.Width() != 2 || ds.Rows[0][1] != "2" {
		t.Fatalf("unexpected dataset: %+v", ds)
	}
	if !Supported("x.xlsx") || !Supported("X.CSV") || Supported("doc.pdf") {
		t.Fatalf("unexpected Supported results")
	}
}

func writeWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetRow("Sheet1", "A1", &[]interface{}{"ignored"}); err != nil {
		t.Fatalf("set row: %v", err)
	}
	if _, err := f.NewSheet("Data"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	rows := [][]interface{}{
		{"Group", "Score"},
		{"A", 10.5},
		{"B", 9},
		{"A", 11, "stray"},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Data", cell, &r); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write xlsx: %v", err)
	}
	return buf.Bytes()
}

func TestReadXLSXSheetSelection(t *testing.T) {
	data := writeWorkbook(t)

	ds, err := Read(bytes.NewReader(data), "book.xlsx", ReadOptions{Sheet: "data"})
	if err != nil {
		t.Fatalf("Read xlsx: %v", err)
	}
	if ds.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", ds.Len())
	}
	if strings.Join(ds.Columns, ",") != "Group,Score,Unnamed: 2" {
		t.Fatalf("unexpected columns: %q", ds.Columns)
	}
	if ds.Rows[0][1] != "10.5" || ds.Rows[1][2] != "" {
		t.Fatalf("unexpected cells: %q", ds.Rows)
	}

	byIndex, err := ReadXLSX(bytes.NewReader(data), "book.xlsx", "", 2)
	if err != nil {
		t.Fatalf("ReadXLSX by index: %v", err)
	}
	if !ds.Equal(byIndex) {
		t.Fatalf("sheet index 2 should match sheet name Data")
	}

	_, err = ReadXLSX(bytes.NewReader(data), "book.xlsx", "Missing", 0)
	var pe *ParseError
	if !errors.As(err, &pe) || !strings.Contains(pe.Error(), "available sheets: Sheet1, Data") {
		t.Fatalf("expected missing sheet error, got %v", err)
	}
}

func TestReadXLSXRejectsNonZip(t *testing.T) {
	_, err := ReadXLSX(strings.NewReader("a,b\n1,2\n"), "fake.xlsx", "", 1)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestSubsetHeadClone(t *testing.T) {
	ds := New("d", []string{"v"}, [][]string{{"0"}, {"1"}, {"2"}, {"3"}})
	if h := ds.Head(10); h.Len() != 4 {
		t.Fatalf("head beyond length should cap, got %d", h.Len())
	}
	sub := ds.Subset([]int{3, 1})
	if sub.Rows[0][0] != "3" || sub.Rows[1][0] != "1" {
		t.Fatalf("unexpected subset: %v", sub.Rows)
	}
	c := ds.Clone()
	c.Rows[0][0] = "changed"
	if ds.Rows[0][0] != "0" {
		t.Fatalf("clone must not share cells")
	}
	if idx, ok := ds.ColumnIndex("v"); !ok || idx != 0 {
		t.Fatalf("ColumnIndex failed")
	}
}
