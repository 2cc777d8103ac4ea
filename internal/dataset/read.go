package dataset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ReadOptions controls how tabular input is decoded.
type ReadOptions struct {
	// Delimiter for delimited text. If 0, '\t' for .tsv names and ',' otherwise.
	Delimiter rune
	// Sheet selects an XLSX sheet by name (case-insensitive).
	Sheet string
	// SheetIndex is the 1-based XLSX sheet used when Sheet is empty.
	SheetIndex int
}

// Reader decodes one tabular format.
type Reader interface {
	CanRead(filename string) bool
	Read(r io.Reader, name string, opt ReadOptions) (*Dataset, error)
}

var registry []Reader

// Register adds a reader implementation. Later registrations are consulted first.
func Register(rd Reader) {
	registry = append([]Reader{rd}, registry...)
}

// Read selects a reader by filename and decodes r. Unknown extensions are read as delimited text.
func Read(r io.Reader, filename string, opt ReadOptions) (*Dataset, error) {
	name := filepath.Base(filename)
	for _, rd := range registry {
		if rd.CanRead(name) {
			return rd.Read(r, name, opt)
		}
	}
	return delimitedReader{}.Read(r, name, opt)
}

// ReadFile opens path and decodes it with Read.
func ReadFile(path string, opt ReadOptions) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return Read(f, path, opt)
}

// Supported reports whether some registered reader handles filename.
func Supported(filename string) bool {
	name := strings.ToLower(filepath.Base(filename))
	for _, rd := range registry {
		if rd.CanRead(name) {
			return true
		}
	}
	return false
}

func init() {
	Register(delimitedReader{})
	Register(xlsxReader{})
}
