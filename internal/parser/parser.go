package parser

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/corrloom-cli/internal/analysis"
)

// Options controls how a source file is turned into a raw table.
type Options struct {
	// Delimiter for CSV. If 0, it is sniffed from the file name and header.
	Delimiter rune
	// SheetName selects an XLSX sheet by name (case-insensitive).
	SheetName string
	// SheetIndex selects an XLSX sheet by 1-based position when SheetName is empty.
	SheetIndex int
}

// Loader reads one tabular file format.
type Loader interface {
	CanLoad(filename string) bool
	Load(path string, opt Options) (*analysis.RawTable, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

// LoadFile selects a loader based on the file name and returns the raw table.
func LoadFile(path string, opt Options) (*analysis.RawTable, error) {
	for _, l := range registry {
		if l.CanLoad(path) {
			return l.Load(path, opt)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
}

// Supported reports whether any registered loader accepts the file name.
func Supported(path string) bool {
	for _, l := range registry {
		if l.CanLoad(path) {
			return true
		}
	}
	return false
}

func init() {
	Register(csvLoader{})
	Register(xlsxLoader{})
}

// ErrUnsupported indicates a format is not supported.
var ErrUnsupported = errors.New("unsupported table format")
