package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Sentinel causes carried by DatasetError.
var (
	ErrNotFound    = errors.New("file not found")
	ErrUnsupported = errors.New("unsupported file type")
	ErrParse       = errors.New("failed to parse file")
)

// DatasetError reports a load failure. Err holds the original cause.
type DatasetError struct {
	Kind error
	Path string
	Err  error
}

func (e *DatasetError) Error() string {
	switch e.Kind {
	case ErrNotFound:
		return fmt.Sprintf("file not found: %s", e.Path)
	case ErrUnsupported:
		return fmt.Sprintf("unsupported file type: %s. Supported types: %s", extOf(e.Path), strings.Join(SupportedExtensions(), ", "))
	default:
		return fmt.Sprintf("failed to parse file: %v", e.Err)
	}
}

func (e *DatasetError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Options tunes loading.
type Options struct {
	// Sheet selects a spreadsheet sheet by name; empty means the first sheet.
	Sheet string
}

// Format decodes one file format into columns.
type Format interface {
	Extensions() []string
	Decode(data []byte, opt Options) ([]Column, error)
}

var registry = map[string]Format{}

// Register adds a format for each of its extensions.
func Register(f Format) {
	for _, ext := range f.Extensions() {
		registry[strings.ToLower(ext)] = f
	}
}

func init() {
	Register(csvFormat{})
	Register(xlsxFormat{})
	Register(xlsFormat{})
	Register(jsonFormat{})
}

// SupportedExtensions lists the registered extensions in sorted order.
func SupportedExtensions() []string {
	out := make([]string, 0, len(registry))
	for ext := range registry {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Supported reports whether name has a loadable extension.
func Supported(name string) bool {
	_, ok := registry[extOf(name)]
	return ok
}

// Load reads a dataset from disk.
func Load(path string) (*Dataset, error) {
	return LoadWithOptions(path, Options{})
}

// LoadWithOptions reads a dataset from disk using opt.
func LoadWithOptions(path string, opt Options) (*Dataset, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &DatasetError{Kind: ErrNotFound, Path: path, Err: err}
		}
		return nil, &DatasetError{Kind: ErrParse, Path: path, Err: err}
	}
	f, ok := registry[extOf(path)]
	if !ok {
		return nil, &DatasetError{Kind: ErrUnsupported, Path: path}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DatasetError{Kind: ErrParse, Path: path, Err: err}
	}
	return decode(f, filepath.Base(path), path, data, opt)
}

// LoadReader reads a dataset from r, dispatching on the extension of name.
func LoadReader(r io.Reader, name string, opt Options) (*Dataset, error) {
	f, ok := registry[extOf(name)]
	if !ok {
		return nil, &DatasetError{Kind: ErrUnsupported, Path: name}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &DatasetError{Kind: ErrParse, Path: name, Err: err}
	}
	return decode(f, filepath.Base(name), name, data, opt)
}

func decode(f Format, name, path string, data []byte, opt Options) (ds *Dataset, err error) {
	defer func() {
		// third-party decoders may panic on malformed input
		if r := recover(); r != nil {
			ds, err = nil, &DatasetError{Kind: ErrParse, Path: path, Err: fmt.Errorf("%v", r)}
		}
	}()
	cols, err := f.Decode(data, opt)
	if err != nil {
		return nil, &DatasetError{Kind: ErrParse, Path: path, Err: err}
	}
	ds, err = New(name, cols)
	if err != nil {
		return nil, &DatasetError{Kind: ErrParse, Path: path, Err: err}
	}
	return ds, nil
}

// FileInfo describes a dataset file on disk.
type FileInfo struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	Extension string `json:"extension"`
}

// Stat returns basic file information. A missing file reports size 0.
func Stat(path string) FileInfo {
	fi := FileInfo{Name: filepath.Base(path), Extension: extOf(path)}
	if st, err := os.Stat(path); err == nil {
		fi.SizeBytes = st.Size()
	}
	return fi
}

func extOf(name string) string { return strings.ToLower(filepath.Ext(name)) }

// columnsFromRows turns a header row plus data rows into typed columns.
// Short rows are padded with nulls; blank header cells get positional names.
func columnsFromRows(header []string, rows [][]string) []Column {
	width := len(header)
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	names := make([]string, width)
	seen := map[string]int{}
	for i := 0; i < width; i++ {
		var n string
		if i < len(header) {
			n = strings.TrimSpace(header[i])
		}
		if n == "" {
			n = fmt.Sprintf("Unnamed: %d", i)
		}
		if c := seen[n]; c > 0 {
			seen[n] = c + 1
			n = fmt.Sprintf("%s.%d", n, c)
		} else {
			seen[n] = 1
		}
		names[i] = n
	}
	cols := make([]Column, width)
	for i := 0; i < width; i++ {
		raw := make([]string, len(rows))
		for r, row := range rows {
			if i < len(row) {
				raw[r] = row[i]
			}
		}
		cols[i] = textColumn(names[i], raw)
	}
	return cols
}
