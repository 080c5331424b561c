package dataset

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

type xlsxFormat struct{}

func (xlsxFormat) Extensions() []string { return []string{".xlsx"} }

func (xlsxFormat) Decode(data []byte, opt Options) ([]Column, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	wb, err := openWorkbook(zr)
	if err != nil {
		return nil, err
	}
	sheetPath, err := wb.sheetPath(opt.Sheet)
	if err != nil {
		return nil, err
	}
	sheet := readZipEntry(zr, sheetPath)
	if sheet == nil {
		return nil, fmt.Errorf("sheet data not found: %s", sheetPath)
	}
	rr := newSheetRows(sheet, wb.shared)
	header, ok := rr.Next()
	if !ok {
		return nil, errors.New("no columns to parse from file")
	}
	var rows [][]string
	for {
		row, ok := rr.Next()
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	return columnsFromRows(header, rows), nil
}

type workbook struct {
	sheets []sheetRef
	rels   map[string]string
	shared []string
}

type sheetRef struct {
	name string
	rid  string
}

func openWorkbook(zr *zip.Reader) (*workbook, error) {
	wbXML := readZipEntry(zr, "xl/workbook.xml")
	if wbXML == nil {
		return nil, errors.New("workbook.xml not found")
	}
	wb := &workbook{
		sheets: parseSheetRefs(wbXML),
		rels:   parseRelationships(readZipEntry(zr, "xl/_rels/workbook.xml.rels")),
		shared: parseSharedStrings(readZipEntry(zr, "xl/sharedStrings.xml")),
	}
	if len(wb.sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return wb, nil
}

// sheetPath resolves a sheet name (or the first sheet) to its zip entry.
func (wb *workbook) sheetPath(name string) (string, error) {
	ref := wb.sheets[0]
	if name != "" {
		found := false
		for _, s := range wb.sheets {
			if strings.EqualFold(s.name, name) {
				ref, found = s, true
				break
			}
		}
		if !found {
			return "", fmt.Errorf("sheet %q not found", name)
		}
	}
	target, ok := wb.rels[ref.rid]
	if !ok {
		return "xl/worksheets/sheet1.xml", nil
	}
	return normalizeRelPath(target), nil
}

func parseSheetRefs(data []byte) []sheetRef {
	var out []sheetRef
	eachStart(data, func(se xml.StartElement) {
		if se.Name.Local != "sheet" {
			return
		}
		var s sheetRef
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "name":
				s.name = a.Value
			case "id":
				s.rid = a.Value
			}
		}
		out = append(out, s)
	})
	return out
}

func parseRelationships(data []byte) map[string]string {
	out := map[string]string{}
	eachStart(data, func(se xml.StartElement) {
		if se.Name.Local != "Relationship" {
			return
		}
		var id, target string
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "Id":
				id = a.Value
			case "Target":
				target = a.Value
			}
		}
		if id != "" && target != "" {
			out[id] = target
		}
	})
	return out
}

func eachStart(data []byte, fn func(xml.StartElement)) {
	if len(data) == 0 {
		return
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return
		}
		if se, ok := tok.(xml.StartElement); ok {
			fn(se)
		}
	}
}

func parseSharedStrings(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	var out []string
	var buf strings.Builder
	var inT bool
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "si":
				buf.Reset()
			case "t":
				inT = true
			}
		case xml.EndElement:
			switch se.Name.Local {
			case "t":
				inT = false
			case "si":
				out = append(out, buf.String())
			}
		case xml.CharData:
			if inT {
				buf.Write(se)
			}
		}
	}
}

func readZipEntry(zr *zip.Reader, name string) []byte {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil
		}
		defer rc.Close()
		b, _ := io.ReadAll(rc)
		return b
	}
	return nil
}

// sheetRows streams <row> elements of a worksheet as dense string slices.
type sheetRows struct {
	dec    *xml.Decoder
	shared []string
}

func newSheetRows(data []byte, shared []string) *sheetRows {
	return &sheetRows{dec: xml.NewDecoder(bytes.NewReader(data)), shared: shared}
}

func (r *sheetRows) Next() ([]string, bool) {
	var row []string
	inRow := false
	next := 0
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return nil, false
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "row" {
				inRow = true
				row = nil
				next = 0
				continue
			}
			if !inRow || se.Name.Local != "c" {
				continue
			}
			var ref, typ string
			for _, a := range se.Attr {
				switch a.Name.Local {
				case "r":
					ref = a.Value
				case "t":
					typ = a.Value
				}
			}
			idx := next
			if ref != "" {
				idx = colIndexFromRef(ref)
			}
			next = idx + 1
			for len(row) <= idx {
				row = append(row, "")
			}
			row[idx] = r.cellValue(typ)
		case xml.EndElement:
			if se.Name.Local == "row" && inRow {
				return row, true
			}
		}
	}
}

// cellValue consumes a <c> element body and returns its display text.
func (r *sheetRows) cellValue(typ string) string {
	var val strings.Builder
	depth := 0
	capture := false
	for {
		tok, err := r.dec.Token()
		if err != nil {
			break
		}
		switch se := tok.(type) {
		case xml.StartElement:
			depth++
			if se.Name.Local == "v" || se.Name.Local == "t" {
				capture = true
			}
		case xml.CharData:
			if capture {
				val.Write(se)
			}
		case xml.EndElement:
			if se.Name.Local == "v" || se.Name.Local == "t" {
				capture = false
			}
			if depth == 0 && se.Name.Local == "c" {
				return resolveCell(typ, val.String(), r.shared)
			}
			depth--
		}
	}
	return resolveCell(typ, val.String(), r.shared)
}

func resolveCell(typ, raw string, shared []string) string {
	switch typ {
	case "s":
		idx := atoiSafe(raw)
		if idx >= 0 && idx < len(shared) {
			return shared[idx]
		}
		return ""
	case "b":
		if raw == "1" {
			return "true"
		}
		return "false"
	case "e":
		return "#N/A"
	}
	return raw
}

// colIndexFromRef maps a cell reference like "C12" to a 0-based column.
func colIndexFromRef(ref string) int {
	idx := 0
	for i := 0; i < len(ref); i++ {
		c := ref[i]
		switch {
		case c >= 'A' && c <= 'Z':
			idx = idx*26 + int(c-'A'+1)
		case c >= 'a' && c <= 'z':
			idx = idx*26 + int(c-'a'+1)
		default:
			return idx - 1
		}
	}
	return idx - 1
}

func atoiSafe(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// normalizeRelPath converts a relationship target into a zip entry name.
// Targets may be absolute ("/xl/worksheets/sheet1.xml") or relative to xl/.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}
