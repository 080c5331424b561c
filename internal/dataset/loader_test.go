package dataset

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestLoadCSVInfersKinds(t *testing.T) {
	p := writeFile(t, "scores.csv", []byte("name,score,passed,joined\nann,90,true,2024-01-02\nbob,,false,2024-02-03\ncy,70,true,2024-03-04\n"))

	ds, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "scores.csv", ds.Name())
	assert.Equal(t, 3, ds.Rows())
	assert.Equal(t, []string{"name", "score", "passed", "joined"}, ds.Columns())

	kinds := map[string]Kind{}
	for _, c := range ds.Columns() {
		k, ok := ds.Kind(c)
		require.True(t, ok)
		kinds[c] = k
	}
	assert.Equal(t, KindText, kinds["name"])
	assert.Equal(t, KindFloat, kinds["score"], "nulls promote integers to float")
	assert.Equal(t, KindBool, kinds["passed"])
	assert.Equal(t, KindTime, kinds["joined"])

	vals, ok := ds.Values("score")
	require.True(t, ok)
	assert.Equal(t, []any{90.0, nil, 70.0}, vals)

	joined, _ := ds.Values("joined")
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), joined[0])
}

func TestLoadCSVIntegerColumnStaysInt(t *testing.T) {
	ds, err := LoadReader(strings.NewReader("a,b\n1,x\n2,y\n"), "small.CSV", Options{})
	require.NoError(t, err)
	k, _ := ds.Kind("a")
	assert.Equal(t, KindInt, k)
	vals, _ := ds.Values("a")
	assert.Equal(t, []any{int64(1), int64(2)}, vals)
}

func TestLoadCSVKeepsGoNumberLiteralsAsText(t *testing.T) {
	ds, err := LoadReader(strings.NewReader("period,amount,ratio\n2023_01,5,0x1p-2\n2023_02,7,-0X10\n"), "p.csv", Options{})
	require.NoError(t, err)

	k, _ := ds.Kind("period")
	assert.Equal(t, KindText, k)
	period, _ := ds.Values("period")
	assert.Equal(t, []any{"2023_01", "2023_02"}, period)

	k, _ = ds.Kind("amount")
	assert.Equal(t, KindInt, k)

	k, _ = ds.Kind("ratio")
	assert.Equal(t, KindText, k)
	ratio, _ := ds.Values("ratio")
	assert.Equal(t, []any{"0x1p-2", "-0X10"}, ratio)
}

func TestLoadCSVLatin1Fallback(t *testing.T) {
	p := writeFile(t, "cafe.csv", []byte("name,city\ncaf\xe9,K\xf6ln\n"))
	ds, err := Load(p)
	require.NoError(t, err)
	vals, _ := ds.Values("name")
	assert.Equal(t, "café", vals[0])
	city, _ := ds.Values("city")
	assert.Equal(t, "Köln", city[0])
}

func TestLoadCSVRaggedRowsArePadded(t *testing.T) {
	ds, err := LoadReader(strings.NewReader("a,b,c\n1,2\n3,4,5\n"), "r.csv", Options{})
	require.NoError(t, err)
	c, _ := ds.Values("c")
	assert.Equal(t, []any{nil, 5.0}, c)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
		require.Error(t, err)
		var de *DatasetError
		require.True(t, errors.As(err, &de))
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.True(t, errors.Is(err, os.ErrNotExist), "original cause is wrapped")
		assert.Contains(t, err.Error(), "file not found: ")
	})
	t.Run("unsupported", func(t *testing.T) {
		p := writeFile(t, "notes.txt", []byte("hello"))
		_, err := Load(p)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnsupported))
		assert.Equal(t, "unsupported file type: .txt. Supported types: .csv, .json, .xls, .xlsx", err.Error())
	})
	t.Run("parse", func(t *testing.T) {
		p := writeFile(t, "bad.json", []byte("{not json"))
		_, err := Load(p)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrParse))
		assert.True(t, strings.HasPrefix(err.Error(), "failed to parse file: "))
	})
	t.Run("empty csv", func(t *testing.T) {
		p := writeFile(t, "empty.csv", nil)
		_, err := Load(p)
		assert.True(t, errors.Is(err, ErrParse))
	})
	t.Run("corrupt xlsx", func(t *testing.T) {
		p := writeFile(t, "broken.xlsx", []byte("PK not really"))
		_, err := Load(p)
		assert.True(t, errors.Is(err, ErrParse))
	})
	t.Run("corrupt xls", func(t *testing.T) {
		_, err := LoadReader(bytes.NewReader([]byte("\xd0\xcf\x11\xe0 truncated")), "legacy.xls", Options{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrParse))
		var de *DatasetError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "legacy.xls", de.Path)
	})
}

func TestGridColumnsSkipsLeadingEmptyRows(t *testing.T) {
	cols, err := gridColumns([][]string{
		nil,
		{},
		{"name", "qty", ""},
		{"a", "1", "x"},
		nil,
		{"b", "3"},
	})
	require.NoError(t, err)
	require.Len(t, cols, 3)
	assert.Equal(t, "name", cols[0].Name)
	assert.Equal(t, "Unnamed: 2", cols[2].Name)
	assert.Equal(t, KindText, cols[0].Kind)
	assert.Equal(t, KindFloat, cols[1].Kind, "the empty row leaves a null")
	assert.Equal(t, []any{1.0, nil, 3.0}, cols[1].Values)

	_, err = gridColumns([][]string{nil, {}})
	assert.EqualError(t, err, "no columns to parse from file")
}

func TestLoadJSONShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"records", `[{"city":"Oslo","temp":3},{"city":"Rome","temp":14.5},{"city":"Lima","temp":null}]`},
		{"lines", "{\"city\":\"Oslo\",\"temp\":3}\n{\"city\":\"Rome\",\"temp\":14.5}\n{\"city\":\"Lima\",\"temp\":null}\n"},
		{"columns", `{"city":["Oslo","Rome","Lima"],"temp":[3,14.5,null]}`},
		{"index", `{"city":{"0":"Oslo","1":"Rome","2":"Lima"},"temp":{"0":3,"1":14.5,"2":null}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ds, err := LoadReader(strings.NewReader(tc.body), "w.json", Options{})
			require.NoError(t, err)
			assert.Equal(t, []string{"city", "temp"}, ds.Columns())
			assert.Equal(t, 3, ds.Rows())
			k, _ := ds.Kind("temp")
			assert.Equal(t, KindFloat, k)
			temps, _ := ds.Values("temp")
			assert.Equal(t, []any{3.0, 14.5, nil}, temps)
			k, _ = ds.Kind("city")
			assert.Equal(t, KindText, k)
		})
	}
}

func TestLoadJSONKeepsEmptyStrings(t *testing.T) {
	ds, err := LoadReader(strings.NewReader(`[{"n":""},{"n":"x"},{"n":null}]`), "e.json", Options{})
	require.NoError(t, err)
	vals, _ := ds.Values("n")
	assert.Equal(t, []any{"", "x", nil}, vals)
}

func TestLoadXLSXSheetSelection(t *testing.T) {
	data := buildXLSX(t, map[string][][]string{
		"Ignore": {{"placeholder"}},
		"Data":   {{"region", "sales"}, {"north", "12"}, {"south", "7"}},
	}, []string{"Ignore", "Data"})
	p := writeFile(t, "book.xlsx", data)

	ds, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"placeholder"}, ds.Columns(), "first sheet by default")

	ds, err = LoadWithOptions(p, Options{Sheet: "data"})
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "sales"}, ds.Columns())
	k, _ := ds.Kind("sales")
	assert.Equal(t, KindInt, k)
	sales, _ := ds.Values("sales")
	assert.Equal(t, []any{int64(12), int64(7)}, sales)

	_, err = LoadWithOptions(p, Options{Sheet: "missing"})
	assert.True(t, errors.Is(err, ErrParse))
}

func TestNormalizeRelPath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeRelPath(tt.in), tt.in)
	}
}

func TestColIndexFromRef(t *testing.T) {
	assert.Equal(t, 0, colIndexFromRef("A1"))
	assert.Equal(t, 2, colIndexFromRef("C12"))
	assert.Equal(t, 26, colIndexFromRef("AA3"))
}

func TestStat(t *testing.T) {
	p := writeFile(t, "Data.CSV", []byte("a\n1\n"))
	fi := Stat(p)
	assert.Equal(t, FileInfo{Name: "Data.CSV", SizeBytes: 4, Extension: ".csv"}, fi)
	assert.Equal(t, int64(0), Stat(filepath.Join(t.TempDir(), "gone.csv")).SizeBytes)
}

func TestNewRejectsUnequalColumns(t *testing.T) {
	_, err := New("x", []Column{
		{Name: "a", Values: []any{int64(1), int64(2)}},
		{Name: "b", Values: []any{int64(1)}},
	})
	assert.Error(t, err)
}

// buildXLSX writes a minimal workbook with inline-string cells.
func buildXLSX(t *testing.T, sheets map[string][][]string, order []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	add := func(name, body string) {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	var wb, rels strings.Builder
	wb.WriteString(`<?xml version="1.0" encoding="UTF-8"?><workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><sheets>`)
	rels.WriteString(`<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for i, name := range order {
		n := string(rune('1' + i))
		wb.WriteString(`<sheet name="` + name + `" sheetId="` + n + `" r:id="rId` + n + `"/>`)
		rels.WriteString(`<Relationship Id="rId` + n + `" Target="/xl/worksheets/sheet` + n + `.xml"/>`)
		var sh strings.Builder
		sh.WriteString(`<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>`)
		for r, row := range sheets[name] {
			sh.WriteString(`<row r="` + string(rune('1'+r)) + `">`)
			for c, v := range row {
				ref := string(rune('A'+c)) + string(rune('1'+r))
				sh.WriteString(`<c r="` + ref + `" t="inlineStr"><is><t>` + v + `</t></is></c>`)
			}
			sh.WriteString(`</row>`)
		}
		sh.WriteString(`</sheetData></worksheet>`)
		add("xl/worksheets/sheet"+n+".xml", sh.String())
	}
	wb.WriteString(`</sheets></workbook>`)
	rels.WriteString(`</Relationships>`)
	add("xl/workbook.xml", wb.String())
	add("xl/_rels/workbook.xml.rels", rels.String())
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
