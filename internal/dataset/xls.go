package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/extrame/xls"
)

// xlsFormat reads legacy BIFF workbooks.
type xlsFormat struct{}

func (xlsFormat) Extensions() []string { return []string{".xls"} }

func (xlsFormat) Decode(data []byte, opt Options) ([]Column, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	sheet := wb.GetSheet(0)
	if opt.Sheet != "" {
		sheet = nil
		for i := 0; i < wb.NumSheets(); i++ {
			if s := wb.GetSheet(i); s != nil && strings.EqualFold(s.Name, opt.Sheet) {
				sheet = s
				break
			}
		}
		if sheet == nil {
			return nil, fmt.Errorf("sheet %q not found", opt.Sheet)
		}
	}
	if sheet == nil {
		return nil, errors.New("sheet data not found")
	}

	var grid [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := row.FirstCol(); j < row.LastCol(); j++ {
			cells[j] = row.Col(j)
		}
		grid = append(grid, cells)
	}
	return gridColumns(grid)
}

// gridColumns turns a sheet's text grid into columns. Leading empty rows are
// dropped so the first populated row is the header.
func gridColumns(grid [][]string) ([]Column, error) {
	for len(grid) > 0 && len(grid[0]) == 0 {
		grid = grid[1:]
	}
	if len(grid) == 0 {
		return nil, errors.New("no columns to parse from file")
	}
	return columnsFromRows(grid[0], grid[1:]), nil
}
