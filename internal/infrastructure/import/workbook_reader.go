package sheetimport

import (
	"bytes"
	"fmt"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// xlsCharset is the code page legacy workbooks are read with
const xlsCharset = "utf-8"

// readXLSXRecords reads the first sheet of an Office Open XML workbook. Raw cell
// values are used so that dates arrive as serials and amounts without
// formatting.
func readXLSXRecords(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// readXLSRecords reads the first sheet of a BIFF (.xls) workbook.
func readXLSRecords(data []byte) (records [][]string, err error) {
	// The BIFF decoder panics on some truncated files.
	defer func() {
		if r := recover(); r != nil {
			records, err = nil, fmt.Errorf("failed to read xls: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), xlsCharset)
	if err != nil {
		return nil, fmt.Errorf("failed to open xls: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			records = append(records, nil)
			continue
		}
		record := make([]string, row.LastCol())
		for j := row.FirstCol(); j < row.LastCol(); j++ {
			record[j] = row.Col(j)
		}
		records = append(records, record)
	}
	return records, nil
}
