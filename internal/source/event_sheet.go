package source

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/restock-go/internal/domain"
)

// ReadEventSheetXLSX reads the first worksheet of an event performance
// workbook. The first row is the header; cells are kept as displayed text.
func ReadEventSheetXLSX(r io.Reader) (domain.EventSheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return domain.EventSheet{}, fmt.Errorf("failed to open event sheet workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return domain.EventSheet{}, fmt.Errorf("event sheet workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return domain.EventSheet{}, fmt.Errorf("failed to read rows from sheet %s: %w", sheets[0], err)
	}
	return sheetFromRows(rows), nil
}

// ReadEventSheetCSV reads an event performance sheet exported as CSV.
func ReadEventSheetCSV(r io.Reader) (domain.EventSheet, error) {
	t, err := readCSV("event sheet", r)
	if err != nil {
		return domain.EventSheet{}, err
	}
	return domain.EventSheet{Header: t.header, Rows: t.records}, nil
}

func sheetFromRows(rows [][]string) domain.EventSheet {
	if len(rows) == 0 {
		return domain.EventSheet{}
	}
	sheet := domain.EventSheet{Header: rows[0]}
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
