// Package report writes the per-entry review count comparison workbook.
package report

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const SheetName = "Reviews in PN and BP"

const NoBPValue = "No BP Value"

var header = []string{"PN Number", "BP Number", "# PN Reviews", "# BP Reviews", "Equal?"}

// Row is one entry carrying at least one review of either kind.
type Row struct {
	PNNumber  string
	BPNumber  string
	PNReviews int
	BPReviews int
}

func (r Row) Equal() bool {
	return r.PNReviews == r.BPReviews
}

// Write regenerates the workbook at path. The Equal? column is filled green
// or red.
func Write(path string, rows []Row) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			fmt.Println(err)
		}
	}()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	green, err := fillStyle(f, "#00B050")
	if err != nil {
		return err
	}
	red, err := fillStyle(f, "#FF0000")
	if err != nil {
		return err
	}

	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	if err := f.SetCellStyle(SheetName, "A1", "E1", bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, row := range rows {
		if err := writeRow(f, i+2, row, green, red); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", row.PNNumber, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}

// writeRow fills spreadsheet row n of the report sheet.
func writeRow(f *excelize.File, n int, row Row, green, red int) error {
	num := strconv.Itoa(n)
	bp := row.BPNumber
	if bp == "" {
		bp = NoBPValue
	}
	values := []any{row.PNNumber, bp, row.PNReviews, row.BPReviews, row.Equal()}
	for col, v := range values {
		cell := fmt.Sprintf("%c%s", 'A'+col, num)
		if err := f.SetCellValue(SheetName, cell, v); err != nil {
			return err
		}
	}

	style := red
	if row.Equal() {
		style = green
	}
	return f.SetCellStyle(SheetName, fmt.Sprintf("E%s", num), fmt.Sprintf("E%s", num), style)
}

func fillStyle(f *excelize.File, color string) (int, error) {
	id, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create fill style: %w", err)
	}
	return id, nil
}
