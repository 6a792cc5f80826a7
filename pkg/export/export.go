// Package export writes tank history to an Excel workbook.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/tanksense/tanksense/pkg/types"
)

// SheetName is the single worksheet the history is written to.
const SheetName = "History"

var headers = []string{"reading_date", "level_percent", "level_litres"}

// WriteXLSX writes the readings to an xlsx workbook at path, one row per
// reading under a header row.
func WriteXLSX(path string, readings []types.Reading) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, cell, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, r := range readings {
		row := i + 2
		values := []interface{}{r.ReadingDate, r.LevelPercent, r.LevelLitres}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
