package services

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportRepresentationPlan renders the representation plan as an XLSX
// workbook, one row per substituted lesson.
func ExportRepresentationPlan(entries []PlanEntry) (*excelize.File, error) {
	f := excelize.NewFile()
	const sheet = "Representation Plan"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headers := []string{"Date", "Start", "End", "Lesson", "Location", "Teacher", "Substitute"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for row, entry := range entries {
		values := []interface{}{
			entry.StartTime.Format("2006-01-02"),
			entry.StartTime.Format("15:04"),
			entry.EndTime.Format("15:04"),
			entry.Title,
			entry.Location,
			entry.TeacherName,
			entry.SubstituteName,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("write plan row %d: %w", row+1, err)
			}
		}
	}

	return f, nil
}
