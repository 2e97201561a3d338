package document

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"romaneio-backend/internal/models"
)

// ExcelRenderer renders the picking sheet the separators carry through the
// warehouse: run header on top, one row per line item with a blank picked
// column to fill in by hand.
type ExcelRenderer struct{}

func NewExcelRenderer() *ExcelRenderer { return &ExcelRenderer{} }

const docSheet = "Picking"

var itemColumns = []string{
	"Date", "Requester", "Code", "Description", "Unit",
	"Requested", "Location", "Stock", "Monthly Avg", "Picked",
}

func (e *ExcelRenderer) Render(run models.PrintRun, items []models.PrintRunItem) ([]byte, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(docSheet)
	if err != nil {
		return nil, "", fmt.Errorf("render: %w", err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetCellValue(docSheet, "A1", "Separation run")
	f.SetCellValue(docSheet, "B1", run.ID)
	f.SetCellValue(docSheet, "A2", "Created")
	f.SetCellValue(docSheet, "B2", run.CreatedAt)
	f.SetCellValue(docSheet, "C2", run.CreatedBy)
	f.SetCellValue(docSheet, "A3", "Items")
	f.SetCellValue(docSheet, "B3", run.ItemCount)
	if run.Notes != "" {
		f.SetCellValue(docSheet, "A4", "Notes")
		f.SetCellValue(docSheet, "B4", run.Notes)
	}

	const headerRow = 6
	for col, name := range itemColumns {
		cell, _ := excelize.CoordinatesToCellName(col+1, headerRow)
		f.SetCellValue(docSheet, cell, name)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		first, _ := excelize.CoordinatesToCellName(1, headerRow)
		last, _ := excelize.CoordinatesToCellName(len(itemColumns), headerRow)
		f.SetCellStyle(docSheet, first, last, style)
	}

	for i, it := range items {
		row := headerRow + 1 + i
		values := []interface{}{
			it.Date, it.Requester, it.Code, it.Description, it.Unit,
			it.Quantity, it.Location, it.StockBalance, it.MonthlyAverage, "",
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(docSheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), ".xlsx", nil
}
