package infra

import (
	"fmt"
	"time"

	"warehouse/internal/dto"

	"github.com/xuri/excelize/v2"
)

var exportHeader = []string{"ID", "Title", "Gram", "Quantity", "Bundles", "Rate", "Value"}

const xlsxSheet = "Dashboard"

// DashboardXLSX renders the dashboard table as an Excel workbook with a
// totals row under the products.
func DashboardXLSX(d *dto.DashboardResponse, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, err
	}

	for i, h := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(xlsxSheet, cell, h); err != nil {
			return nil, err
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(xlsxSheet, "A1", "G1", bold); err != nil {
		return nil, err
	}

	for i, row := range d.Products {
		r := i + 2
		gram := ""
		if row.Gram != nil {
			gram = *row.Gram
		}
		values := []interface{}{
			row.PID,
			row.Title,
			gram,
			row.ItemQuantity,
			row.Bundles.InexactFloat64(),
			row.ProductRate.InexactFloat64(),
			row.Value.InexactFloat64(),
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r)
			if err := f.SetCellValue(xlsxSheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	total := len(d.Products) + 2
	totals := map[string]interface{}{
		fmt.Sprintf("B%d", total): "Total",
		fmt.Sprintf("D%d", total): d.Summary.TotalItems,
		fmt.Sprintf("G%d", total): d.Summary.TotalValue.InexactFloat64(),
		fmt.Sprintf("A%d", total+2): "Generated " + generatedAt.Format("2006-01-02 15:04"),
	}
	for cell, v := range totals {
		if err := f.SetCellValue(xlsxSheet, cell, v); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(xlsxSheet, fmt.Sprintf("A%d", total), fmt.Sprintf("G%d", total), bold); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx: render dashboard: %w", err)
	}
	return buf.Bytes(), nil
}
