package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"ohbang/internal/models"

	"github.com/xuri/excelize/v2"
)

const SheetName = "Menu"

var headers = []string{"ID", "Name", "Category", "Price", "Description", "Image"}

// WriteMenu writes the records as a single-sheet workbook, sorted by
// category and then id.
func WriteMenu(w io.Writer, records []models.MenuItemRecord) error {
	f, err := build(records)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// SaveMenu writes the workbook into dir and returns the file path.
func SaveMenu(dir string, records []models.MenuItemRecord, now time.Time) (string, error) {
	// Создаем папку для экспорта, если не существует
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := build(records)
	if err != nil {
		return "", err
	}
	defer f.Close()

	filePath := filepath.Join(dir, fmt.Sprintf("menu_%s.xlsx", now.Format("20060102_150405")))
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return filePath, nil
}

func build(records []models.MenuItemRecord) (*excelize.File, error) {
	sorted := append([]models.MenuItemRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Category != sorted[j].Category {
			return sorted[i].Category < sorted[j].Category
		}
		return sorted[i].ID < sorted[j].ID
	})

	f := excelize.NewFile()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	// Удаляем стандартный лист
	_ = f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
		_ = f.SetCellStyle(SheetName, cell, cell, headerStyle)
	}

	priceStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 2})

	for i, r := range sorted {
		row := i + 2
		values := []interface{}{r.ID, r.Name, r.Category, r.Price, r.Description, r.Image}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("error writing cell %s: %w", cell, err)
			}
		}
		priceCell, _ := excelize.CoordinatesToCellName(4, row)
		_ = f.SetCellStyle(SheetName, priceCell, priceCell, priceStyle)
	}

	_ = f.SetColWidth(SheetName, "A", "A", 8)
	_ = f.SetColWidth(SheetName, "B", "C", 25)
	_ = f.SetColWidth(SheetName, "D", "D", 10)
	_ = f.SetColWidth(SheetName, "E", "F", 40)

	return f, nil
}
