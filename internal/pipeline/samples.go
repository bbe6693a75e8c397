package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// WriteSampleWorkbooks generates demo offer spreadsheets for local
// testing: one clean file and one with intentional data quality
// issues.
func WriteSampleWorkbooks(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	clean := [][]any{
		{"Supplier", "Product Name", "SKU", "Price", "Currency", "Description"},
		{"Tech Supplies Inc.", "Wireless Mouse Premium", "WM-2024-001", 29.99, "USD", "Premium wireless mouse with ergonomic design"},
		{"Tech Supplies Inc.", "Mechanical Keyboard RGB", "KB-2024-003", 119.99, "USD", "RGB mechanical keyboard with blue switches"},
		{"Tech Supplies Inc.", "USB Hub 7-Port", "UH-NEW-001", 39.99, "USD", "7-port powered USB hub with fast charging"},
		{"Tech Supplies Inc.", "HDMI Cable 4K", "HDMI-NEW-001", 14.99, "USD", "2m HDMI 2.1 cable 4K 120Hz support"},
	}

	messy := [][]any{
		{"Supplier", "Product Name", "SKU", "Price", "Currency", "Description"},
		{"Messy Data Inc", "wireless mouse", "", 19.99, "USD", "basic wireless mouse"},
		{"", "USB CABLE", "USB-001", "INVALID", "USD", ""},
		{"Messy Data Inc", "  Keyboard  With  Spaces  ", "KB SPACE 001", 49.99, "", ""},
		{"Messy Data Inc", "UPPERCASE PRODUCT NAME", "sku-lowercase-001", 0, "USD", "Mixed case issues"},
		{"Messy Data Inc", "", "NO-NAME-001", 12.50, "USD", "Row without a product name"},
	}

	files := []struct {
		name string
		rows [][]any
	}{
		{"sample-clean-offers.xlsx", clean},
		{"sample-messy-offers.xlsx", messy},
	}

	out := make([]string, 0, len(files))
	for _, file := range files {
		path := filepath.Join(dir, file.name)
		if err := writeWorkbook(path, file.rows); err != nil {
			return out, fmt.Errorf("write %s: %w", file.name, err)
		}
		out = append(out, path)
	}
	return out, nil
}

func writeWorkbook(path string, rows [][]any) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	return f.SaveAs(path)
}
