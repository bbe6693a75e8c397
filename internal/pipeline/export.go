package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"offerhub/internal"
)

// ExportSnapshotToXLSX writes a batch's permanent analysis to a review
// workbook: one sheet of analyzed matches, one of skipped rows.
func ExportSnapshotToXLSX(snap internal.BatchSnapshot, outputPath string) error {
	f := excelize.NewFile()
	matches := f.GetSheetName(0)
	_ = f.SetSheetName(matches, "Matches")
	matches = "Matches"

	matchHeaders := []string{
		"supplier", "offer_product", "sku", "price", "currency",
		"matched_product_id", "matched_product_name", "confidence",
		"status", "approval_type", "auto_created", "rationale",
	}
	for i, h := range matchHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(matches, cell, h)
	}

	for i, m := range snap.AnalyzedMatches {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(matches, cell, value)
		}
		set(1, m.SupplierName)
		set(2, m.ProductName)
		set(3, m.SKU)
		set(4, m.Price)
		set(5, m.Currency)
		set(6, derefOr(m.MatchedProductID, ""))
		set(7, derefOr(m.MatchedProductName, ""))
		set(8, m.Confidence)
		set(9, m.Status)
		set(10, derefOr(m.ApprovalType, ""))
		set(11, m.WasAutoCreated)
		set(12, m.Rationale)
	}

	skippedSheet := "Skipped"
	if _, err := f.NewSheet(skippedSheet); err != nil {
		return err
	}
	skipHeaders := []string{"product_name", "supplier", "sku", "price", "reason"}
	for i, h := range skipHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(skippedSheet, cell, h)
	}
	for i, s := range snap.SkippedRows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(skippedSheet, cell, value)
		}
		set(1, s.ProductName)
		set(2, s.SupplierName)
		set(3, s.SKU)
		set(4, s.Price)
		set(5, s.Reason)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
