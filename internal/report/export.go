// Package report renders estimate and price data into xlsx workbooks for
// the office staff. Layout-heavy documents (PDF proposals) live elsewhere.
package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/hartline-electric/backoffice/internal/domain/costing"
	"github.com/hartline-electric/backoffice/internal/domain/estimates"
	"github.com/hartline-electric/backoffice/internal/domain/materials"
)

// EstimateWorkbook builds an xlsx with one row per line item plus a totals
// block, for review outside the system.
func EstimateWorkbook(e *estimates.Estimate) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []interface{}{
		"room", "item_code", "description", "quantity",
		"unit_price", "total_price", "material_cost", "labor_minutes",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	row := 2
	for _, rm := range e.Rooms {
		for _, li := range rm.Items {
			excelRow := []interface{}{
				rm.Name,
				li.ItemCode,
				li.Description,
				li.Quantity,
				li.UnitPrice.InexactFloat64(),
				li.TotalPrice().InexactFloat64(),
				li.EffectiveMaterialCost().InexactFloat64(),
				li.LaborMinutes * li.Quantity,
			}
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(sheet, cell, &excelRow); err != nil {
				return nil, err
			}
			row++
		}
	}

	totals := costing.Calculate(e)
	for _, line := range [][]interface{}{
		{"material_total", totals.MaterialTotal.InexactFloat64()},
		{"labor_minutes", totals.LaborMinutes},
		{"labor_cost", totals.LaborCost.InexactFloat64()},
		{"material_with_markup", totals.MaterialWithMarkup.InexactFloat64()},
		{"subtotal", totals.Subtotal.InexactFloat64()},
		{"total_price", totals.TotalPrice.InexactFloat64()},
	} {
		row++
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		l := line
		if err := f.SetSheetRow(sheet, cell, &l); err != nil {
			return nil, err
		}
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PriceHistoryWorkbook exports a material's price transitions, one row per
// change, oldest first.
func PriceHistoryWorkbook(m materials.Material, history []materials.PriceHistory) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetName(sheet, "Price History"); err != nil {
		return nil, err
	}
	sheet = "Price History"

	title := []interface{}{fmt.Sprintf("%s (%s)", m.Name, m.Code)}
	if err := f.SetSheetRow(sheet, "A1", &title); err != nil {
		return nil, err
	}
	header := []interface{}{
		"changed_at", "old_price", "new_price", "percent_change", "alert_level", "changed_by",
	}
	if err := f.SetSheetRow(sheet, "A2", &header); err != nil {
		return nil, err
	}

	row := 3
	for _, h := range history {
		excelRow := []interface{}{
			h.ChangedAt.Format("2006-01-02 15:04"),
			h.OldPrice.InexactFloat64(),
			h.NewPrice.InexactFloat64(),
			h.PercentChange.InexactFloat64(),
			string(h.AlertLevel()),
			h.ChangedBy,
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &excelRow); err != nil {
			return nil, err
		}
		row++
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
