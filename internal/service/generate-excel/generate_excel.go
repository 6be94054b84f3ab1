package generate_excel

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"robot-maint/internal/service/costing"
	"robot-maint/internal/storage"
)

const (
	linesSheet      = "Lines"
	aggregatedSheet = "Aggregated"
)

type GenerateExcelStorage interface {
	GetPurchaseOrder(ctx context.Context, id int64) (*storage.PurchaseOrder, error)
}

type GenerateExcelService struct {
	storage GenerateExcelStorage
}

func NewGenerateService(storage GenerateExcelStorage) *GenerateExcelService {
	return &GenerateExcelService{storage: storage}
}

// GeneratePurchaseOrder renders a purchase order as an xlsx workbook: one sheet with every
// line and its provenance, one with the lines grouped by catalog reference.
func (g *GenerateExcelService) GeneratePurchaseOrder(ctx context.Context, id int64) ([]byte, error) {
	const op = "service.generate_excel.GeneratePurchaseOrder"

	po, err := g.storage.GetPurchaseOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", linesSheet); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := f.NewSheet(aggregatedSheet); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 2}},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: header style: %w", op, err)
	}
	staleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Italic: true, Color: "9C0006"},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: stale style: %w", op, err)
	}

	if err := writeLines(f, po, headerStyle, staleStyle); err != nil {
		return nil, fmt.Errorf("%s: lines sheet: %w", op, err)
	}
	if err := writeAggregated(f, costing.AggregateLines(po.Lines), headerStyle, staleStyle); err != nil {
		return nil, fmt.Errorf("%s: aggregated sheet: %w", op, err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("%s: write: %w", op, err)
	}

	return buf.Bytes(), nil
}

// sheetWriter writes into one sheet and keeps the first error; later calls are no-ops.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *sheetWriter) set(col, row int, v any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetCellValue(w.sheet, cell, v)
}

func (w *sheetWriter) row(row int, values []any) {
	for col, v := range values {
		w.set(col+1, row, v)
	}
}

func (w *sheetWriter) style(row, cols, style int) {
	if w.err != nil {
		return
	}
	w.err = w.f.SetCellStyle(w.sheet, cellName(1, row), cellName(cols, row), style)
}

func (w *sheetWriter) header(headers []string, style int) {
	for i, name := range headers {
		w.set(i+1, 1, name)
	}
	w.style(1, len(headers), style)
}

func (w *sheetWriter) finish(fromCol, toCol string, width float64) error {
	if w.err != nil {
		return w.err
	}
	err := w.f.SetPanes(w.sheet, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
	})
	if err != nil {
		return err
	}
	return w.f.SetColWidth(w.sheet, fromCol, toCol, width)
}

func writeLines(f *excelize.File, po *storage.PurchaseOrder, headerStyle, staleStyle int) error {
	headers := []string{"System", "Level", "Component", "Model", "Kind", "Ref", "Name",
		"Quantity", "Unit cost", "Unit price", "Total cost", "Total price"}
	w := &sheetWriter{f: f, sheet: linesSheet}
	w.header(headers, headerStyle)

	row := 2
	for _, l := range po.Lines {
		w.row(row, []any{l.SystemName, string(l.Level), string(l.ComponentKind), l.ModelName,
			l.Kind.Label(), l.RefID, l.Name, l.Quantity, l.UnitCost, l.UnitPrice, l.TotalCost, l.TotalPrice})
		if l.Stale {
			w.style(row, len(headers), staleStyle)
		}
		row++
	}

	// totals
	row++
	w.set(10, row, "Misc cost")
	w.set(11, row, po.MiscCost)
	row++
	w.set(10, row, "Total")
	w.set(11, row, po.TotalCost)
	w.set(12, row, po.TotalPrice)
	row++
	w.set(10, row, "Hours")
	w.set(11, row, po.TotalHours)

	return w.finish("A", "G", 18)
}

func writeAggregated(f *excelize.File, lines []costing.AggregatedLine, headerStyle, staleStyle int) error {
	headers := []string{"Kind", "Ref", "Name", "Quantity", "Unit cost", "Unit price",
		"Total cost", "Total price", "Systems"}
	w := &sheetWriter{f: f, sheet: aggregatedSheet}
	w.header(headers, headerStyle)

	for i, l := range lines {
		row := i + 2
		w.row(row, []any{l.Kind.Label(), l.RefID, l.Name, l.Quantity, l.UnitCost, l.UnitPrice,
			l.TotalCost, l.TotalPrice, len(l.Occurrences)})
		if l.Stale {
			w.style(row, len(headers), staleStyle)
		}
	}

	return w.finish("C", "C", 30)
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
