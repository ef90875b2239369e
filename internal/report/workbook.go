package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/xuri/excelize/v2"

	"github.com/fieldworks/depot/internal/catalog"
	"github.com/fieldworks/depot/internal/ledger"
)

// Generator renders period reports as xlsx workbooks.
type Generator struct {
	dir    string
	logger *slog.Logger
}

// NewGenerator constructs Generator writing into dir.
func NewGenerator(dir string, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{dir: dir, logger: logger}
}

// Generate builds the report for the inclusive date range and writes the
// workbook, returning its path. It fails with ErrEmptyReport when no exit
// falls in range and ErrGeneration on write failure.
func (g *Generator) Generate(exits []ledger.ExitRecord, from, to catalog.Date) (string, error) {
	rep, err := Build(exits, from, to)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	name := fmt.Sprintf("Report_%s_%s.xlsx", from.Compact(), to.Compact())
	path := filepath.Join(g.dir, name)
	if err := writeWorkbook(rep, path); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	g.logger.Info("report generated",
		slog.String("path", path),
		slog.Int("lines", len(rep.Summary)))
	return path, nil
}

var sheetNameSanitizer = regexp.MustCompile(`[\\/*?:\[\]]`)

// sanitizeSheetName strips characters xlsx forbids and caps the 31-char limit.
func sanitizeSheetName(name string) string {
	clean := sheetNameSanitizer.ReplaceAllString(name, "-")
	if len(clean) > 31 {
		clean = clean[:31]
	}
	return clean
}

// styles carries the style IDs shared by all sheets.
type styles struct {
	header   int
	subHead  int
	cell     int
	number   int
	money    int
	total    int
	grandTot int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error

	moneyFmt := "#,##0.00"
	border := []excelize.Border{
		{Type: "left", Color: "81C784", Style: 1},
		{Type: "right", Color: "81C784", Style: 1},
		{Type: "top", Color: "81C784", Style: 1},
		{Type: "bottom", Color: "81C784", Style: 1},
	}

	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1B5E20"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    border,
	}); err != nil {
		return s, err
	}
	if s.subHead, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"2E7D32"}},
		Border: border,
	}); err != nil {
		return s, err
	}
	if s.cell, err = f.NewStyle(&excelize.Style{Border: border}); err != nil {
		return s, err
	}
	if s.number, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    border,
	}); err != nil {
		return s, err
	}
	if s.money, err = f.NewStyle(&excelize.Style{
		Alignment:    &excelize.Alignment{Horizontal: "right"},
		Border:       border,
		CustomNumFmt: &moneyFmt,
	}); err != nil {
		return s, err
	}
	if s.total, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true},
		Fill:         excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"81C784"}},
		Border:       border,
		CustomNumFmt: &moneyFmt,
	}); err != nil {
		return s, err
	}
	if s.grandTot, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:         excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4CAF50"}},
		Border:       border,
		CustomNumFmt: &moneyFmt,
	}); err != nil {
		return s, err
	}
	return s, nil
}

// sheet accumulates rows top to bottom on one worksheet.
type sheet struct {
	f      *excelize.File
	name   string
	st     styles
	row    int
	lastCol string
}

func newSheet(f *excelize.File, name string, st styles, cols int) (*sheet, error) {
	if _, err := f.NewSheet(name); err != nil {
		return nil, err
	}
	last, err := excelize.ColumnNumberToName(cols)
	if err != nil {
		return nil, err
	}
	if err := f.SetColWidth(name, "A", last, 18); err != nil {
		return nil, err
	}
	return &sheet{f: f, name: name, st: st, row: 1, lastCol: last}, nil
}

func (s *sheet) banner(title string) error {
	start := fmt.Sprintf("A%d", s.row)
	end := fmt.Sprintf("%s%d", s.lastCol, s.row)
	if err := s.f.MergeCell(s.name, start, end); err != nil {
		return err
	}
	if err := s.f.SetCellValue(s.name, start, title); err != nil {
		return err
	}
	if err := s.f.SetCellStyle(s.name, start, end, s.st.header); err != nil {
		return err
	}
	s.row += 2
	return nil
}

// writeRow writes one row; moneyCols (1-based column numbers) get the money
// style, numeric cells without explicit style get the number style.
func (s *sheet) writeRow(values []any, style int, moneyCols map[int]bool) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, s.row)
		if err != nil {
			return err
		}
		if err := s.f.SetCellValue(s.name, cell, v); err != nil {
			return err
		}
		cellStyle := style
		if moneyCols != nil {
			switch {
			case moneyCols[i+1]:
				cellStyle = s.st.money
			default:
				if _, isFloat := v.(float64); isFloat {
					cellStyle = s.st.number
				}
			}
		}
		if err := s.f.SetCellStyle(s.name, cell, cell, cellStyle); err != nil {
			return err
		}
	}
	s.row++
	return nil
}

func (s *sheet) headerRowAny(headers []string) []any {
	out := make([]any, len(headers))
	for i, h := range headers {
		out[i] = h
	}
	return out
}

func (s *sheet) totalRow(label string, total float64, style int) error {
	cols, err := excelize.ColumnNameToNumber(s.lastCol)
	if err != nil {
		return err
	}
	start := fmt.Sprintf("A%d", s.row)
	endLabel, err := excelize.CoordinatesToCellName(cols-1, s.row)
	if err != nil {
		return err
	}
	if err := s.f.MergeCell(s.name, start, endLabel); err != nil {
		return err
	}
	if err := s.f.SetCellValue(s.name, start, label); err != nil {
		return err
	}
	if err := s.f.SetCellStyle(s.name, start, endLabel, s.st.header); err != nil {
		return err
	}
	totalCell, err := excelize.CoordinatesToCellName(cols, s.row)
	if err != nil {
		return err
	}
	if err := s.f.SetCellValue(s.name, totalCell, total); err != nil {
		return err
	}
	if err := s.f.SetCellStyle(s.name, totalCell, totalCell, style); err != nil {
		return err
	}
	s.row += 2
	return nil
}

func writeWorkbook(rep *Report, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	st, err := newStyles(f)
	if err != nil {
		return err
	}

	if err := writeSummarySheet(f, st, rep); err != nil {
		return err
	}
	for _, group := range rep.TagGroups {
		if err := writeTagSheet(f, st, rep, group); err != nil {
			return err
		}
	}
	if len(rep.Consumables) > 0 {
		if err := writeConsumablesSheet(f, st, rep); err != nil {
			return err
		}
	}
	if err := writeReplenishmentSheet(f, st, rep); err != nil {
		return err
	}

	// Drop the implicit default sheet; Summary leads the workbook.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	f.SetActiveSheet(0)
	return f.SaveAs(path)
}

func writeSummarySheet(f *excelize.File, st styles, rep *Report) error {
	sh, err := newSheet(f, "Summary", st, 11)
	if err != nil {
		return err
	}
	if err := sh.banner(fmt.Sprintf("EXIT SUMMARY - %s to %s", rep.From, rep.To)); err != nil {
		return err
	}
	headers := []string{"Date", "Classification", "Name", "Model", "Part Number",
		"Serial Number", "Tag", "Condition", "Origin", "Quantity", "Total"}
	if err := sh.writeRow(sh.headerRowAny(headers), st.header, nil); err != nil {
		return err
	}
	money := map[int]bool{11: true}
	for _, l := range rep.Summary {
		row := []any{l.Date.String(), string(l.Class), l.Name, l.Model, l.PartNumber,
			l.SerialNumber, l.Tag, string(l.Condition), l.Origin, l.Quantity, l.Total}
		if err := sh.writeRow(row, st.cell, money); err != nil {
			return err
		}
	}
	return sh.totalRow("TOTAL", rep.SummaryTotal, st.total)
}

func writeTagSheet(f *excelize.File, st styles, rep *Report, group TagGroup) error {
	sh, err := newSheet(f, sanitizeSheetName(group.Tag), st, 15)
	if err != nil {
		return err
	}
	if err := sh.banner(fmt.Sprintf("EXITS %s - %s to %s", group.Tag, rep.From, rep.To)); err != nil {
		return err
	}
	headers := []string{"Date", "Name", "Model", "Part Number", "Serial Number",
		"Classification", "Condition", "Origin", "Badge Name", "Plate", "Notes",
		"Quantity", "Unit Value", "Freight/Unit", "Total"}
	if err := sh.writeRow(sh.headerRowAny(headers), st.header, nil); err != nil {
		return err
	}
	money := map[int]bool{13: true, 14: true, 15: true}
	for _, l := range group.Lines {
		row := []any{l.Date.String(), l.Name, l.Model, l.PartNumber, l.SerialNumber,
			string(l.Class), string(l.Condition), l.Origin, l.BadgeName, l.Plate, l.Notes,
			l.Quantity, l.UnitValue, l.FreightPerUnit, l.Total}
		if err := sh.writeRow(row, st.cell, money); err != nil {
			return err
		}
	}
	return sh.totalRow("TOTAL", group.Subtotal, st.total)
}

func writeConsumablesSheet(f *excelize.File, st styles, rep *Report) error {
	sh, err := newSheet(f, "Consumables", st, 10)
	if err != nil {
		return err
	}
	if err := sh.banner(fmt.Sprintf("CONSUMABLES - %s to %s", rep.From, rep.To)); err != nil {
		return err
	}
	headers := []string{"Date", "Name", "Model", "Classification", "Condition",
		"Origin", "Quantity", "Unit Value", "Freight/Unit", "Total"}
	if err := sh.writeRow(sh.headerRowAny(headers), st.header, nil); err != nil {
		return err
	}
	money := map[int]bool{8: true, 9: true, 10: true}
	for _, l := range rep.Consumables {
		row := []any{l.Date.String(), l.Name, l.Model, string(l.Class), string(l.Condition),
			l.Origin, l.Quantity, l.UnitValue, l.FreightPerUnit, l.Total}
		if err := sh.writeRow(row, st.cell, money); err != nil {
			return err
		}
	}
	return sh.totalRow("TOTAL", rep.ConsumablesTotal, st.total)
}

func writeReplenishmentSheet(f *excelize.File, st styles, rep *Report) error {
	sh, err := newSheet(f, "Replenishment", st, 9)
	if err != nil {
		return err
	}
	if err := sh.banner(fmt.Sprintf("PURCHASE REPLENISHMENT ESTIMATE - %s to %s", rep.From, rep.To)); err != nil {
		return err
	}
	headers := []string{"Name", "Model", "Part Number", "Classification",
		"Quantity", "Unit Value", "Freight/Unit", "Total", "Origin"}
	if err := sh.writeRow(sh.headerRowAny(headers), st.header, nil); err != nil {
		return err
	}
	money := map[int]bool{6: true, 7: true, 8: true}
	for _, cls := range rep.Replenishment {
		subHead := []any{fmt.Sprintf("Classification: %s", cls.Class)}
		if err := sh.writeRow(subHead, st.subHead, nil); err != nil {
			return err
		}
		for _, item := range cls.Items {
			row := []any{item.Name, item.Model, item.PartNumber, string(cls.Class),
				item.Quantity, item.UnitValue, item.FreightPerUnit, item.Total, item.Origin}
			if err := sh.writeRow(row, st.cell, money); err != nil {
				return err
			}
		}
		if err := sh.totalRow(fmt.Sprintf("Total %s", cls.Class), cls.Subtotal, st.total); err != nil {
			return err
		}
	}
	if err := sh.totalRow("ESTIMATED GRAND TOTAL", rep.ReplenishmentTotal, st.grandTot); err != nil {
		return err
	}
	note := []any{"* Values may vary by supplier and purchase date"}
	return sh.writeRow(note, st.cell, nil)
}
