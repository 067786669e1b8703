package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const summarySheet = "Summary"

var cellBorder = []excelize.Border{
	{Type: "left", Color: "#000000", Style: 1},
	{Type: "right", Color: "#000000", Style: 1},
	{Type: "top", Color: "#000000", Style: 1},
	{Type: "bottom", Color: "#000000", Style: 1},
}

// renderXLSX builds a workbook with a Summary sheet of report facts and one data sheet
// whose last row is the styled summary row.
func renderXLSX(env Envelope, l Layout) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename summary sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    cellBorder,
	})
	if err != nil {
		return nil, err
	}
	totalStyle, err := f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"#B4C7E7"}, Pattern: 1},
		Font:   &excelize.Font{Bold: true},
		Border: cellBorder,
	})
	if err != nil {
		return nil, err
	}
	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	if err := writeSummarySheet(f, env, l, labelStyle); err != nil {
		return nil, fmt.Errorf("summary sheet: %w", err)
	}

	sheet := sanitizeSheetName(l.SheetName)
	if _, err := f.NewSheet(sheet); err != nil {
		return nil, err
	}
	if err := writeTableSheet(f, sheet, l.Data, headerStyle, totalStyle); err != nil {
		return nil, fmt.Errorf("%s sheet: %w", sheet, err)
	}

	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummarySheet(f *excelize.File, env Envelope, l Layout, labelStyle int) error {
	rows := []Fact{
		{"Report", env.ReportTitle},
		{"Project", fmt.Sprintf("%s (%s)", env.ProjectName, env.ProjectKey)},
		{"Date Range", formatRange(env)},
	}
	rows = append(rows, l.Summary...)

	for i, fact := range rows {
		row := i + 1
		if err := f.SetCellValue(summarySheet, cellName(1, row), fact.Label); err != nil {
			return err
		}
		if err := f.SetCellValue(summarySheet, cellName(2, row), fact.Value); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", cellName(1, len(rows)), labelStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 26); err != nil {
		return err
	}
	return f.SetColWidth(summarySheet, "B", "B", 40)
}

func writeTableSheet(f *excelize.File, sheet string, t Table, headerStyle, totalStyle int) error {
	for col, header := range t.Columns {
		cell := cellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}
	if len(t.Columns) > 0 {
		last := cellName(len(t.Columns), 1)
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return err
		}
	}

	for i, cells := range t.Rows {
		row := i + 2
		for col, v := range cells {
			if err := f.SetCellValue(sheet, cellName(col+1, row), v); err != nil {
				return err
			}
		}
	}

	if n := len(t.Rows); n > 0 && len(t.Columns) > 0 {
		row := n + 1
		if err := f.SetCellStyle(sheet, cellName(1, row), cellName(len(t.Columns), row), totalStyle); err != nil {
			return err
		}
	}

	if len(t.Columns) > 0 {
		if err := f.SetColWidth(sheet, "A", "A", 24); err != nil {
			return err
		}
		if len(t.Columns) > 1 {
			if err := f.SetColWidth(sheet, "B", columnLetter(len(t.Columns)), 18); err != nil {
				return err
			}
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func cellName(col, row int) string {
	return fmt.Sprintf("%s%d", columnLetter(col), row)
}

func columnLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}

func sanitizeSheetName(name string) string {
	r := strings.NewReplacer("/", "-", "\\", "-", "?", "", "*", "", "[", "(", "]", ")", ":", "-")
	name = r.Replace(name)
	if name == "" || strings.EqualFold(name, summarySheet) {
		name = "Data"
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}
