// Package export renders projected views as downloadable files: XLSX
// workbooks, PNG charts and HTML table fragments.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/garyellow/regionstat/internal/view"
)

// ContentTypeXLSX is the media type of SupplyWorkbook output.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	summarySheet = "요약"
	detailSheet  = "입주 단지"
)

// SupplyWorkbook builds one sheet per calendar year, a summary sheet when
// the yearly dataset was available, and a sheet listing every complex.
func SupplyWorkbook(v *view.Supply) (*excelize.File, error) {
	f := excelize.NewFile()
	wb := &workbook{f: f, styles: make(map[string]int)}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9D9D9"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	wb.header = header

	first := true
	for _, cal := range v.Calendars {
		if err := wb.calendarSheet(cal, first); err != nil {
			_ = f.Close()
			return nil, err
		}
		first = false
	}
	if v.Summary != nil {
		if err := wb.summarySheet(*v.Summary, first); err != nil {
			_ = f.Close()
			return nil, err
		}
		first = false
	}
	if err := wb.detailSheet(v.Calendars, first); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// WriteSupplyXLSX writes the supply workbook to w.
func WriteSupplyXLSX(w io.Writer, v *view.Supply) error {
	f, err := SupplyWorkbook(v)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

type workbook struct {
	f      *excelize.File
	header int
	styles map[string]int // grade colour -> fill style
}

// sheet creates a sheet, or renames the default one for the first sheet.
func (wb *workbook) sheet(name string, first bool) error {
	if first {
		return wb.f.SetSheetName("Sheet1", name)
	}
	_, err := wb.f.NewSheet(name)
	return err
}

func (wb *workbook) gradeStyle(color string) (int, error) {
	if id, ok := wb.styles[color]; ok {
		return id, nil
	}
	id, err := wb.f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return 0, err
	}
	wb.styles[color] = id
	return id, nil
}

func (wb *workbook) writeHeader(sheet string, headers []string) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := wb.f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := wb.f.SetCellStyle(sheet, "A1", last, wb.header); err != nil {
		return err
	}
	return wb.f.SetColWidth(sheet, "A", "A", 28)
}

func (wb *workbook) setRow(sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return wb.f.SetSheetRow(sheet, cell, &values)
}

func (wb *workbook) styleGrade(sheet string, col, row int, color string) error {
	style, err := wb.gradeStyle(color)
	if err != nil {
		return err
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return wb.f.SetCellStyle(sheet, cell, cell, style)
}

func (wb *workbook) calendarSheet(cal view.Calendar, first bool) error {
	name := cal.Title
	if err := wb.sheet(name, first); err != nil {
		return fmt.Errorf("calendar sheet %s: %w", name, err)
	}

	headers := []string{"지역", "적정 공급량"}
	for m := 1; m <= 12; m++ {
		headers = append(headers, fmt.Sprintf("%d월", m))
	}
	headers = append(headers, "합계", "등급")
	if err := wb.writeHeader(name, headers); err != nil {
		return fmt.Errorf("calendar sheet %s: %w", name, err)
	}

	for i, r := range cal.Rows {
		values := []any{r.Region, r.Optimal}
		for _, m := range r.Months {
			if m.Units == 0 {
				values = append(values, nil)
				continue
			}
			values = append(values, m.Units)
		}
		values = append(values, r.Total, r.Grade.Label)
		row := i + 2
		if err := wb.setRow(name, row, values); err != nil {
			return fmt.Errorf("calendar sheet %s: %w", name, err)
		}
		if err := wb.styleGrade(name, len(values), row, r.Grade.Color); err != nil {
			return fmt.Errorf("calendar sheet %s: %w", name, err)
		}
	}
	return nil
}

func (wb *workbook) summarySheet(s view.Summary, first bool) error {
	if err := wb.sheet(summarySheet, first); err != nil {
		return fmt.Errorf("summary sheet: %w", err)
	}
	headers := []string{"지역", "적정 공급량"}
	for _, y := range s.Years {
		headers = append(headers, fmt.Sprintf("%d년", y))
	}
	headers = append(headers, "평균", "등급")
	if err := wb.writeHeader(summarySheet, headers); err != nil {
		return fmt.Errorf("summary sheet: %w", err)
	}

	for i, r := range s.Rows {
		values := []any{r.Region, r.Optimal}
		for _, v := range r.Values {
			values = append(values, v)
		}
		values = append(values, r.Average, r.Grade.Label)
		row := i + 2
		if err := wb.setRow(summarySheet, row, values); err != nil {
			return fmt.Errorf("summary sheet: %w", err)
		}
		if err := wb.styleGrade(summarySheet, len(values), row, r.Grade.Color); err != nil {
			return fmt.Errorf("summary sheet: %w", err)
		}
	}
	return nil
}

// detailSheet lists every complex behind the calendar cells, one per row.
func (wb *workbook) detailSheet(calendars []view.Calendar, first bool) error {
	if err := wb.sheet(detailSheet, first); err != nil {
		return fmt.Errorf("detail sheet: %w", err)
	}
	if err := wb.writeHeader(detailSheet, []string{"지역", "연도", "월", "단지명", "세대수"}); err != nil {
		return fmt.Errorf("detail sheet: %w", err)
	}

	row := 2
	for _, cal := range calendars {
		for _, r := range cal.Rows {
			for m, cell := range r.Months {
				for _, d := range cell.Details {
					complexName, units := splitDetail(d)
					values := []any{r.Region, cal.Year, m + 1, complexName, units}
					if err := wb.setRow(detailSheet, row, values); err != nil {
						return fmt.Errorf("detail sheet: %w", err)
					}
					row++
				}
			}
		}
	}
	return nil
}

// splitDetail reverses the "단지명, N세대" calendar detail format.
func splitDetail(d string) (string, string) {
	i := strings.LastIndex(d, ", ")
	if i < 0 {
		return d, ""
	}
	return d[:i], d[i+2:]
}
