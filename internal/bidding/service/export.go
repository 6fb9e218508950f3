package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// 比价表导出的固定前导列
var comparisonExportHeaders = []string{"清单编码", "描述", "数量", "单位"}

// ExportCSV 导出比价表为CSV。缺标格子填N/A，
// 行项之后依次是小计、调整合计、调整后合计三行。
func (s *TabulationService) ExportCSV(ctx context.Context, rfpID string) ([]byte, string, error) {
	comparison, err := s.BuildComparison(ctx, rfpID)
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("%s_comparison.csv", comparison.RFP.RFPCode)
	return renderComparisonCSV(comparison), filename, nil
}

// renderComparisonCSV 渲染比价表。每个格子一律加双引号，
// 输出逐字节稳定，可直接做黄金文件比对。
// 单位折算/无法换算等说明不进CSV格子，留在Excel批注里。
func renderComparisonCSV(comparison *Comparison) []byte {
	var buf bytes.Buffer
	writeRow := func(fields []string) {
		for i, field := range fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('"')
			buf.WriteString(strings.ReplaceAll(field, `"`, `""`))
			buf.WriteByte('"')
		}
		buf.WriteByte('\n')
	}

	header := append([]string{}, comparisonExportHeaders...)
	for _, v := range comparison.Vendors {
		header = append(header, vendorLabel(v))
	}
	writeRow(header)

	for _, lineItem := range comparison.LineItems {
		row := []string{
			lineItem.SpecCode,
			lineItem.Description,
			lineItem.Quantity.String(),
			lineItem.Unit,
		}
		for _, v := range comparison.Vendors {
			line := comparison.Matrix[v.VendorID][lineItem.ID]
			if line.Missing {
				row = append(row, "N/A")
				continue
			}
			row = append(row, line.TotalPrice.StringFixed(2))
		}
		writeRow(row)
	}

	totalRows := []struct {
		label string
		pick  func(VendorTotals) string
	}{
		{"小计", func(t VendorTotals) string { return t.Subtotal.StringFixed(2) }},
		{"调整合计", func(t VendorTotals) string { return t.AdjustmentTotal.StringFixed(2) }},
		{"调整后合计", func(t VendorTotals) string { return t.AdjustedTotal.StringFixed(2) }},
	}
	for _, tr := range totalRows {
		row := []string{tr.label, "", "", ""}
		for _, v := range comparison.Vendors {
			row = append(row, tr.pick(comparison.Totals[v.VendorID]))
		}
		writeRow(row)
	}

	return buf.Bytes()
}

// ExportXLSX 导出比价表为Excel。结构与CSV一致，
// 另加调整项明细区和排名区，并给单位折算/缺口加批注列。
func (s *TabulationService) ExportXLSX(ctx context.Context, rfpID string) (*excelize.File, string, error) {
	comparison, err := s.BuildComparison(ctx, rfpID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	sheet := "比价表"
	f.SetSheetName("Sheet1", sheet)

	// 表头样式: 加粗
	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	// 写入表头
	for i, h := range comparisonExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}
	for i, v := range comparison.Vendors {
		col, _ := excelize.ColumnNumberToName(len(comparisonExportHeaders) + i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, vendorLabel(v))
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	// 写入数据行
	row := 2
	for _, lineItem := range comparison.LineItems {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), lineItem.SpecCode)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), lineItem.Description)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), lineItem.Quantity.InexactFloat64())
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), lineItem.Unit)
		for i, v := range comparison.Vendors {
			col, _ := excelize.ColumnNumberToName(len(comparisonExportHeaders) + i + 1)
			line := comparison.Matrix[v.VendorID][lineItem.ID]
			if line.Missing {
				f.SetCellValue(sheet, col+fmt.Sprint(row), "N/A")
				continue
			}
			f.SetCellValue(sheet, col+fmt.Sprint(row), line.TotalPrice.InexactFloat64())
			if line.Note != "" {
				comment := excelize.Comment{Cell: col + fmt.Sprint(row), Author: "sitepm"}
				comment.Paragraph = []excelize.RichTextRun{{Text: line.Note}}
				f.AddComment(sheet, comment)
			}
		}
		row++
	}

	// 合计区
	writeTotalRow := func(label string, pick func(VendorTotals) float64) {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), label)
		f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), boldStyle)
		for i, v := range comparison.Vendors {
			col, _ := excelize.ColumnNumberToName(len(comparisonExportHeaders) + i + 1)
			f.SetCellValue(sheet, col+fmt.Sprint(row), pick(comparison.Totals[v.VendorID]))
		}
		row++
	}
	writeTotalRow("小计", func(t VendorTotals) float64 { return t.Subtotal.InexactFloat64() })
	writeTotalRow("调整合计", func(t VendorTotals) float64 { return t.AdjustmentTotal.InexactFloat64() })
	writeTotalRow("调整后合计", func(t VendorTotals) float64 { return t.AdjustedTotal.InexactFloat64() })

	// 调整项明细区
	row++
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "调整项明细")
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), boldStyle)
	row++
	for _, v := range comparison.Vendors {
		for _, adj := range comparison.Adjustments[v.VendorID] {
			accepted := "否"
			if adj.Accepted {
				accepted = "是"
			}
			f.SetCellValue(sheet, fmt.Sprintf("A%d", row), vendorLabel(v))
			f.SetCellValue(sheet, fmt.Sprintf("B%d", row), adj.Type)
			f.SetCellValue(sheet, fmt.Sprintf("C%d", row), adj.Description)
			f.SetCellValue(sheet, fmt.Sprintf("D%d", row), adj.Amount.InexactFloat64())
			f.SetCellValue(sheet, fmt.Sprintf("E%d", row), "已接受: "+accepted)
			row++
		}
	}

	// 排名区
	row++
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "排名")
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), boldStyle)
	row++
	for _, entry := range comparison.Rankings {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), entry.Rank)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), entry.VendorID)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), entry.Total.InexactFloat64())
		row++
	}

	// 范围缺口区
	if len(comparison.ScopeGaps) > 0 {
		row++
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "范围缺口")
		f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), boldStyle)
		row++
		for _, gap := range comparison.ScopeGaps {
			f.SetCellValue(sheet, fmt.Sprintf("A%d", row), gap.VendorID)
			for i, code := range gap.SpecCodes {
				col, _ := excelize.ColumnNumberToName(i + 2)
				f.SetCellValue(sheet, col+fmt.Sprint(row), code)
			}
			row++
		}
	}

	filename := fmt.Sprintf("%s_comparison.xlsx", comparison.RFP.RFPCode)
	return f, filename, nil
}

// vendorLabel 供应商列标题，名称缺失时退回供应商ID
func vendorLabel(v VendorColumn) string {
	if v.VendorName != "" {
		return v.VendorName
	}
	return v.VendorID
}
