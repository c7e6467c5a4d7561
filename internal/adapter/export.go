package adapter

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/fhiba/2025Q2-G4/internal/domain/invoiceModel"
)

const exportSheet = "Invoices"

// ExportColumns is the column order of both export formats.
var ExportColumns = []string{invoiceModel.FieldDate, invoiceModel.FieldVendor, invoiceModel.FieldTotal, invoiceModel.FieldTaxID}

func exportRow(r invoiceModel.InvoiceRecord) []string {
	row := make([]string, len(ExportColumns))
	for i, col := range ExportColumns {
		row[i] = fieldText(r, col)
	}
	return row
}

// WriteCSV writes one header line and one line per record. Missing fields
// are empty cells.
func WriteCSV(w io.Writer, records []invoiceModel.InvoiceRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return err
	}
	for _, r := range SortedByKey(records) {
		if err := cw.Write(exportRow(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// BuildXLSX returns a workbook with the same rows as WriteCSV. Decimal totals
// are written as text so no digits are lost.
func BuildXLSX(records []invoiceModel.InvoiceRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if index, _ := f.GetSheetIndex(exportSheet); index == -1 {
		if _, err := f.NewSheet(exportSheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(exportSheet)
	f.SetActiveSheet(activeIndex)
	_ = f.DeleteSheet("Sheet1")

	for i, h := range ExportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return nil, err
		}
	}

	for rowIdx, r := range SortedByKey(records) {
		for colIdx, v := range exportRow(r) {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellStr(exportSheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	_ = f.SetColWidth(exportSheet, "A", "A", 14) // date
	_ = f.SetColWidth(exportSheet, "B", "B", 32) // vendor
	_ = f.SetColWidth(exportSheet, "C", "C", 16) // total
	_ = f.SetColWidth(exportSheet, "D", "D", 18) // taxId

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
