package interfaces

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	checkin "flightline-cloud/internal/checkin/domain"
)

// DraftHeader carries the booking context rendered above the line table.
type DraftHeader struct {
	Heading    string
	BookingID  string
	Aircraft   string
	Instructor string
	FlightType string
	Currency   string
}

// BuildDraftPDF renders a draft invoice as a PDF for review before approval.
func BuildDraftPDF(header DraftHeader, draft *checkin.DraftCalculation) ([]byte, error) {
	if draft == nil {
		return nil, errors.New("draft export: nil draft")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	heading := header.Heading
	if heading == "" {
		heading = "Flight Check-In Draft"
	}
	pdf.Cell(0, 8, heading)
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Booking: %s", header.BookingID))
	pdf.Ln(5)
	if header.Aircraft != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Aircraft: %s", header.Aircraft))
		pdf.Ln(5)
	}
	if header.Instructor != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Instructor: %s", header.Instructor))
		pdf.Ln(5)
	}
	if header.FlightType != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Flight type: %s", header.FlightType))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Basis: %s", draft.BillingBasis))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Billing hours: %.1f (dual %.1f, solo %.1f)", draft.BillingHours, draft.DualTime, draft.SoloTime))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Calculated: %s", draft.CalculatedAt.Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(70, 6, "Description", "1", 0, "L", false, 0, "")
	pdf.CellFormat(20, 6, "Qty", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Unit (excl)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Tax", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Total", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, line := range draft.Lines {
		pdf.CellFormat(70, 6, line.Description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%.1f", line.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", line.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%.2f", line.TaxAmount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", line.LineTotal), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.Cell(0, 6, fmt.Sprintf("Subtotal: %.2f", draft.Totals.Subtotal))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Tax: %.2f", draft.Totals.TaxTotal))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total (%s): %.2f", header.Currency, draft.Totals.TotalAmount))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildDraftXLSX renders a draft invoice as an XLSX workbook.
func BuildDraftXLSX(header DraftHeader, draft *checkin.DraftCalculation) ([]byte, error) {
	if draft == nil {
		return nil, errors.New("draft export: nil draft")
	}
	f := excelize.NewFile()
	summarySheet := "summary"
	linesSheet := "lines"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(linesSheet)

	_ = f.SetCellValue(summarySheet, "A1", header.Heading)
	_ = f.SetCellValue(summarySheet, "A3", "Booking")
	_ = f.SetCellValue(summarySheet, "B3", header.BookingID)
	_ = f.SetCellValue(summarySheet, "A4", "Aircraft")
	_ = f.SetCellValue(summarySheet, "B4", header.Aircraft)
	_ = f.SetCellValue(summarySheet, "A5", "Instructor")
	_ = f.SetCellValue(summarySheet, "B5", header.Instructor)
	_ = f.SetCellValue(summarySheet, "A6", "Flight type")
	_ = f.SetCellValue(summarySheet, "B6", header.FlightType)
	_ = f.SetCellValue(summarySheet, "A7", "Basis")
	_ = f.SetCellValue(summarySheet, "B7", string(draft.BillingBasis))
	_ = f.SetCellValue(summarySheet, "A8", "Billing hours")
	_ = f.SetCellValue(summarySheet, "B8", draft.BillingHours)
	_ = f.SetCellValue(summarySheet, "A9", "Subtotal")
	_ = f.SetCellValue(summarySheet, "B9", draft.Totals.Subtotal)
	_ = f.SetCellValue(summarySheet, "A10", "Tax")
	_ = f.SetCellValue(summarySheet, "B10", draft.Totals.TaxTotal)
	_ = f.SetCellValue(summarySheet, "A11", "Total")
	_ = f.SetCellValue(summarySheet, "B11", draft.Totals.TotalAmount)
	_ = f.SetCellValue(summarySheet, "A12", "Currency")
	_ = f.SetCellValue(summarySheet, "B12", header.Currency)

	_ = f.SetCellValue(linesSheet, "A1", "Description")
	_ = f.SetCellValue(linesSheet, "B1", "Quantity")
	_ = f.SetCellValue(linesSheet, "C1", "Unit price (excl)")
	_ = f.SetCellValue(linesSheet, "D1", "Tax rate")
	_ = f.SetCellValue(linesSheet, "E1", "Amount")
	_ = f.SetCellValue(linesSheet, "F1", "Tax")
	_ = f.SetCellValue(linesSheet, "G1", "Line total")
	_ = f.SetCellValue(linesSheet, "H1", "Notes")
	for i, line := range draft.Lines {
		row := i + 2
		_ = f.SetCellValue(linesSheet, fmt.Sprintf("A%d", row), line.Description)
		_ = f.SetCellValue(linesSheet, fmt.Sprintf("B%d", row), line.Quantity)
		_ = f.SetCellValue(linesSheet, fmt.Sprintf("C%d", row), line.UnitPrice)
		_ = f.SetCellValue(linesSheet, fmt.Sprintf("D%d", row), line.TaxRate)
		_ = f.SetCellValue(linesSheet, fmt.Sprintf("E%d", row), line.Amount)
		_ = f.SetCellValue(linesSheet, fmt.Sprintf("F%d", row), line.TaxAmount)
		_ = f.SetCellValue(linesSheet, fmt.Sprintf("G%d", row), line.LineTotal)
		_ = f.SetCellValue(linesSheet, fmt.Sprintf("H%d", row), line.Notes)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
