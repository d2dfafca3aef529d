// Package export renders cashier data as spreadsheets.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"dormitory-backend/internal/model"
)

const (
	paymentsSheet = "Payments"
	dateLayout    = "2006-01-02 15:04"
)

var paymentHeaders = []string{
	"Paid at", "Student no", "Student", "Amount", "Amount paid", "Amount due", "Status", "Method", "Reference", "Notes",
}

// PaymentsXLSX writes the payment history as an xlsx workbook. Records are
// expected to carry their Student.
func PaymentsXLSX(records []model.PaymentRecord) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(paymentsSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, fmt.Errorf("failed to create money style: %w", err)
	}

	for i, h := range paymentHeaders {
		f.SetCellValue(paymentsSheet, cell(i+1, 1), h)
	}
	f.SetCellStyle(paymentsSheet, "A1", cell(len(paymentHeaders), 1), headerStyle)
	f.SetColWidth(paymentsSheet, "A", "A", 18)
	f.SetColWidth(paymentsSheet, "B", "B", 14)
	f.SetColWidth(paymentsSheet, "C", "C", 26)
	f.SetColWidth(paymentsSheet, "D", "F", 14)
	f.SetColWidth(paymentsSheet, "G", "I", 12)
	f.SetColWidth(paymentsSheet, "J", "J", 40)

	for i, r := range records {
		row := i + 2
		studentNo, name := "", ""
		if r.Student != nil {
			studentNo, name = r.Student.StudentNo, r.Student.FullName()
		}
		values := []any{
			r.PaidAt.Format(dateLayout), studentNo, name,
			r.Amount, r.AmountPaid, r.AmountDue,
			string(r.PaymentStatus), r.Method, r.Reference, r.Notes,
		}
		for col, v := range values {
			f.SetCellValue(paymentsSheet, cell(col+1, row), v)
		}
	}
	if len(records) > 0 {
		f.SetCellStyle(paymentsSheet, cell(4, 2), cell(6, len(records)+1), moneyStyle)
	}
	f.SetPanes(paymentsSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
