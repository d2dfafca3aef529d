package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"dormitory-backend/internal/model"
)

func TestPaymentsXLSX(t *testing.T) {
	paidAt := time.Date(2026, 2, 3, 9, 30, 0, 0, time.UTC)
	records := []model.PaymentRecord{
		{
			Student:       &model.Student{StudentNo: "2024-001", FirstName: "Lea", LastName: "Santos"},
			Amount:        1500,
			AmountPaid:    1500,
			AmountDue:     3000,
			PaymentStatus: model.PaymentPartial,
			Method:        "cash",
			Reference:     "OR-77",
			PaidAt:        paidAt,
		},
		{Amount: 500, AmountPaid: 2000, AmountDue: 3000, PaymentStatus: model.PaymentPartial, PaidAt: paidAt},
	}

	buf, err := PaymentsXLSX(records)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{paymentsSheet}, f.GetSheetList())

	rows, err := f.GetRows(paymentsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, paymentHeaders, rows[0])
	assert.Equal(t, "2026-02-03 09:30", rows[1][0])
	assert.Equal(t, "2024-001", rows[1][1])
	assert.Equal(t, "Lea Santos", rows[1][2])
	assert.Equal(t, "partial", rows[1][6])
	assert.Equal(t, "OR-77", rows[1][8])

	raw, err := f.GetCellValue(paymentsSheet, "D2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "1500", raw)

	assert.Equal(t, "", rows[2][1], "records without a student leave the columns empty")
}

func TestPaymentsXLSX_Empty(t *testing.T) {
	buf, err := PaymentsXLSX(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(paymentsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
