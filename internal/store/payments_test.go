package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dormitory-backend/internal/billing"
	"dormitory-backend/internal/model"
)

func ptr[T any](v T) *T { return &v }

func TestSetPaymentStatus_Transitions(t *testing.T) {
	f := newFixture(t)
	d := f.dormitory("North Hall", model.GenderPolicyMixed, 2000)
	r := f.room(d.ID, "101", 4)
	st := f.student(d.ID, "S-1", "female")
	f.book(st.ID, r.ID, 2) // 4000 due

	steps := []struct {
		name       string
		update     PaymentUpdate
		wantErr    error
		wantPaid   float64
		wantStatus model.PaymentStatus
	}{
		{"paid defaults to amount due", PaymentUpdate{Status: model.PaymentPaid}, nil, 4000, model.PaymentPaid},
		{"unpaid defaults to zero", PaymentUpdate{Status: model.PaymentUnpaid}, nil, 0, model.PaymentUnpaid},
		{"partial requires an amount", PaymentUpdate{Status: model.PaymentPartial}, billing.ErrAmountRequired, 0, model.PaymentUnpaid},
		{"partial within range", PaymentUpdate{Status: model.PaymentPartial, AmountPaid: ptr(1500.0)}, nil, 1500, model.PaymentPartial},
		{"partial at full amount", PaymentUpdate{Status: model.PaymentPartial, AmountPaid: ptr(4000.0)}, billing.ErrAmountOutOfRange, 1500, model.PaymentPartial},
		{"unknown status", PaymentUpdate{Status: "waived"}, billing.ErrInvalidStatus, 1500, model.PaymentPartial},
	}

	for _, step := range steps {
		acc, err := f.store.SetPaymentStatus(f.ctx, AllDormitories(), st.ID, step.update)
		if step.wantErr != nil {
			assert.ErrorIs(t, err, step.wantErr, step.name)
		} else {
			require.NoError(t, err, step.name)
			assert.Equal(t, 4000.0, acc.AmountDue, step.name)
		}

		current, err := f.store.GetPaymentAccount(f.ctx, AllDormitories(), st.ID)
		require.NoError(t, err)
		assert.Equal(t, step.wantPaid, current.Student.AmountPaid, step.name)
		assert.Equal(t, step.wantStatus, current.Student.PaymentStatus, step.name)
	}

	history, err := f.store.ListPayments(f.ctx, AllDormitories(), &st.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	// Newest first; each record keeps the delta and the resulting snapshot.
	amounts := map[model.PaymentStatus]float64{}
	for _, rec := range history {
		amounts[rec.PaymentStatus] = rec.Amount
		assert.Equal(t, 4000.0, rec.AmountDue)
	}
	assert.Equal(t, 4000.0, amounts[model.PaymentPaid])
	assert.Equal(t, -4000.0, amounts[model.PaymentUnpaid])
	assert.Equal(t, 1500.0, amounts[model.PaymentPartial])
}

func TestRecordPayment_DerivesStatus(t *testing.T) {
	f := newFixture(t)
	d := f.dormitory("North Hall", model.GenderPolicyMixed, 2000)
	r := f.room(d.ID, "101", 4)
	st := f.student(d.ID, "S-1", "female")
	idle := f.student(d.ID, "S-2", "male")

	_, err := f.store.RecordPayment(f.ctx, AllDormitories(), idle.ID, PaymentEntry{Amount: 100})
	assert.ErrorIs(t, err, ErrNoAmountDue)

	f.book(st.ID, r.ID, 1) // 2000 due

	_, err = f.store.RecordPayment(f.ctx, AllDormitories(), st.ID, PaymentEntry{Amount: 0})
	assert.ErrorIs(t, err, billing.ErrNegativeAmount)

	acc, err := f.store.RecordPayment(f.ctx, AllDormitories(), st.ID, PaymentEntry{Amount: 750.5, Method: "cash", Reference: "OR-1"})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPartial, acc.Student.PaymentStatus)
	assert.Equal(t, 1249.5, acc.Balance)

	acc, err = f.store.RecordPayment(f.ctx, AllDormitories(), st.ID, PaymentEntry{Amount: 1249.5, Method: "gcash"})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, acc.Student.PaymentStatus)
	assert.Equal(t, 2000.0, acc.Student.AmountPaid)
	assert.Equal(t, 0.0, acc.Balance)

	accounts, err := f.store.ListPaymentAccounts(f.ctx, AllDormitories(), StudentFilter{PaymentStatus: model.PaymentPaid})
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, st.ID, accounts[0].Student.ID)
	require.NotNil(t, accounts[0].BookingID)

	all, err := f.store.ListPayments(f.ctx, AllDormitories(), nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.NotNil(t, all[0].Student)
	assert.Equal(t, "S-1", all[0].Student.StudentNo)

	scoped, err := f.store.ListPayments(f.ctx, ForDormitory(d.ID+100), nil)
	require.NoError(t, err)
	assert.Empty(t, scoped)
}
