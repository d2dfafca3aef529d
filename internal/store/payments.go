package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"dormitory-backend/internal/billing"
	"dormitory-backend/internal/model"
)

func (s *gormStore) ListPaymentAccounts(ctx context.Context, scope Scope, filter StudentFilter) ([]PaymentAccount, error) {
	db := s.db.WithContext(ctx)

	offset, limit := filter.pagination()
	var students []model.Student
	if err := s.studentQuery(db, scope, filter).
		Order("last_name ASC, first_name ASC, id ASC").
		Offset(offset).Limit(limit).
		Find(&students).Error; err != nil {
		return nil, fmt.Errorf("failed to list payment accounts: %w", err)
	}
	if len(students) == 0 {
		return []PaymentAccount{}, nil
	}

	ids := make([]int64, len(students))
	for i, st := range students {
		ids[i] = st.ID
	}
	var bookings []model.Booking
	if err := db.Where("student_id IN ? AND status = ?", ids, model.BookingActive).
		Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("failed to load active bookings: %w", err)
	}
	byStudent := make(map[int64]model.Booking, len(bookings))
	for _, b := range bookings {
		byStudent[b.StudentID] = b
	}

	accounts := make([]PaymentAccount, 0, len(students))
	for _, st := range students {
		var b *model.Booking
		if found, ok := byStudent[st.ID]; ok {
			b = &found
		}
		accounts = append(accounts, account(st, b))
	}
	return accounts, nil
}

func account(st model.Student, b *model.Booking) PaymentAccount {
	acc := PaymentAccount{Student: st}
	if b != nil {
		id := b.ID
		acc.BookingID = &id
		acc.AmountDue = b.TotalFee
	}
	acc.Balance = balance(acc.AmountDue, st.AmountPaid)
	return acc
}

func (s *gormStore) GetPaymentAccount(ctx context.Context, scope Scope, studentID int64) (*PaymentAccount, error) {
	db := s.db.WithContext(ctx)
	st, err := getStudent(db, scope, studentID)
	if err != nil {
		return nil, err
	}
	b, err := activeBooking(db, st.ID)
	if err != nil {
		return nil, err
	}
	acc := account(*st, b)
	return &acc, nil
}

// SetPaymentStatus applies an explicit status change from the cashier and
// records the resulting snapshot.
func (s *gormStore) SetPaymentStatus(ctx context.Context, scope Scope, studentID int64, req PaymentUpdate) (*PaymentAccount, error) {
	var acc PaymentAccount
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, b, err := paymentTarget(tx, scope, studentID)
		if err != nil {
			return err
		}
		due := account(*st, b).AmountDue

		paid, err := billing.Transition(due, req.Status, req.AmountPaid)
		if err != nil {
			return err
		}

		rec := &model.PaymentRecord{
			Amount:     billing.Round(paid - st.AmountPaid),
			Method:     req.Method,
			Notes:      req.Notes,
			RecordedBy: req.RecordedBy,
		}
		acc, err = s.applyPayment(tx, st, b, paid, req.Status, rec)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// RecordPayment adds money received to the student's amount paid and derives
// the new status from it.
func (s *gormStore) RecordPayment(ctx context.Context, scope Scope, studentID int64, req PaymentEntry) (*PaymentAccount, error) {
	if billing.Round(req.Amount) <= 0 {
		return nil, billing.ErrNegativeAmount
	}

	var acc PaymentAccount
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, b, err := paymentTarget(tx, scope, studentID)
		if err != nil {
			return err
		}
		if b == nil {
			return fmt.Errorf("student %d: %w", st.ID, ErrNoAmountDue)
		}

		paid := billing.Round(st.AmountPaid + req.Amount)
		rec := &model.PaymentRecord{
			Amount:     billing.Round(req.Amount),
			Method:     req.Method,
			Reference:  req.Reference,
			Notes:      req.Notes,
			RecordedBy: req.RecordedBy,
			PaidAt:     req.PaidAt,
		}
		acc, err = s.applyPayment(tx, st, b, paid, billing.StatusFor(paid, b.TotalFee), rec)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func paymentTarget(tx *gorm.DB, scope Scope, studentID int64) (*model.Student, *model.Booking, error) {
	st, err := getStudent(tx, scope, studentID)
	if err != nil {
		return nil, nil, err
	}
	b, err := activeBooking(tx, st.ID)
	if err != nil {
		return nil, nil, err
	}
	return st, b, nil
}

// applyPayment stores the new amount and status on the student and writes the
// history snapshot.
func (s *gormStore) applyPayment(tx *gorm.DB, st *model.Student, b *model.Booking, paid float64, status model.PaymentStatus, rec *model.PaymentRecord) (PaymentAccount, error) {
	if err := tx.Model(st).Updates(map[string]any{
		"amount_paid":    paid,
		"payment_status": status,
	}).Error; err != nil {
		return PaymentAccount{}, fmt.Errorf("failed to update payment of student %d: %w", st.ID, err)
	}
	st.AmountPaid, st.PaymentStatus = paid, status

	acc := account(*st, b)
	rec.StudentID = st.ID
	rec.BookingID = acc.BookingID
	rec.AmountPaid = paid
	rec.AmountDue = acc.AmountDue
	rec.PaymentStatus = status
	if rec.PaidAt.IsZero() {
		rec.PaidAt = s.now()
	}
	if err := tx.Create(rec).Error; err != nil {
		return PaymentAccount{}, fmt.Errorf("failed to record payment of student %d: %w", st.ID, err)
	}
	return acc, nil
}

func (s *gormStore) ListPayments(ctx context.Context, scope Scope, studentID *int64) ([]model.PaymentRecord, error) {
	q := s.db.WithContext(ctx).Scopes(scope.byStudent("student_id"))
	if studentID != nil {
		q = q.Where("student_id = ?", *studentID)
	}

	var records []model.PaymentRecord
	if err := q.Preload("Student", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Order("paid_at DESC, id DESC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return records, nil
}
