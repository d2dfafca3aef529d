package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"dormitory-backend/internal/model"
)

// SubmitApplication stores a pending intake application and the staff
// notification announcing it. The notification is returned for push delivery.
func (s *gormStore) SubmitApplication(ctx context.Context, app *model.Application) (*model.Notification, error) {
	var n *model.Notification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dorm, err := getDormitory(tx, AllDormitories(), app.DormitoryID)
		if err != nil {
			return err
		}
		if err := s.calc.CheckSemesters(app.SemesterCount); err != nil {
			return err
		}
		if app.PreferredRoomID != nil {
			if _, err := getRoom(tx, ForDormitory(dorm.ID), *app.PreferredRoomID); err != nil {
				return err
			}
		}

		app.StudentNo = strings.TrimSpace(app.StudentNo)
		var pending int64
		if err := tx.Model(&model.Application{}).
			Where("student_no = ? AND dormitory_id = ? AND status = ?", app.StudentNo, dorm.ID, model.ApplicationPending).
			Count(&pending).Error; err != nil {
			return fmt.Errorf("failed to check pending applications: %w", err)
		}
		if pending > 0 {
			return fmt.Errorf("student %s: %w", app.StudentNo, ErrDuplicateApplication)
		}

		app.Status = model.ApplicationPending
		app.ReviewedBy, app.ReviewedAt, app.StudentID, app.RejectReason = nil, nil, nil, ""
		if err := tx.Create(app).Error; err != nil {
			return fmt.Errorf("failed to create application: %w", err)
		}

		dormID := dorm.ID
		n = &model.Notification{
			DormitoryID: &dormID,
			Kind:        "application",
			Title:       "New application",
			Message:     fmt.Sprintf("%s %s applied to %s", app.FirstName, app.LastName, dorm.Name),
			Link:        fmt.Sprintf("/applications/%d", app.ID),
			CreatedAt:   s.now(),
		}
		if err := tx.Create(n).Error; err != nil {
			return fmt.Errorf("failed to create notification: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (s *gormStore) ListApplications(ctx context.Context, scope Scope, status model.ApplicationStatus) ([]model.Application, error) {
	q := s.db.WithContext(ctx).Scopes(scope.byColumn("dormitory_id"))
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var apps []model.Application
	if err := q.Preload("Dormitory").Order("created_at DESC, id DESC").Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, nil
}

func (s *gormStore) GetApplication(ctx context.Context, scope Scope, id int64) (*model.Application, error) {
	return getApplication(s.db.WithContext(ctx).Preload("Dormitory"), scope, id)
}

func getApplication(tx *gorm.DB, scope Scope, id int64) (*model.Application, error) {
	var app model.Application
	if err := tx.Scopes(scope.byColumn("dormitory_id")).First(&app, id).Error; err != nil {
		return nil, notFound(fmt.Sprintf("application %d", id), err)
	}
	return &app, nil
}

// review moves a pending application to status. The conditional update makes
// the transition happen at most once even if two reviewers race.
func (s *gormStore) review(tx *gorm.DB, scope Scope, id int64, status model.ApplicationStatus, updates map[string]any) (*model.Application, error) {
	app, err := getApplication(tx, scope, id)
	if err != nil {
		return nil, err
	}
	if app.Status != model.ApplicationPending {
		return nil, fmt.Errorf("application %d is %s: %w", app.ID, app.Status, ErrApplicationReviewed)
	}

	updates["status"] = status
	updates["reviewed_at"] = s.now()
	res := tx.Model(&model.Application{}).
		Where("id = ? AND status = ?", app.ID, model.ApplicationPending).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to review application %d: %w", app.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("application %d: %w", app.ID, ErrApplicationReviewed)
	}
	return app, nil
}

// ApproveApplication approves a pending application, creating or reusing the
// student record. When a room is requested (or preferred) the booking is made
// in the same transaction and a failed booking rolls the approval back.
func (s *gormStore) ApproveApplication(ctx context.Context, scope Scope, id int64, req Approval) (*model.Application, error) {
	var app *model.Application
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		app, err = s.review(tx, scope, id, model.ApplicationApproved, map[string]any{
			"reviewed_by": req.ReviewerID,
		})
		if err != nil {
			return err
		}

		st, err := s.admit(tx, scope, app)
		if err != nil {
			return err
		}
		if err := tx.Model(&model.Application{}).Where("id = ?", app.ID).
			Update("student_id", st.ID).Error; err != nil {
			return fmt.Errorf("failed to link application %d: %w", app.ID, err)
		}

		roomID := req.RoomID
		if roomID == nil {
			roomID = app.PreferredRoomID
		}
		if roomID != nil {
			if _, err := s.bookRoom(tx, scope, NewBooking{
				StudentID:     st.ID,
				RoomID:        *roomID,
				SemesterCount: app.SemesterCount,
				StartDate:     req.StartDate,
			}); err != nil {
				return err
			}
		}

		return tx.Preload("Dormitory").First(app, app.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// admit returns the student for an approved application. An existing record
// with the same student number is restored if archived and refreshed with the
// applicant's details; it only changes dormitory while it has no room. A
// scoped caller may not take over a student of another dormitory.
func (s *gormStore) admit(tx *gorm.DB, scope Scope, app *model.Application) (*model.Student, error) {
	var st model.Student
	err := tx.Unscoped().Where("student_no = ?", app.StudentNo).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		st = model.Student{
			DormitoryID:   app.DormitoryID,
			StudentNo:     app.StudentNo,
			FirstName:     app.FirstName,
			LastName:      app.LastName,
			Email:         app.Email,
			Phone:         app.Phone,
			Gender:        app.Gender,
			Course:        app.Course,
			YearLevel:     app.YearLevel,
			PaymentStatus: model.PaymentUnpaid,
			Presence:      model.PresenceIn,
		}
		if err := tx.Create(&st).Error; err != nil {
			return nil, duplicate("student", err)
		}
		return &st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up student %s: %w", app.StudentNo, err)
	}
	if !scope.Allows(st.DormitoryID) {
		return nil, fmt.Errorf("student %s belongs to another dormitory: %w", app.StudentNo, ErrOutOfScope)
	}

	updates := map[string]any{
		"first_name": app.FirstName,
		"last_name":  app.LastName,
		"email":      app.Email,
		"phone":      app.Phone,
		"gender":     app.Gender,
		"course":     app.Course,
		"year_level": app.YearLevel,
		"deleted_at": nil,
	}
	if st.RoomID == nil {
		updates["dormitory_id"] = app.DormitoryID
	}
	if err := tx.Unscoped().Model(&st).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update student %d: %w", st.ID, err)
	}
	if err := tx.First(&st, st.ID).Error; err != nil {
		return nil, notFound(fmt.Sprintf("student %d", st.ID), err)
	}
	return &st, nil
}

func (s *gormStore) RejectApplication(ctx context.Context, scope Scope, id int64, reviewerID int64, reason string) (*model.Application, error) {
	var app *model.Application
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		app, err = s.review(tx, scope, id, model.ApplicationRejected, map[string]any{
			"reviewed_by":   reviewerID,
			"reject_reason": strings.TrimSpace(reason),
		})
		if err != nil {
			return err
		}
		return tx.Preload("Dormitory").First(app, app.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

func (s *gormStore) ArchiveApplication(ctx context.Context, scope Scope, id int64) error {
	db := s.db.WithContext(ctx)
	app, err := getApplication(db, scope, id)
	if err != nil {
		return err
	}
	if err := db.Delete(app).Error; err != nil {
		return fmt.Errorf("failed to archive application %d: %w", app.ID, err)
	}
	return nil
}
