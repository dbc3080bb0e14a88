package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"ntraining/backend/internal/model"
	pkgerrors "ntraining/backend/pkg/errors"
)

// EnrollmentRepository enrollment data access.
type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *model.Enrollment) error
	Get(ctx context.Context, userID, courseID, orgID string) (*model.Enrollment, error)
	ListByUserCourse(ctx context.Context, userID, courseID string) ([]model.Enrollment, error)
	ListByUser(ctx context.Context, userID string) ([]model.Enrollment, error)
	ListMandatoryByUser(ctx context.Context, userID string) ([]model.Enrollment, error)
	Reactivate(ctx context.Context, enrollment *model.Enrollment) error
	MarkRevoked(ctx context.Context, enrollment *model.Enrollment, at time.Time, revokedBy string) error
	MarkCompleted(ctx context.Context, userID, courseID string, at time.Time) (int64, error)
}

type enrollmentRepo struct {
	db *gorm.DB
}

// NewEnrollmentRepo creates an EnrollmentRepository.
func NewEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

func (r *enrollmentRepo) Create(ctx context.Context, enrollment *model.Enrollment) error {
	return r.db.WithContext(ctx).Create(enrollment).Error
}

func (r *enrollmentRepo) Get(ctx context.Context, userID, courseID, orgID string) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ? AND organization_id = ?", userID, courseID, orgID).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListByUserCourse every enrollment the user holds for the course, across
// organizations.
func (r *enrollmentRepo) ListByUserCourse(ctx context.Context, userID, courseID string) ([]model.Enrollment, error) {
	var list []model.Enrollment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *enrollmentRepo) ListByUser(ctx context.Context, userID string) ([]model.Enrollment, error) {
	var list []model.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Course").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

// ListMandatoryByUser active mandatory enrollments that carry a deadline.
func (r *enrollmentRepo) ListMandatoryByUser(ctx context.Context, userID string) ([]model.Enrollment, error) {
	var list []model.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Course").
		Where("user_id = ? AND is_mandatory = ? AND status = ? AND deadline IS NOT NULL",
			userID, true, model.EnrollmentActive).
		Order("deadline ASC").
		Find(&list).Error
	return list, err
}

// Reactivate turns a revoked row back into an active one (optimistic lock).
func (r *enrollmentRepo) Reactivate(ctx context.Context, e *model.Enrollment) error {
	result := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("enrollment_id = ? AND version = ? AND status = ?", e.EnrollmentID, e.Version, model.EnrollmentRevoked).
		Updates(map[string]interface{}{
			"status":       model.EnrollmentActive,
			"granted_via":  e.GrantedVia,
			"is_mandatory": e.IsMandatory,
			"deadline":     e.Deadline,
			"seat_held":    e.SeatHeld,
			"revoked_at":   nil,
			"completed_at": nil,
			"updated_by":   e.UpdatedBy,
			"version":      gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	e.Status = model.EnrollmentActive
	e.RevokedAt = nil
	e.CompletedAt = nil
	e.Version++
	return nil
}

// MarkRevoked revokes the row if it still carries the version the caller
// read. seat_held is cleared in the same write so only one revoker can ever
// observe the held seat.
func (r *enrollmentRepo) MarkRevoked(ctx context.Context, e *model.Enrollment, at time.Time, revokedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("enrollment_id = ? AND version = ? AND status <> ?", e.EnrollmentID, e.Version, model.EnrollmentRevoked).
		Updates(map[string]interface{}{
			"status":     model.EnrollmentRevoked,
			"seat_held":  false,
			"revoked_at": at,
			"updated_by": revokedBy,
			"version":    gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	e.Status = model.EnrollmentRevoked
	e.SeatHeld = false
	e.RevokedAt = &at
	e.Version++
	return nil
}

// MarkCompleted moves every active enrollment of the user in the course to
// completed.
func (r *enrollmentRepo) MarkCompleted(ctx context.Context, userID, courseID string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, model.EnrollmentActive).
		Updates(map[string]interface{}{
			"status":       model.EnrollmentCompleted,
			"completed_at": at,
			"version":      gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}
