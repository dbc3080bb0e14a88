package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"ntraining/backend/internal/model"
	pkgerrors "ntraining/backend/pkg/errors"
)

// LicenseGrantRepository license grant data access.
//
// Seat counters move only through ConsumeSeat / ReleaseSeat, which are single
// conditional UPDATE statements. No caller ever writes used_seats from a value
// it read earlier.
type LicenseGrantRepository interface {
	Create(ctx context.Context, grant *model.LicenseGrant) error
	GetByID(ctx context.Context, id string) (*model.LicenseGrant, error)
	GetByOrgCourse(ctx context.Context, orgID, courseID string) (*model.LicenseGrant, error)
	ListByOrganization(ctx context.Context, orgID string) ([]model.LicenseGrant, error)
	ListAutoEnroll(ctx context.Context, orgID string) ([]model.LicenseGrant, error)
	UpdateTerms(ctx context.Context, grant *model.LicenseGrant) error
	AddSeats(ctx context.Context, grantID string, delta int, updatedBy string) error
	ConsumeSeat(ctx context.Context, orgID, courseID string) (bool, error)
	ReleaseSeat(ctx context.Context, orgID, courseID string) (bool, error)
	Revoke(ctx context.Context, grantID string, at time.Time, revokedBy string) (bool, error)
}

type licenseGrantRepo struct {
	db *gorm.DB
}

// NewLicenseGrantRepo creates a LicenseGrantRepository.
func NewLicenseGrantRepo(db *gorm.DB) LicenseGrantRepository {
	return &licenseGrantRepo{db: db}
}

func (r *licenseGrantRepo) Create(ctx context.Context, grant *model.LicenseGrant) error {
	return r.db.WithContext(ctx).Create(grant).Error
}

func (r *licenseGrantRepo) GetByID(ctx context.Context, id string) (*model.LicenseGrant, error) {
	var grant model.LicenseGrant
	err := r.db.WithContext(ctx).
		Where("license_grant_id = ?", id).
		First(&grant).Error
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (r *licenseGrantRepo) GetByOrgCourse(ctx context.Context, orgID, courseID string) (*model.LicenseGrant, error) {
	var grant model.LicenseGrant
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND course_id = ?", orgID, courseID).
		First(&grant).Error
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (r *licenseGrantRepo) ListByOrganization(ctx context.Context, orgID string) ([]model.LicenseGrant, error) {
	var grants []model.LicenseGrant
	err := r.db.WithContext(ctx).
		Preload("Course").
		Where("organization_id = ?", orgID).
		Order("created_at ASC").
		Find(&grants).Error
	return grants, err
}

// ListAutoEnroll grants of the organization flagged for automatic enrollment
// that have not been revoked.
func (r *licenseGrantRepo) ListAutoEnroll(ctx context.Context, orgID string) ([]model.LicenseGrant, error) {
	var grants []model.LicenseGrant
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND auto_enroll = ? AND revoked_at IS NULL", orgID, true).
		Order("created_at ASC").
		Find(&grants).Error
	return grants, err
}

// UpdateTerms rewrites the administrative terms of a grant (optimistic lock).
// A licensed grant is never allowed to drop below the seats currently in
// use; that check runs against the live column inside the same statement.
func (r *licenseGrantRepo) UpdateTerms(ctx context.Context, grant *model.LicenseGrant) error {
	q := r.db.WithContext(ctx).
		Model(&model.LicenseGrant{}).
		Where("license_grant_id = ? AND version = ?", grant.LicenseGrantID, grant.Version)
	if grant.AccessType == model.AccessLicensed && grant.TotalSeats != nil {
		q = q.Where("used_seats <= ?", *grant.TotalSeats)
	}

	result := q.Updates(map[string]interface{}{
		"access_type":       grant.AccessType,
		"total_seats":       grant.TotalSeats,
		"valid_from":        grant.ValidFrom,
		"valid_until":       grant.ValidUntil,
		"is_mandatory":      grant.IsMandatory,
		"auto_enroll":       grant.AutoEnroll,
		"allow_certificate": grant.AllowCertificate,
		"updated_by":        grant.UpdatedBy,
		"version":           gorm.Expr("version + 1"),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	grant.Version++
	return nil
}

// AddSeats atomically grows the seat cap of a licensed grant.
func (r *licenseGrantRepo) AddSeats(ctx context.Context, grantID string, delta int, updatedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.LicenseGrant{}).
		Where("license_grant_id = ? AND access_type = ? AND revoked_at IS NULL", grantID, model.AccessLicensed).
		Updates(map[string]interface{}{
			"total_seats": gorm.Expr("total_seats + ?", delta),
			"updated_by":  updatedBy,
			"version":     gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ConsumeSeat takes one seat. For licensed grants the capacity check and the
// increment are the same statement, so concurrent callers can never push
// used_seats past total_seats. Unlimited and trial grants only count.
// Returns false when nothing was updated; the caller decides whether the
// grant is missing or full.
func (r *licenseGrantRepo) ConsumeSeat(ctx context.Context, orgID, courseID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.LicenseGrant{}).
		Where("organization_id = ? AND course_id = ? AND revoked_at IS NULL", orgID, courseID).
		Where("(access_type <> ? OR used_seats < total_seats)", model.AccessLicensed).
		UpdateColumn("used_seats", gorm.Expr("used_seats + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ReleaseSeat gives one seat back; used_seats never goes below zero.
func (r *licenseGrantRepo) ReleaseSeat(ctx context.Context, orgID, courseID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.LicenseGrant{}).
		Where("organization_id = ? AND course_id = ? AND used_seats > 0", orgID, courseID).
		UpdateColumn("used_seats", gorm.Expr("used_seats - 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Revoke marks the grant revoked. Returns false if it was already revoked.
func (r *licenseGrantRepo) Revoke(ctx context.Context, grantID string, at time.Time, revokedBy string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.LicenseGrant{}).
		Where("license_grant_id = ? AND revoked_at IS NULL", grantID).
		Updates(map[string]interface{}{
			"revoked_at": at,
			"updated_by": revokedBy,
			"version":    gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
