package repository

import (
	"context"

	"gorm.io/gorm"

	"ntraining/backend/internal/model"
)

// CertificateRepository certificate data access.
type CertificateRepository interface {
	Create(ctx context.Context, cert *model.Certificate) error
	GetByID(ctx context.Context, id string) (*model.Certificate, error)
	GetByUserCourse(ctx context.Context, userID, courseID string) (*model.Certificate, error)
	GetByCode(ctx context.Context, code string) (*model.Certificate, error)
	ListByUser(ctx context.Context, userID string) ([]model.Certificate, error)
}

type certificateRepo struct {
	db *gorm.DB
}

// NewCertificateRepo creates a CertificateRepository.
func NewCertificateRepo(db *gorm.DB) CertificateRepository {
	return &certificateRepo{db: db}
}

// Create inserts a certificate. Both (user_id, course_id) and
// verification_code are unique; the caller inspects IsDuplicateKey.
func (r *certificateRepo) Create(ctx context.Context, cert *model.Certificate) error {
	return r.db.WithContext(ctx).Omit("User", "Course", "Organization").Create(cert).Error
}

func (r *certificateRepo) GetByID(ctx context.Context, id string) (*model.Certificate, error) {
	var cert model.Certificate
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Course").
		Preload("Organization").
		Where("certificate_id = ?", id).
		First(&cert).Error
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *certificateRepo) GetByUserCourse(ctx context.Context, userID, courseID string) (*model.Certificate, error) {
	var cert model.Certificate
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&cert).Error
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

// GetByCode exact lookup by verification code, with the display relations.
func (r *certificateRepo) GetByCode(ctx context.Context, code string) (*model.Certificate, error) {
	var cert model.Certificate
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Course").
		Preload("Organization").
		Where("verification_code = ?", code).
		First(&cert).Error
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *certificateRepo) ListByUser(ctx context.Context, userID string) ([]model.Certificate, error) {
	var certs []model.Certificate
	err := r.db.WithContext(ctx).
		Preload("Course").
		Where("user_id = ?", userID).
		Order("issued_at DESC").
		Find(&certs).Error
	return certs, err
}
