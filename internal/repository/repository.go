package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Repository aggregates every repository behind one handle.
type Repository struct {
	db *gorm.DB

	Catalog      CatalogRepository
	LicenseGrant LicenseGrantRepository
	Enrollment   EnrollmentRepository
	Quiz         QuizRepository
	Attempt      QuizAttemptRepository
	Certificate  CertificateRepository
}

// NewRepository builds the aggregate on top of db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:           db,
		Catalog:      NewCatalogRepo(db),
		LicenseGrant: NewLicenseGrantRepo(db),
		Enrollment:   NewEnrollmentRepo(db),
		Quiz:         NewQuizRepo(db),
		Attempt:      NewQuizAttemptRepo(db),
		Certificate:  NewCertificateRepo(db),
	}
}

// WithTx returns an aggregate whose repositories all run on tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// BeginTx opens a transaction; the caller commits or rolls back.
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	tx := r.db.WithContext(ctx).Begin()
	return tx, tx.Error
}

// Transaction runs fn inside one database transaction. Any error returned by
// fn rolls the transaction back. Without a backing connection (repositories
// assembled by hand in tests) fn runs directly on r.
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

// IsNotFound reports a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateKey reports a unique constraint violation. TranslateError maps
// most drivers to gorm.ErrDuplicatedKey; the string checks cover drivers
// that do not translate.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "SQLSTATE 23505")
}
