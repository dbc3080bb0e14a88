// Package testutil builds throwaway databases for package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ntraining/backend/internal/model"
)

// NewSQLiteDB opens a private in-memory SQLite database with the full schema.
// Every call gets its own database; it is closed when the test ends.
//
// A single connection serializes statements, which is what SQLite does
// anyway; conditional updates and unique indexes behave as on PostgreSQL.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(
		&model.Organization{},
		&model.Course{},
		&model.User{},
		&model.LicenseGrant{},
		&model.Enrollment{},
		&model.Quiz{},
		&model.QuizQuestion{},
		&model.QuestionOption{},
		&model.QuizAttempt{},
		&model.QuizAnswer{},
		&model.Certificate{},
	)
	if err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}
