package service

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ntraining/backend/config"
	"ntraining/backend/internal/repository"
	pkgredis "ntraining/backend/pkg/redis"
)

// ── Shared errors ──

var (
	ErrNotFound  = errors.New("resource not found")
	ErrForbidden = errors.New("operation not permitted for caller")
	// ErrStorage wraps infrastructure failures; it is never a domain outcome.
	ErrStorage = errors.New("storage failure")
)

// maxConflictRetries bounds the re-read-and-retry loop around conditional
// writes. Contention between real users resolves in a handful of rounds.
const maxConflictRetries = 16

func storageErr(err error) error {
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

func errContention(op string) error {
	return fmt.Errorf("%w: %s: conflict retries exhausted", ErrStorage, op)
}

// Service aggregates every service.
type Service struct {
	License      LicenseService
	Enrollment   EnrollmentService
	Quiz         QuizService
	Attempt      AttemptService
	Certificate  CertificateService
	Verification VerificationService
	Export       ExportService
}

// NewService wires the services together. rdb may be nil, in which case the
// verification cache and issuance notifications are disabled.
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	rdb *pkgredis.Client,
	logger *zap.Logger,
) *Service {
	var (
		notifier IssuedNotifier = nopNotifier{}
		cache    VerificationCache
	)
	if rdb != nil {
		notifier = NewRedisNotifier(rdb, cfg.Certificate.IssuedChannel)
		cache = NewRedisVerificationCache(rdb, cfg.Certificate.VerifyCacheTTL)
	}

	certs := NewCertificateService(repo, notifier, cfg.Certificate.PublicBaseURL, logger)
	enrollments := NewEnrollmentService(repo, certs, logger)

	return &Service{
		License:      NewLicenseService(repo, logger),
		Enrollment:   enrollments,
		Quiz:         NewQuizService(repo, logger),
		Attempt:      NewAttemptService(repo, enrollments, certs, logger),
		Certificate:  certs,
		Verification: NewVerificationService(repo, cache, logger),
		Export:       NewExportService(repo, logger),
	}
}

// ── Options ──

// Option tweaks a service at construction time.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ── Formatting helpers ──

const timeLayout = time.RFC3339

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// isDomainErr reports whether err is one of the deterministic outcomes
// callers are expected to handle, as opposed to an infrastructure failure.
func isDomainErr(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrForbidden,
		ErrAlreadyGranted, ErrCapacityExceeded, ErrAccessExpired, ErrInvalidSeatCount, ErrInvalidValidity,
		ErrNotEnrolled, ErrCompletionRequiresQuiz,
		ErrNotEligible, ErrAttemptLimitReached, ErrInvalidQuiz, ErrAttemptAlreadyCompleted, ErrTimeExpired, ErrInvalidAnswer,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
