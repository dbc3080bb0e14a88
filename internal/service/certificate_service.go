package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"ntraining/backend/internal/dto"
	"ntraining/backend/internal/model"
	"ntraining/backend/internal/repository"
	pkgredis "ntraining/backend/pkg/redis"
)

// Source event types recorded on a certificate.
const (
	SourceQuizAttempt      = "quiz_attempt"
	SourceCourseCompletion = "course_completion"
)

// SourceEvent the completion that qualified the learner.
type SourceEvent struct {
	Type           string
	OrganizationID *string
	QuizID         string
	AttemptID      *string
	Percentage     *int
}

func (e SourceEvent) jsonMap() datatypes.JSONMap {
	m := datatypes.JSONMap{"type": e.Type}
	if e.QuizID != "" {
		m["quiz_id"] = e.QuizID
	}
	if e.AttemptID != nil {
		m["attempt_id"] = *e.AttemptID
	}
	if e.Percentage != nil {
		m["percentage"] = *e.Percentage
	}
	return m
}

// CertificateService certificate issuer.
type CertificateService interface {
	// IssueIfQualified returns the learner's certificate for the course,
	// minting it on first call. Repeated or concurrent calls never produce a
	// second certificate or code.
	IssueIfQualified(ctx context.Context, userID, courseID string, src SourceEvent) (*dto.CertificateResponse, error)
	ReadModel(ctx context.Context, certificateID, callerID string, privileged bool) (*dto.CertificateReadModel, error)
	ListForUser(ctx context.Context, userID string) ([]dto.CertificateResponse, error)
}

type certificateService struct {
	repo          *repository.Repository
	notifier      IssuedNotifier
	publicBaseURL string
	logger        *zap.Logger
	now           func() time.Time
	newCode       func() (string, error)
}

// NewCertificateService creates a CertificateService.
func NewCertificateService(repo *repository.Repository, notifier IssuedNotifier, publicBaseURL string, logger *zap.Logger, opts ...Option) CertificateService {
	o := buildOptions(opts)
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &certificateService{
		repo:          repo,
		notifier:      notifier,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
		now:           o.now,
		newCode:       GenerateVerificationCode,
	}
}

// ────────────────────── IssueIfQualified ──────────────────────

func (s *certificateService) IssueIfQualified(ctx context.Context, userID, courseID string, src SourceEvent) (*dto.CertificateResponse, error) {
	existing, err := s.repo.Certificate.GetByUserCourse(ctx, userID, courseID)
	if err == nil {
		return s.toResponse(existing), nil
	}
	if !repository.IsNotFound(err) {
		s.logger.Error("load certificate failed", zap.Error(err))
		return nil, storageErr(err)
	}

	for i := 0; i < maxConflictRetries; i++ {
		code, err := s.newCode()
		if err != nil {
			return nil, err
		}
		cert := &model.Certificate{
			UserID:           userID,
			CourseID:         courseID,
			OrganizationID:   src.OrganizationID,
			VerificationCode: code,
			IssuedAt:         s.now(),
			AttemptID:        src.AttemptID,
			Source:           src.jsonMap(),
		}

		err = s.repo.Certificate.Create(ctx, cert)
		if err == nil {
			s.logger.Info("certificate issued",
				zap.String("certificate_id", cert.CertificateID),
				zap.String("user_id", userID),
				zap.String("course_id", courseID),
			)
			s.publishIssued(ctx, cert)
			return s.toResponse(cert), nil
		}
		if !repository.IsDuplicateKey(err) {
			s.logger.Error("create certificate failed", zap.Error(err))
			return nil, storageErr(err)
		}

		// Either another issuer won the (user, course) race or the code
		// collided. The row decides which.
		existing, err := s.repo.Certificate.GetByUserCourse(ctx, userID, courseID)
		if err == nil {
			return s.toResponse(existing), nil
		}
		if !repository.IsNotFound(err) {
			return nil, storageErr(err)
		}
		s.logger.Warn("verification code collision, regenerating", zap.String("user_id", userID))
	}
	return nil, errContention("issue certificate")
}

func (s *certificateService) publishIssued(ctx context.Context, cert *model.Certificate) {
	event := dto.CertificateIssuedEvent{
		CertificateID:    cert.CertificateID,
		UserID:           cert.UserID,
		CourseID:         cert.CourseID,
		OrganizationID:   cert.OrganizationID,
		VerificationCode: cert.VerificationCode,
		IssuedAt:         formatTime(cert.IssuedAt),
	}
	if err := s.notifier.NotifyIssued(ctx, event); err != nil {
		s.logger.Warn("certificate issued notification failed",
			zap.String("certificate_id", cert.CertificateID),
			zap.Error(err),
		)
	}
}

// ────────────────────── Read side ──────────────────────

func (s *certificateService) ReadModel(ctx context.Context, certificateID, callerID string, privileged bool) (*dto.CertificateReadModel, error) {
	cert, err := s.repo.Certificate.GetByID(ctx, certificateID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		s.logger.Error("load certificate failed", zap.Error(err))
		return nil, storageErr(err)
	}
	if !privileged && cert.UserID != callerID {
		return nil, ErrForbidden
	}

	rm := &dto.CertificateReadModel{
		CertificateID:    cert.CertificateID,
		VerificationCode: cert.VerificationCode,
		VerifyURL:        s.verifyURL(cert.VerificationCode),
		IssuedAt:         formatTime(cert.IssuedAt),
		UserID:           cert.UserID,
		CourseID:         cert.CourseID,
		OrganizationID:   cert.OrganizationID,
		PDFLocation:      cert.PDFLocation,
		Source:           map[string]interface{}(cert.Source),
	}
	if cert.User != nil {
		rm.LearnerName = cert.User.Name
		rm.LearnerEmail = cert.User.Email
	}
	if cert.Course != nil {
		rm.CourseTitle = cert.Course.Title
	}
	if cert.Organization != nil {
		name := cert.Organization.Name
		rm.OrganizationName = &name
	}
	return rm, nil
}

func (s *certificateService) ListForUser(ctx context.Context, userID string) ([]dto.CertificateResponse, error) {
	certs, err := s.repo.Certificate.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("list certificates failed", zap.Error(err))
		return nil, storageErr(err)
	}
	result := make([]dto.CertificateResponse, 0, len(certs))
	for i := range certs {
		result = append(result, *s.toResponse(&certs[i]))
	}
	return result, nil
}

func (s *certificateService) verifyURL(code string) string {
	return s.publicBaseURL + "/" + code
}

func (s *certificateService) toResponse(c *model.Certificate) *dto.CertificateResponse {
	resp := &dto.CertificateResponse{
		ID:               c.CertificateID,
		CourseID:         c.CourseID,
		VerificationCode: c.VerificationCode,
		VerifyURL:        s.verifyURL(c.VerificationCode),
		IssuedAt:         formatTime(c.IssuedAt),
	}
	if c.Course != nil {
		resp.CourseTitle = c.Course.Title
	}
	return resp
}

// ────────────────────── Issued notifications ──────────────────────

// IssuedNotifier receives one event per newly minted certificate. Delivery
// is best effort; the issuer never fails because of it.
type IssuedNotifier interface {
	NotifyIssued(ctx context.Context, event dto.CertificateIssuedEvent) error
}

type nopNotifier struct{}

func (nopNotifier) NotifyIssued(context.Context, dto.CertificateIssuedEvent) error { return nil }

type redisNotifier struct {
	rdb     *pkgredis.Client
	channel string
}

// NewRedisNotifier publishes issued events as JSON on a Redis channel.
func NewRedisNotifier(rdb *pkgredis.Client, channel string) IssuedNotifier {
	return &redisNotifier{rdb: rdb, channel: channel}
}

func (n *redisNotifier) NotifyIssued(ctx context.Context, event dto.CertificateIssuedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if n.channel == "" {
		return errors.New("issued channel not configured")
	}
	return n.rdb.Publish(ctx, n.channel, payload)
}
