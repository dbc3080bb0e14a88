package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"ntraining/backend/internal/dto"
	"ntraining/backend/internal/model"
	"ntraining/backend/internal/repository"
	pkgerrors "ntraining/backend/pkg/errors"
)

// ── Enrollment errors ──

var (
	ErrNotEnrolled            = errors.New("learner is not enrolled in course")
	ErrCompletionRequiresQuiz = errors.New("course is completed by passing its quiz")
)

// EnrollmentService enrollment and mandate tracker.
type EnrollmentService interface {
	Assign(ctx context.Context, req *dto.AssignRequest, callerID string) (*dto.EnrollmentResponse, error)
	// Revoke withdraws access. An empty organization id revokes the
	// learner's enrollments in the course for every organization.
	Revoke(ctx context.Context, req *dto.RevokeEnrollmentRequest, callerID string) error
	IsEligible(ctx context.Context, userID, quizID string) (bool, error)
	HasCourseAccess(ctx context.Context, userID, courseID string) (bool, error)
	AutoEnrollMember(ctx context.Context, userID, orgID, callerID string) (*dto.AutoEnrollResponse, error)
	ListForUser(ctx context.Context, userID string) ([]dto.EnrollmentResponse, error)
	DeadlineCalendar(ctx context.Context, userID string) ([]byte, error)
	CompleteCourse(ctx context.Context, userID, courseID string) (*dto.CertificateResponse, error)
}

type enrollmentService struct {
	repo   *repository.Repository
	certs  CertificateService
	logger *zap.Logger
	now    func() time.Time
}

// NewEnrollmentService creates an EnrollmentService.
func NewEnrollmentService(repo *repository.Repository, certs CertificateService, logger *zap.Logger, opts ...Option) EnrollmentService {
	o := buildOptions(opts)
	return &enrollmentService{repo: repo, certs: certs, logger: logger, now: o.now}
}

// ────────────────────── Assign ──────────────────────

// Assign is all or nothing: the seat and the enrollment row are written in
// one transaction. Assigning an enrollment that already grants access is a
// no-op success.
func (s *enrollmentService) Assign(ctx context.Context, req *dto.AssignRequest, callerID string) (*dto.EnrollmentResponse, error) {
	if _, err := s.repo.Catalog.GetUser(ctx, req.UserID); err != nil {
		return nil, s.lookupErr("user", err)
	}
	if _, err := s.repo.Catalog.GetCourse(ctx, req.CourseID); err != nil {
		return nil, s.lookupErr("course", err)
	}
	if _, err := s.repo.Catalog.GetOrganization(ctx, req.OrganizationID); err != nil {
		return nil, s.lookupErr("organization", err)
	}

	for i := 0; i < maxConflictRetries; i++ {
		var (
			result  *model.Enrollment
			created bool
		)
		err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			existing, err := tx.Enrollment.Get(ctx, req.UserID, req.CourseID, req.OrganizationID)
			if err != nil && !repository.IsNotFound(err) {
				return storageErr(err)
			}
			if existing != nil && existing.HasAccess() {
				result = existing
				return nil
			}

			grant, err := tx.LicenseGrant.GetByOrgCourse(ctx, req.OrganizationID, req.CourseID)
			if err != nil && !repository.IsNotFound(err) {
				return storageErr(err)
			}

			e := existing
			if e == nil {
				e = &model.Enrollment{
					UserID:         req.UserID,
					CourseID:       req.CourseID,
					OrganizationID: req.OrganizationID,
				}
				e.Version = 1
				e.CreatedBy = &callerID
			}
			e.GrantedVia = model.GrantedViaDirect
			e.SeatHeld = false
			e.Deadline = req.Deadline
			e.IsMandatory = grant != nil && grant.IsMandatory
			if req.IsMandatory != nil {
				e.IsMandatory = *req.IsMandatory
			}
			e.UpdatedBy = &callerID

			if req.ViaLicense {
				if grant == nil {
					return ErrNotFound
				}
				if !grant.IsValidAt(s.now()) {
					return ErrAccessExpired
				}
				if err := consumeSeat(ctx, tx, req.OrganizationID, req.CourseID); err != nil {
					return err
				}
				e.GrantedVia = model.GrantedViaLicense
				e.SeatHeld = true
			}

			if existing == nil {
				e.Status = model.EnrollmentActive
				if err := tx.Enrollment.Create(ctx, e); err != nil {
					return err
				}
			} else if err := tx.Enrollment.Reactivate(ctx, e); err != nil {
				return err
			}
			result = e
			created = true
			return nil
		})

		switch {
		case err == nil:
			if created {
				s.logger.Info("course assigned",
					zap.String("user_id", req.UserID),
					zap.String("course_id", req.CourseID),
					zap.String("organization_id", req.OrganizationID),
					zap.String("granted_via", string(result.GrantedVia)),
				)
			}
			return toEnrollmentResponse(result, s.now()), nil
		case repository.IsDuplicateKey(err), errors.Is(err, pkgerrors.ErrOptimisticLock):
			// a concurrent assign or revoke touched the row; start over
			continue
		case errors.Is(err, ErrStorage):
			s.logger.Error("assign course failed", zap.Error(err))
			return nil, err
		case isDomainErr(err):
			return nil, err
		default:
			s.logger.Error("assign course failed", zap.Error(err))
			return nil, storageErr(err)
		}
	}
	return nil, errContention("assign")
}

// ────────────────────── Revoke ──────────────────────

func (s *enrollmentService) Revoke(ctx context.Context, req *dto.RevokeEnrollmentRequest, callerID string) error {
	var targets []model.Enrollment
	if req.OrganizationID != "" {
		e, err := s.repo.Enrollment.Get(ctx, req.UserID, req.CourseID, req.OrganizationID)
		if err != nil {
			return s.lookupErr("enrollment", err)
		}
		targets = append(targets, *e)
	} else {
		list, err := s.repo.Enrollment.ListByUserCourse(ctx, req.UserID, req.CourseID)
		if err != nil {
			s.logger.Error("list enrollments failed", zap.Error(err))
			return storageErr(err)
		}
		if len(list) == 0 {
			return ErrNotFound
		}
		targets = list
	}

	for i := range targets {
		if err := s.revokeOne(ctx, &targets[i], callerID); err != nil {
			return err
		}
	}
	return nil
}

// revokeOne marks one enrollment revoked and, when it held a seat, returns
// the seat in the same transaction. The held flag is cleared by the same
// conditional write that revokes, so only one caller ever releases.
func (s *enrollmentService) revokeOne(ctx context.Context, target *model.Enrollment, callerID string) error {
	for i := 0; i < maxConflictRetries; i++ {
		var released bool
		err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			e, err := tx.Enrollment.Get(ctx, target.UserID, target.CourseID, target.OrganizationID)
			if err != nil {
				if repository.IsNotFound(err) {
					return ErrNotFound
				}
				return storageErr(err)
			}
			if e.Status == model.EnrollmentRevoked {
				return nil
			}

			held := e.SeatHeld
			if err := tx.Enrollment.MarkRevoked(ctx, e, s.now(), callerID); err != nil {
				return err
			}
			if held {
				ok, err := tx.LicenseGrant.ReleaseSeat(ctx, e.OrganizationID, e.CourseID)
				if err != nil {
					return storageErr(err)
				}
				released = ok
			}
			return nil
		})

		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			continue
		}
		if err != nil {
			if errors.Is(err, ErrStorage) {
				s.logger.Error("revoke enrollment failed", zap.Error(err))
			}
			return err
		}
		s.logger.Info("enrollment revoked",
			zap.String("user_id", target.UserID),
			zap.String("course_id", target.CourseID),
			zap.String("organization_id", target.OrganizationID),
			zap.Bool("seat_released", released),
		)
		return nil
	}
	return errContention("revoke")
}

// ────────────────────── Eligibility ──────────────────────

func (s *enrollmentService) IsEligible(ctx context.Context, userID, quizID string) (bool, error) {
	quiz, err := s.repo.Quiz.GetByID(ctx, quizID)
	if err != nil {
		return false, s.lookupErr("quiz", err)
	}
	return s.HasCourseAccess(ctx, userID, quiz.CourseID)
}

// HasCourseAccess is true when some enrollment of the user in the course
// still grants access. Grant validity is checked live on every call: an
// expired or revoked grant removes access even though the enrollment row
// still reads active.
func (s *enrollmentService) HasCourseAccess(ctx context.Context, userID, courseID string) (bool, error) {
	_, ok, err := s.accessGrant(ctx, userID, courseID)
	if err != nil {
		s.logger.Error("check course access failed", zap.Error(err))
		return false, err
	}
	return ok, nil
}

// ────────────────────── AutoEnrollMember ──────────────────────

// AutoEnrollMember applies every auto-enroll grant of the organization to a
// new member. Grants that are full or not currently valid are reported, not
// treated as failures.
func (s *enrollmentService) AutoEnrollMember(ctx context.Context, userID, orgID, callerID string) (*dto.AutoEnrollResponse, error) {
	grants, err := s.repo.LicenseGrant.ListAutoEnroll(ctx, orgID)
	if err != nil {
		s.logger.Error("list auto-enroll grants failed", zap.Error(err))
		return nil, storageErr(err)
	}

	resp := &dto.AutoEnrollResponse{
		Enrolled: []dto.EnrollmentResponse{},
		Skipped:  []dto.AutoEnrollSkip{},
	}
	now := s.now()
	for _, g := range grants {
		if !g.IsValidAt(now) {
			resp.Skipped = append(resp.Skipped, dto.AutoEnrollSkip{CourseID: g.CourseID, Reason: "access_expired"})
			continue
		}
		e, err := s.Assign(ctx, &dto.AssignRequest{
			UserID:         userID,
			CourseID:       g.CourseID,
			OrganizationID: orgID,
			ViaLicense:     true,
		}, callerID)
		switch {
		case err == nil:
			resp.Enrolled = append(resp.Enrolled, *e)
		case errors.Is(err, ErrCapacityExceeded):
			resp.Skipped = append(resp.Skipped, dto.AutoEnrollSkip{CourseID: g.CourseID, Reason: "capacity_exceeded"})
		case errors.Is(err, ErrAccessExpired):
			resp.Skipped = append(resp.Skipped, dto.AutoEnrollSkip{CourseID: g.CourseID, Reason: "access_expired"})
		default:
			return nil, err
		}
	}
	return resp, nil
}

// ────────────────────── Learner views ──────────────────────

func (s *enrollmentService) ListForUser(ctx context.Context, userID string) ([]dto.EnrollmentResponse, error) {
	list, err := s.repo.Enrollment.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("list enrollments failed", zap.Error(err))
		return nil, storageErr(err)
	}
	now := s.now()
	result := make([]dto.EnrollmentResponse, 0, len(list))
	for i := range list {
		result = append(result, *toEnrollmentResponse(&list[i], now))
	}
	return result, nil
}

func (s *enrollmentService) DeadlineCalendar(ctx context.Context, userID string) ([]byte, error) {
	list, err := s.repo.Enrollment.ListMandatoryByUser(ctx, userID)
	if err != nil {
		s.logger.Error("list mandatory enrollments failed", zap.Error(err))
		return nil, storageErr(err)
	}
	return BuildDeadlineCalendar(list, s.now()), nil
}

// ────────────────────── CompleteCourse ──────────────────────

// CompleteCourse records course-progress completion. It only applies to
// courses without a quiz; quiz courses complete through a passing attempt.
func (s *enrollmentService) CompleteCourse(ctx context.Context, userID, courseID string) (*dto.CertificateResponse, error) {
	quizzes, err := s.repo.Quiz.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("list quizzes failed", zap.Error(err))
		return nil, storageErr(err)
	}
	if len(quizzes) > 0 {
		return nil, ErrCompletionRequiresQuiz
	}

	grant, hasAccess, err := s.accessGrant(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if !hasAccess {
		return nil, ErrNotEnrolled
	}

	if _, err := s.repo.Enrollment.MarkCompleted(ctx, userID, courseID, s.now()); err != nil {
		s.logger.Error("mark enrollment completed failed", zap.Error(err))
		return nil, storageErr(err)
	}

	if grant != nil && !grant.AllowCertificate {
		return nil, nil
	}
	src := SourceEvent{Type: SourceCourseCompletion}
	if grant != nil {
		src.OrganizationID = &grant.OrganizationID
	}
	return s.certs.IssueIfQualified(ctx, userID, courseID, src)
}

// accessGrant finds the currently valid grant backing the user's access to
// the course. grant is nil for direct enrollments without an organization
// grant.
func (s *enrollmentService) accessGrant(ctx context.Context, userID, courseID string) (*model.LicenseGrant, bool, error) {
	now := s.now()
	grant, _, ok, err := backingGrant(ctx, s.repo, userID, courseID, func(g *model.LicenseGrant) bool {
		return g.IsValidAt(now)
	})
	if err != nil {
		return nil, false, storageErr(err)
	}
	return grant, ok, nil
}

// backingGrant walks the user's enrollments in the course that still hold
// access and returns the first one whose grant satisfies accept, together
// with that enrollment's organization. A direct enrollment without a grant
// matches with a nil grant; a license-backed enrollment whose grant is gone
// never matches. Errors are returned unwrapped.
func backingGrant(
	ctx context.Context,
	repo *repository.Repository,
	userID, courseID string,
	accept func(*model.LicenseGrant) bool,
) (*model.LicenseGrant, *string, bool, error) {
	list, err := repo.Enrollment.ListByUserCourse(ctx, userID, courseID)
	if err != nil {
		return nil, nil, false, err
	}
	for i := range list {
		e := &list[i]
		if !e.HasAccess() {
			continue
		}
		grant, err := repo.LicenseGrant.GetByOrgCourse(ctx, e.OrganizationID, courseID)
		if err != nil {
			if !repository.IsNotFound(err) {
				return nil, nil, false, err
			}
			if e.GrantedVia != model.GrantedViaLicense {
				orgID := e.OrganizationID
				return nil, &orgID, true, nil
			}
			continue
		}
		if accept(grant) {
			return grant, &grant.OrganizationID, true, nil
		}
	}
	return nil, nil, false, nil
}

// ── helpers ──

func (s *enrollmentService) lookupErr(what string, err error) error {
	if repository.IsNotFound(err) {
		return ErrNotFound
	}
	s.logger.Error("load "+what+" failed", zap.Error(err))
	return storageErr(err)
}

func toEnrollmentResponse(e *model.Enrollment, now time.Time) *dto.EnrollmentResponse {
	resp := &dto.EnrollmentResponse{
		ID:             e.EnrollmentID,
		UserID:         e.UserID,
		CourseID:       e.CourseID,
		OrganizationID: e.OrganizationID,
		GrantedVia:     string(e.GrantedVia),
		IsMandatory:    e.IsMandatory,
		Deadline:       formatTimePtr(e.Deadline),
		Overdue:        isOverdue(e, now),
		Status:         string(e.Status),
		CompletedAt:    formatTimePtr(e.CompletedAt),
		CreatedAt:      formatTime(e.CreatedAt),
	}
	if e.Course != nil {
		resp.CourseTitle = e.Course.Title
	}
	return resp
}

func isOverdue(e *model.Enrollment, now time.Time) bool {
	return e.IsMandatory &&
		e.Status == model.EnrollmentActive &&
		e.Deadline != nil &&
		now.After(*e.Deadline)
}
