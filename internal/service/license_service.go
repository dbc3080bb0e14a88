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

// ── License ledger errors ──

var (
	ErrAlreadyGranted   = errors.New("course already granted to organization")
	ErrCapacityExceeded = errors.New("no seats left on license")
	ErrAccessExpired    = errors.New("license is not valid at this time")
	ErrInvalidSeatCount = errors.New("invalid seat count for access type")
	ErrInvalidValidity  = errors.New("valid_until must not be before valid_from")
)

// LicenseService license ledger.
type LicenseService interface {
	GrantAccess(ctx context.Context, req *dto.GrantAccessRequest, callerID string) (*dto.LicenseGrantResponse, error)
	UpdateAccess(ctx context.Context, orgID, courseID string, req *dto.UpdateAccessRequest, callerID string) (*dto.LicenseGrantResponse, error)
	AddSeats(ctx context.Context, orgID, courseID string, delta int, callerID string) (*dto.LicenseGrantResponse, error)
	RevokeAccess(ctx context.Context, orgID, courseID, callerID string) error
	ConsumeSeat(ctx context.Context, orgID, courseID string) error
	ReleaseSeat(ctx context.Context, orgID, courseID string) error
	IsValidNow(ctx context.Context, orgID, courseID string) (bool, error)
	ListUtilization(ctx context.Context, orgID string) ([]dto.LicenseGrantResponse, error)
}

type licenseService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewLicenseService creates a LicenseService.
func NewLicenseService(repo *repository.Repository, logger *zap.Logger, opts ...Option) LicenseService {
	o := buildOptions(opts)
	return &licenseService{repo: repo, logger: logger, now: o.now}
}

// ────────────────────── GrantAccess ──────────────────────

func (s *licenseService) GrantAccess(ctx context.Context, req *dto.GrantAccessRequest, callerID string) (*dto.LicenseGrantResponse, error) {
	now := s.now()

	grant := &model.LicenseGrant{
		OrganizationID:   req.OrganizationID,
		CourseID:         req.CourseID,
		AccessType:       model.AccessType(req.AccessType),
		TotalSeats:       req.TotalSeats,
		ValidFrom:        now,
		ValidUntil:       req.ValidUntil,
		IsMandatory:      req.IsMandatory,
		AutoEnroll:       req.AutoEnroll,
		AllowCertificate: true,
	}
	if req.ValidFrom != nil {
		grant.ValidFrom = *req.ValidFrom
	}
	if req.AllowCertificate != nil {
		grant.AllowCertificate = *req.AllowCertificate
	}
	if err := validateTerms(grant); err != nil {
		return nil, err
	}

	if _, err := s.repo.Catalog.GetOrganization(ctx, req.OrganizationID); err != nil {
		return nil, s.lookupErr("organization", err)
	}
	if _, err := s.repo.Catalog.GetCourse(ctx, req.CourseID); err != nil {
		return nil, s.lookupErr("course", err)
	}

	if _, err := s.repo.LicenseGrant.GetByOrgCourse(ctx, req.OrganizationID, req.CourseID); err == nil {
		return nil, ErrAlreadyGranted
	} else if !repository.IsNotFound(err) {
		s.logger.Error("load license grant failed", zap.Error(err))
		return nil, storageErr(err)
	}

	grant.Version = 1
	grant.CreatedBy = &callerID
	grant.UpdatedBy = &callerID
	if err := s.repo.LicenseGrant.Create(ctx, grant); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, ErrAlreadyGranted
		}
		s.logger.Error("create license grant failed", zap.Error(err))
		return nil, storageErr(err)
	}

	s.logger.Info("course access granted",
		zap.String("organization_id", grant.OrganizationID),
		zap.String("course_id", grant.CourseID),
		zap.String("access_type", string(grant.AccessType)),
	)
	return toLicenseGrantResponse(grant, now), nil
}

// ────────────────────── UpdateAccess ──────────────────────

func (s *licenseService) UpdateAccess(ctx context.Context, orgID, courseID string, req *dto.UpdateAccessRequest, callerID string) (*dto.LicenseGrantResponse, error) {
	for i := 0; i < maxConflictRetries; i++ {
		grant, err := s.getGrant(ctx, orgID, courseID)
		if err != nil {
			return nil, err
		}
		if grant.RevokedAt != nil {
			return nil, ErrAccessExpired
		}

		applyAccessPatch(grant, req)
		if err := validateTerms(grant); err != nil {
			return nil, err
		}
		if grant.AccessType == model.AccessLicensed && *grant.TotalSeats < grant.UsedSeats {
			return nil, ErrInvalidSeatCount
		}
		grant.UpdatedBy = &callerID

		err = s.repo.LicenseGrant.UpdateTerms(ctx, grant)
		if err == nil {
			return toLicenseGrantResponse(grant, s.now()), nil
		}
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("update license grant failed", zap.Error(err))
			return nil, storageErr(err)
		}
	}
	return nil, errContention("update access")
}

func applyAccessPatch(g *model.LicenseGrant, req *dto.UpdateAccessRequest) {
	if req.AccessType != nil {
		g.AccessType = model.AccessType(*req.AccessType)
	}
	if req.TotalSeats != nil {
		g.TotalSeats = req.TotalSeats
	}
	if g.AccessType != model.AccessLicensed {
		g.TotalSeats = nil
	}
	if req.ValidFrom != nil {
		g.ValidFrom = *req.ValidFrom
	}
	if req.ClearValidUntil {
		g.ValidUntil = nil
	} else if req.ValidUntil != nil {
		g.ValidUntil = req.ValidUntil
	}
	if req.IsMandatory != nil {
		g.IsMandatory = *req.IsMandatory
	}
	if req.AutoEnroll != nil {
		g.AutoEnroll = *req.AutoEnroll
	}
	if req.AllowCertificate != nil {
		g.AllowCertificate = *req.AllowCertificate
	}
}

func validateTerms(g *model.LicenseGrant) error {
	if !g.AccessType.Valid() {
		return ErrInvalidSeatCount
	}
	if g.AccessType == model.AccessLicensed {
		if g.TotalSeats == nil || *g.TotalSeats < 0 {
			return ErrInvalidSeatCount
		}
	} else {
		g.TotalSeats = nil
	}
	if g.ValidUntil != nil && g.ValidUntil.Before(g.ValidFrom) {
		return ErrInvalidValidity
	}
	return nil
}

// ────────────────────── AddSeats ──────────────────────

func (s *licenseService) AddSeats(ctx context.Context, orgID, courseID string, delta int, callerID string) (*dto.LicenseGrantResponse, error) {
	if delta <= 0 {
		return nil, ErrInvalidSeatCount
	}
	grant, err := s.getGrant(ctx, orgID, courseID)
	if err != nil {
		return nil, err
	}
	if grant.RevokedAt != nil {
		return nil, ErrAccessExpired
	}
	if grant.AccessType != model.AccessLicensed {
		return nil, ErrInvalidSeatCount
	}

	if err := s.repo.LicenseGrant.AddSeats(ctx, grant.LicenseGrantID, delta, callerID); err != nil {
		if repository.IsNotFound(err) {
			// revoked or converted between the read and the write
			return nil, ErrNotFound
		}
		s.logger.Error("add seats failed", zap.Error(err))
		return nil, storageErr(err)
	}

	s.logger.Info("seats added",
		zap.String("license_grant_id", grant.LicenseGrantID),
		zap.Int("delta", delta),
	)

	grant, err = s.getGrant(ctx, orgID, courseID)
	if err != nil {
		return nil, err
	}
	return toLicenseGrantResponse(grant, s.now()), nil
}

// ────────────────────── RevokeAccess ──────────────────────

// RevokeAccess soft-revokes the grant. Enrollments keep their rows; they
// lose access through the live validity check.
func (s *licenseService) RevokeAccess(ctx context.Context, orgID, courseID, callerID string) error {
	grant, err := s.getGrant(ctx, orgID, courseID)
	if err != nil {
		return err
	}
	revoked, err := s.repo.LicenseGrant.Revoke(ctx, grant.LicenseGrantID, s.now(), callerID)
	if err != nil {
		s.logger.Error("revoke license grant failed", zap.Error(err))
		return storageErr(err)
	}
	if revoked {
		s.logger.Info("course access revoked",
			zap.String("organization_id", orgID),
			zap.String("course_id", courseID),
		)
	}
	return nil
}

// ────────────────────── Seats ──────────────────────

func (s *licenseService) ConsumeSeat(ctx context.Context, orgID, courseID string) error {
	return consumeSeat(ctx, s.repo, orgID, courseID)
}

func (s *licenseService) ReleaseSeat(ctx context.Context, orgID, courseID string) error {
	released, err := s.repo.LicenseGrant.ReleaseSeat(ctx, orgID, courseID)
	if err != nil {
		s.logger.Error("release seat failed", zap.Error(err))
		return storageErr(err)
	}
	if released {
		return nil
	}
	// nothing to release: either already at zero or no such grant
	_, err = s.getGrant(ctx, orgID, courseID)
	return err
}

// consumeSeat takes one seat through the conditional increment and, when
// nothing was updated, classifies why. repo may be transaction scoped.
func consumeSeat(ctx context.Context, repo *repository.Repository, orgID, courseID string) error {
	ok, err := repo.LicenseGrant.ConsumeSeat(ctx, orgID, courseID)
	if err != nil {
		return storageErr(err)
	}
	if ok {
		return nil
	}

	grant, err := repo.LicenseGrant.GetByOrgCourse(ctx, orgID, courseID)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrNotFound
		}
		return storageErr(err)
	}
	if grant.RevokedAt != nil {
		return ErrAccessExpired
	}
	return ErrCapacityExceeded
}

// ────────────────────── Queries ──────────────────────

func (s *licenseService) IsValidNow(ctx context.Context, orgID, courseID string) (bool, error) {
	grant, err := s.repo.LicenseGrant.GetByOrgCourse(ctx, orgID, courseID)
	if err != nil {
		if repository.IsNotFound(err) {
			return false, nil
		}
		return false, storageErr(err)
	}
	return grant.IsValidAt(s.now()), nil
}

func (s *licenseService) ListUtilization(ctx context.Context, orgID string) ([]dto.LicenseGrantResponse, error) {
	grants, err := s.repo.LicenseGrant.ListByOrganization(ctx, orgID)
	if err != nil {
		s.logger.Error("list license grants failed", zap.Error(err))
		return nil, storageErr(err)
	}
	now := s.now()
	result := make([]dto.LicenseGrantResponse, 0, len(grants))
	for i := range grants {
		result = append(result, *toLicenseGrantResponse(&grants[i], now))
	}
	return result, nil
}

// ── helpers ──

func (s *licenseService) getGrant(ctx context.Context, orgID, courseID string) (*model.LicenseGrant, error) {
	grant, err := s.repo.LicenseGrant.GetByOrgCourse(ctx, orgID, courseID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		s.logger.Error("load license grant failed", zap.Error(err))
		return nil, storageErr(err)
	}
	return grant, nil
}

func (s *licenseService) lookupErr(what string, err error) error {
	if repository.IsNotFound(err) {
		return ErrNotFound
	}
	s.logger.Error("load "+what+" failed", zap.Error(err))
	return storageErr(err)
}

func toLicenseGrantResponse(g *model.LicenseGrant, now time.Time) *dto.LicenseGrantResponse {
	resp := &dto.LicenseGrantResponse{
		ID:               g.LicenseGrantID,
		OrganizationID:   g.OrganizationID,
		CourseID:         g.CourseID,
		AccessType:       string(g.AccessType),
		TotalSeats:       g.TotalSeats,
		UsedSeats:        g.UsedSeats,
		RemainingSeats:   g.RemainingSeats(),
		ValidFrom:        formatTime(g.ValidFrom),
		ValidUntil:       formatTimePtr(g.ValidUntil),
		IsMandatory:      g.IsMandatory,
		AutoEnroll:       g.AutoEnroll,
		AllowCertificate: g.AllowCertificate,
		IsValidNow:       g.IsValidAt(now),
		RevokedAt:        formatTimePtr(g.RevokedAt),
		Version:          g.Version,
		UpdatedAt:        formatTime(g.UpdatedAt),
	}
	if g.Course != nil {
		resp.CourseTitle = g.Course.Title
	}
	return resp
}
