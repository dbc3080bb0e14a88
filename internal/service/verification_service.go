package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"ntraining/backend/internal/dto"
	"ntraining/backend/internal/repository"
	pkgredis "ntraining/backend/pkg/redis"
)

// VerificationService public certificate lookup.
type VerificationService interface {
	// Resolve maps a verification code to its certificate view. Unknown and
	// malformed codes both yield ErrNotFound.
	Resolve(ctx context.Context, code string) (*dto.CertificateView, error)
}

// VerificationCache read-through cache of resolved views. Certificates never
// change once issued, so entries only expire.
type VerificationCache interface {
	Get(ctx context.Context, code string) (*dto.CertificateView, bool, error)
	Set(ctx context.Context, code string, view *dto.CertificateView) error
}

type verificationService struct {
	repo   *repository.Repository
	cache  VerificationCache
	logger *zap.Logger
}

// NewVerificationService creates a VerificationService; cache may be nil.
func NewVerificationService(repo *repository.Repository, cache VerificationCache, logger *zap.Logger) VerificationService {
	return &verificationService{repo: repo, cache: cache, logger: logger}
}

func (s *verificationService) Resolve(ctx context.Context, raw string) (*dto.CertificateView, error) {
	code, ok := NormalizeVerificationCode(raw)
	if !ok {
		return nil, ErrNotFound
	}

	if s.cache != nil {
		view, hit, err := s.cache.Get(ctx, code)
		if err != nil {
			s.logger.Warn("verification cache read failed", zap.Error(err))
		} else if hit {
			return view, nil
		}
	}

	cert, err := s.repo.Certificate.GetByCode(ctx, code)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		s.logger.Error("resolve verification code failed", zap.Error(err))
		return nil, storageErr(err)
	}

	view := &dto.CertificateView{
		VerificationCode: cert.VerificationCode,
		IssuedAt:         formatTime(cert.IssuedAt),
	}
	if cert.User != nil {
		view.LearnerName = cert.User.Name
	}
	if cert.Course != nil {
		view.CourseTitle = cert.Course.Title
	}
	if cert.Organization != nil {
		name := cert.Organization.Name
		view.OrganizationName = &name
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, code, view); err != nil {
			s.logger.Warn("verification cache write failed", zap.Error(err))
		}
	}
	return view, nil
}

// ── Redis cache ──

const verifyCachePrefix = "verify:code:"

type redisVerificationCache struct {
	rdb *pkgredis.Client
	ttl time.Duration
}

// NewRedisVerificationCache stores views as JSON strings with a TTL.
func NewRedisVerificationCache(rdb *pkgredis.Client, ttl time.Duration) VerificationCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &redisVerificationCache{rdb: rdb, ttl: ttl}
}

func (c *redisVerificationCache) Get(ctx context.Context, code string) (*dto.CertificateView, bool, error) {
	raw, found, err := c.rdb.GetString(ctx, verifyCachePrefix+code)
	if err != nil || !found {
		return nil, false, err
	}
	var view dto.CertificateView
	if err := json.Unmarshal([]byte(raw), &view); err != nil {
		return nil, false, err
	}
	return &view, true, nil
}

func (c *redisVerificationCache) Set(ctx context.Context, code string, view *dto.CertificateView) error {
	raw, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return c.rdb.SetString(ctx, verifyCachePrefix+code, string(raw), c.ttl)
}
