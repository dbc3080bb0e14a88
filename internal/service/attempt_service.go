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

// ── Attempt errors ──

var (
	ErrNotEligible             = errors.New("learner is not eligible for this quiz")
	ErrAttemptLimitReached     = errors.New("maximum number of attempts reached")
	ErrAttemptAlreadyCompleted = errors.New("attempt is already completed")
	ErrInvalidAnswer           = errors.New("question or option does not belong to this quiz")
	// ErrTimeExpired is soft: it is returned together with the finalized
	// attempt so the learner always sees a result.
	ErrTimeExpired = errors.New("time limit expired, attempt was submitted automatically")
)

// AttemptService quiz attempt engine.
//
// An attempt moves NotStarted → InProgress → Completed. Every write is
// conditional on the attempt still being open and on the version that was
// read, so concurrent answers and submits resolve to exactly one grading.
// Time limits are enforced lazily: whichever call first notices the deadline
// has passed finalizes the attempt as of the deadline.
type AttemptService interface {
	StartAttempt(ctx context.Context, userID, quizID string) (*dto.AttemptResponse, error)
	RecordAnswer(ctx context.Context, attemptID, userID string, req *dto.RecordAnswerRequest) (*dto.AttemptResponse, error)
	SubmitAttempt(ctx context.Context, attemptID, userID string) (*dto.AttemptResponse, error)
	GetAttempt(ctx context.Context, attemptID, userID string) (*dto.AttemptResponse, error)
	ListAttempts(ctx context.Context, userID, quizID string) ([]dto.AttemptResponse, error)
	FinalizeExpired(ctx context.Context, batch int) (int, error)
}

type attemptService struct {
	repo        *repository.Repository
	enrollments EnrollmentService
	certs       CertificateService
	logger      *zap.Logger
	now         func() time.Time
}

// NewAttemptService creates an AttemptService.
func NewAttemptService(
	repo *repository.Repository,
	enrollments EnrollmentService,
	certs CertificateService,
	logger *zap.Logger,
	opts ...Option,
) AttemptService {
	o := buildOptions(opts)
	return &attemptService{
		repo:        repo,
		enrollments: enrollments,
		certs:       certs,
		logger:      logger,
		now:         o.now,
	}
}

// ────────────────────── StartAttempt ──────────────────────

func (s *attemptService) StartAttempt(ctx context.Context, userID, quizID string) (*dto.AttemptResponse, error) {
	quiz, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	eligible, err := s.enrollments.HasCourseAccess(ctx, userID, quiz.CourseID)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, ErrNotEligible
	}
	if len(quiz.Questions) == 0 {
		return nil, ErrInvalidQuiz
	}

	var limitSeconds *int
	if quiz.TimeLimitMinutes != nil {
		secs := *quiz.TimeLimitMinutes * 60
		limitSeconds = &secs
	}

	// attempt_number is count+1; the unique (user, quiz, number) index turns
	// a concurrent start into a duplicate key, and the loser recounts.
	for i := 0; i < maxConflictRetries; i++ {
		count, err := s.repo.Attempt.CountByUserQuiz(ctx, userID, quizID)
		if err != nil {
			s.logger.Error("count attempts failed", zap.Error(err))
			return nil, storageErr(err)
		}
		if quiz.MaxAttempts != nil && count >= int64(*quiz.MaxAttempts) {
			return nil, ErrAttemptLimitReached
		}

		attempt := &model.QuizAttempt{
			UserID:           userID,
			QuizID:           quizID,
			AttemptNumber:    int(count) + 1,
			StartedAt:        s.now(),
			TimeLimitSeconds: limitSeconds,
			MaxScore:         quiz.MaxScore(),
			Version:          1,
		}
		err = s.repo.Attempt.Create(ctx, attempt)
		if err == nil {
			s.logger.Info("attempt started",
				zap.String("attempt_id", attempt.AttemptID),
				zap.String("user_id", userID),
				zap.String("quiz_id", quizID),
				zap.Int("attempt_number", attempt.AttemptNumber),
			)
			return toAttemptResponse(attempt, quiz), nil
		}
		if !repository.IsDuplicateKey(err) {
			s.logger.Error("create attempt failed", zap.Error(err))
			return nil, storageErr(err)
		}
	}
	return nil, errContention("start attempt")
}

// ────────────────────── RecordAnswer ──────────────────────

func (s *attemptService) RecordAnswer(ctx context.Context, attemptID, userID string, req *dto.RecordAnswerRequest) (*dto.AttemptResponse, error) {
	for i := 0; i < maxConflictRetries; i++ {
		attempt, err := s.loadOwnedAttempt(ctx, attemptID, userID)
		if err != nil {
			return nil, err
		}
		if attempt.CompletedAt != nil {
			return nil, ErrAttemptAlreadyCompleted
		}
		quiz, err := s.loadQuiz(ctx, attempt.QuizID)
		if err != nil {
			return nil, err
		}

		now := s.now()
		if deadline, ok := attempt.Deadline(); ok && now.After(deadline) {
			final, err := s.finalize(ctx, attempt, quiz, deadline)
			if err != nil {
				return nil, err
			}
			return toAttemptResponse(final, quiz), ErrTimeExpired
		}

		question, ok := quiz.Question(req.QuestionID)
		if !ok {
			return nil, ErrInvalidAnswer
		}
		option, ok := question.Option(req.SelectedOptionID)
		if !ok {
			return nil, ErrInvalidAnswer
		}
		answer := gradeAnswer(attempt.AttemptID, question, option, now)

		err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			if err := tx.Attempt.TouchOpen(ctx, attempt.AttemptID, attempt.Version); err != nil {
				return err
			}
			return tx.Attempt.UpsertAnswer(ctx, answer)
		})
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			// another answer or a submit got in first; re-read decides
			continue
		}
		if err != nil {
			s.logger.Error("record answer failed", zap.Error(err))
			return nil, storageErr(err)
		}

		updated, err := s.loadOwnedAttempt(ctx, attemptID, userID)
		if err != nil {
			return nil, err
		}
		return toAttemptResponse(updated, quiz), nil
	}
	return nil, errContention("record answer")
}

// gradeAnswer grades at answer time so finalization is a pure sum.
func gradeAnswer(attemptID string, question *model.QuizQuestion, option *model.QuestionOption, at time.Time) *model.QuizAnswer {
	answer := &model.QuizAnswer{
		AttemptID:        attemptID,
		QuestionID:       question.QuestionID,
		SelectedOptionID: option.OptionID,
		IsCorrect:        option.IsCorrect,
		AnsweredAt:       at,
	}
	if option.IsCorrect {
		answer.PointsEarned = question.Points
	}
	return answer
}

// ────────────────────── SubmitAttempt ──────────────────────

// SubmitAttempt finalizes the attempt. Submitting a completed attempt
// returns the stored result unchanged.
func (s *attemptService) SubmitAttempt(ctx context.Context, attemptID, userID string) (*dto.AttemptResponse, error) {
	attempt, err := s.loadOwnedAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	quiz, err := s.loadQuiz(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}
	if attempt.CompletedAt != nil {
		// the first grading may have failed to certify; issuance is idempotent
		if attempt.Passed {
			s.onPassed(ctx, attempt, quiz)
		}
		return toAttemptResponse(attempt, quiz), nil
	}

	completedAt := s.now()
	expired := false
	if deadline, ok := attempt.Deadline(); ok && completedAt.After(deadline) {
		completedAt = deadline
		expired = true
	}

	final, err := s.finalize(ctx, attempt, quiz, completedAt)
	if err != nil {
		return nil, err
	}
	if expired {
		return toAttemptResponse(final, quiz), ErrTimeExpired
	}
	return toAttemptResponse(final, quiz), nil
}

// ────────────────────── Queries ──────────────────────

// GetAttempt is the status check. An open attempt past its deadline is
// finalized before it is returned; a passed attempt completed earlier
// re-runs the completion side effects so a failed issuance heals.
func (s *attemptService) GetAttempt(ctx context.Context, attemptID, userID string) (*dto.AttemptResponse, error) {
	attempt, err := s.loadOwnedAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	quiz, err := s.loadQuiz(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}
	if attempt.CompletedAt != nil {
		if attempt.Passed {
			s.onPassed(ctx, attempt, quiz)
		}
		return toAttemptResponse(attempt, quiz), nil
	}
	attempt, err = s.finalizeIfExpired(ctx, attempt, quiz)
	if err != nil {
		return nil, err
	}
	return toAttemptResponse(attempt, quiz), nil
}

func (s *attemptService) ListAttempts(ctx context.Context, userID, quizID string) ([]dto.AttemptResponse, error) {
	quiz, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	attempts, err := s.repo.Attempt.ListByUserQuiz(ctx, userID, quizID)
	if err != nil {
		s.logger.Error("list attempts failed", zap.Error(err))
		return nil, storageErr(err)
	}

	result := make([]dto.AttemptResponse, 0, len(attempts))
	for i := range attempts {
		a := &attempts[i]
		if _, ok := a.Deadline(); ok && a.CompletedAt == nil {
			// the list query does not load answers; finalization needs them
			full, err := s.repo.Attempt.GetByID(ctx, a.AttemptID)
			if err != nil {
				return nil, storageErr(err)
			}
			if a, err = s.finalizeIfExpired(ctx, full, quiz); err != nil {
				return nil, err
			}
			a.Answers = nil
		}
		result = append(result, *toAttemptResponse(a, quiz))
	}
	return result, nil
}

// ────────────────────── FinalizeExpired ──────────────────────

// FinalizeExpired finalizes up to batch abandoned attempts whose deadline
// has passed, exactly as a late touch by the learner would. It returns how
// many attempts this call finalized.
func (s *attemptService) FinalizeExpired(ctx context.Context, batch int) (int, error) {
	if batch <= 0 {
		return 0, nil
	}
	now := s.now()
	candidates, err := s.repo.Attempt.ListOpenTimed(ctx, now, batch)
	if err != nil {
		s.logger.Error("list open timed attempts failed", zap.Error(err))
		return 0, storageErr(err)
	}

	quizzes := make(map[string]*model.Quiz)
	finalized := 0
	for i := range candidates {
		if deadline, ok := candidates[i].Deadline(); !ok || !now.After(deadline) {
			continue
		}
		quiz, ok := quizzes[candidates[i].QuizID]
		if !ok {
			quiz, err = s.loadQuiz(ctx, candidates[i].QuizID)
			if err != nil {
				return finalized, err
			}
			quizzes[candidates[i].QuizID] = quiz
		}
		attempt, err := s.repo.Attempt.GetByID(ctx, candidates[i].AttemptID)
		if err != nil {
			return finalized, storageErr(err)
		}
		if attempt.CompletedAt != nil {
			continue
		}
		if _, err := s.finalizeIfExpired(ctx, attempt, quiz); err != nil {
			return finalized, err
		}
		finalized++
	}
	return finalized, nil
}

// ────────────────────── Finalization ──────────────────────

func (s *attemptService) finalizeIfExpired(ctx context.Context, attempt *model.QuizAttempt, quiz *model.Quiz) (*model.QuizAttempt, error) {
	if attempt.CompletedAt != nil {
		return attempt, nil
	}
	deadline, ok := attempt.Deadline()
	if !ok || !s.now().After(deadline) {
		return attempt, nil
	}
	return s.finalize(ctx, attempt, quiz, deadline)
}

// finalize grades the attempt as of completedAt and writes the result with
// a version compare-and-set. Losing the race means someone else finalized
// (their result is returned) or an answer landed (re-read and grade again).
// Only the winner triggers completion side effects.
func (s *attemptService) finalize(ctx context.Context, attempt *model.QuizAttempt, quiz *model.Quiz, completedAt time.Time) (*model.QuizAttempt, error) {
	for i := 0; i < maxConflictRetries; i++ {
		if attempt.CompletedAt != nil {
			return attempt, nil
		}

		score := sumPoints(attempt.Answers, completedAt)
		maxScore := quiz.MaxScore()
		pct := percentage(score, maxScore)

		done := completedAt
		attempt.CompletedAt = &done
		attempt.Score = score
		attempt.MaxScore = maxScore
		attempt.Percentage = pct
		attempt.Passed = pct >= quiz.PassingScore

		err := s.repo.Attempt.Finalize(ctx, attempt)
		if err == nil {
			s.logger.Info("attempt finalized",
				zap.String("attempt_id", attempt.AttemptID),
				zap.Int("score", score),
				zap.Int("max_score", maxScore),
				zap.Int("percentage", pct),
				zap.Bool("passed", attempt.Passed),
			)
			if attempt.Passed {
				s.onPassed(ctx, attempt, quiz)
			}
			return attempt, nil
		}
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("finalize attempt failed", zap.Error(err))
			return nil, storageErr(err)
		}

		attempt, err = s.repo.Attempt.GetByID(ctx, attempt.AttemptID)
		if err != nil {
			return nil, storageErr(err)
		}
	}
	return nil, errContention("finalize attempt")
}

// sumPoints adds up the points of answers recorded no later than cutoff.
// Unanswered questions have no row and contribute nothing.
func sumPoints(answers []model.QuizAnswer, cutoff time.Time) int {
	total := 0
	for _, a := range answers {
		if a.AnsweredAt.After(cutoff) {
			continue
		}
		total += a.PointsEarned
	}
	return total
}

// percentage is round-half-up(100*score/maxScore) in integer arithmetic,
// clamped to [0, 100].
func percentage(score, maxScore int) int {
	if maxScore <= 0 || score <= 0 {
		return 0
	}
	if score >= maxScore {
		return 100
	}
	return (200*score + maxScore) / (2 * maxScore)
}

// onPassed marks the course completed and asks the issuer for a
// certificate when the learner's grant allows one. Failures here never
// undo or hide the graded result. Both steps are idempotent, so later
// submits and status checks of a passed attempt call it again to retry.
func (s *attemptService) onPassed(ctx context.Context, attempt *model.QuizAttempt, quiz *model.Quiz) {
	if _, err := s.repo.Enrollment.MarkCompleted(ctx, attempt.UserID, quiz.CourseID, *attempt.CompletedAt); err != nil {
		s.logger.Error("mark enrollment completed failed", zap.String("attempt_id", attempt.AttemptID), zap.Error(err))
	}

	allowed, orgID, err := s.certificateTerms(ctx, attempt.UserID, quiz.CourseID)
	if err != nil {
		s.logger.Error("load certificate terms failed", zap.String("attempt_id", attempt.AttemptID), zap.Error(err))
		return
	}
	if !allowed {
		return
	}

	attemptID := attempt.AttemptID
	pct := attempt.Percentage
	_, err = s.certs.IssueIfQualified(ctx, attempt.UserID, quiz.CourseID, SourceEvent{
		Type:           SourceQuizAttempt,
		OrganizationID: orgID,
		QuizID:         quiz.QuizID,
		AttemptID:      &attemptID,
		Percentage:     &pct,
	})
	if err != nil {
		s.logger.Error("issue certificate failed", zap.String("attempt_id", attempt.AttemptID), zap.Error(err))
	}
}

// certificateTerms decides whether a pass may be certified. The
// allow_certificate flag lives on the organization's grant; an enrollment
// without any grant (direct assignment) is always certifiable. The grant is
// consulted even when it has since expired: an attempt started while access
// was valid may finish afterwards.
func (s *attemptService) certificateTerms(ctx context.Context, userID, courseID string) (bool, *string, error) {
	_, orgID, ok, err := backingGrant(ctx, s.repo, userID, courseID, func(g *model.LicenseGrant) bool {
		return g.AllowCertificate
	})
	if err != nil {
		return false, nil, err
	}
	return ok, orgID, nil
}

// ── helpers ──

func (s *attemptService) loadQuiz(ctx context.Context, quizID string) (*model.Quiz, error) {
	quiz, err := s.repo.Quiz.GetByID(ctx, quizID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		s.logger.Error("load quiz failed", zap.Error(err))
		return nil, storageErr(err)
	}
	return quiz, nil
}

// loadOwnedAttempt hides other learners' attempts behind ErrNotFound.
func (s *attemptService) loadOwnedAttempt(ctx context.Context, attemptID, userID string) (*model.QuizAttempt, error) {
	attempt, err := s.repo.Attempt.GetByID(ctx, attemptID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		s.logger.Error("load attempt failed", zap.Error(err))
		return nil, storageErr(err)
	}
	if attempt.UserID != userID {
		return nil, ErrNotFound
	}
	return attempt, nil
}

func toAttemptResponse(a *model.QuizAttempt, quiz *model.Quiz) *dto.AttemptResponse {
	resp := &dto.AttemptResponse{
		AttemptID:     a.AttemptID,
		QuizID:        a.QuizID,
		AttemptNumber: a.AttemptNumber,
		State:         string(a.State()),
		StartedAt:     formatTime(a.StartedAt),
		CompletedAt:   formatTimePtr(a.CompletedAt),
	}
	if deadline, ok := a.Deadline(); ok {
		resp.Deadline = formatTimePtr(&deadline)
	}

	completed := a.CompletedAt != nil
	if completed {
		score, maxScore, pct, passed := a.Score, a.MaxScore, a.Percentage, a.Passed
		resp.Score = &score
		resp.MaxScore = &maxScore
		resp.Percentage = &pct
		resp.Passed = &passed
	}

	for _, ans := range a.Answers {
		ar := dto.AnswerResponse{
			QuestionID:       ans.QuestionID,
			SelectedOptionID: ans.SelectedOptionID,
			AnsweredAt:       formatTime(ans.AnsweredAt),
		}
		if completed {
			correct, points := ans.IsCorrect, ans.PointsEarned
			ar.IsCorrect = &correct
			ar.PointsEarned = &points
			if quiz != nil && quiz.ShowCorrectAnswers {
				ar.CorrectOptionIDs = correctOptionIDs(quiz, ans.QuestionID)
			}
		}
		resp.Answers = append(resp.Answers, ar)
	}
	return resp
}

func correctOptionIDs(quiz *model.Quiz, questionID string) []string {
	question, ok := quiz.Question(questionID)
	if !ok {
		return nil
	}
	var ids []string
	for _, o := range question.Options {
		if o.IsCorrect {
			ids = append(ids, o.OptionID)
		}
	}
	return ids
}
