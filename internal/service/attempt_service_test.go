package service

import (
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"ntraining/backend/internal/dto"
	"ntraining/backend/internal/model"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		score, max, want int
	}{
		{0, 10, 0},
		{5, 10, 50},
		{7, 10, 70},
		{10, 10, 100},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13}, // 12.5 rounds up
		{12, 10, 100},
		{3, 0, 0},
	}
	for _, tt := range tests {
		if got := percentage(tt.score, tt.max); got != tt.want {
			t.Errorf("percentage(%d, %d) = %d, want %d", tt.score, tt.max, got, tt.want)
		}
	}
}

// enrolledQuiz grants the course, enrolls the learner and returns a
// two-question quiz.
func (e *testEnv) enrolledQuiz(mutate ...func(*dto.CreateQuizRequest)) *dto.QuizResponse {
	e.t.Helper()
	e.grant(e.course.CourseID, intPtr(10))
	if _, err := e.assign(e.user.UserID, e.course.CourseID, true); err != nil {
		e.t.Fatalf("assign failed: %v", err)
	}
	return e.twoQuestionQuiz(mutate...)
}

// ── Scoring ──

func TestAttemptService_HalfCorrectFails(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.enrolledQuiz()

	attempt, err := env.attempts.StartAttempt(env.ctx, env.user.UserID, quiz.ID)
	if err != nil {
		t.Fatalf("StartAttempt failed: %v", err)
	}
	if attempt.AttemptNumber != 1 || attempt.State != string(model.AttemptInProgress) {
		t.Errorf("unexpected new attempt: %+v", attempt)
	}

	_, _ = env.answer(attempt.AttemptID, quiz.Questions[0], rightOption(quiz.Questions[0]))
	_, _ = env.answer(attempt.AttemptID, quiz.Questions[1], wrongOption(quiz.Questions[1]))

	result, err := env.attempts.SubmitAttempt(env.ctx, attempt.AttemptID, env.user.UserID)
	if err != nil {
		t.Fatalf("SubmitAttempt failed: %v", err)
	}
	if *result.Score != 5 || *result.MaxScore != 10 || *result.Percentage != 50 {
		t.Errorf("expected 5/10 = 50%%, got %d/%d = %d%%", *result.Score, *result.MaxScore, *result.Percentage)
	}
	if *result.Passed {
		t.Error("50% must not pass a 70% quiz")
	}
	if env.notifier.count() != 0 {
		t.Error("failed attempt must not issue a certificate")
	}
}

func TestAttemptService_PassIssuesCertificateAndCompletes(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.enrolledQuiz()

	attempt, _ := env.attempts.StartAttempt(env.ctx, env.user.UserID, quiz.ID)
	for _, q := range quiz.Questions {
		if _, err := env.answer(attempt.AttemptID, q, rightOption(q)); err != nil {
			t.Fatalf("answer failed: %v", err)
		}
	}

	result, err := env.attempts.SubmitAttempt(env.ctx, attempt.AttemptID, env.user.UserID)
	if err != nil {
		t.Fatalf("SubmitAttempt failed: %v", err)
	}
	if !*result.Passed || *result.Percentage != 100 {
		t.Errorf("expected a 100%% pass, got %+v", result)
	}

	certs, err := env.certs.ListForUser(env.ctx, env.user.UserID)
	if err != nil || len(certs) != 1 {
		t.Fatalf("expected one certificate, got %d (%v)", len(certs), err)
	}
	e, _ := env.repo.Enrollment.Get(env.ctx, env.user.UserID, env.course.CourseID, env.org.OrganizationID)
	if e.Status != model.EnrollmentCompleted {
		t.Errorf("enrollment should be completed, got %s", e.Status)
	}
}

func TestAttemptService_GradingHiddenUntilCompleted(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.enrolledQuiz(func(r *dto.CreateQuizRequest) { r.ShowCorrectAnswers = true })

	attempt, _ := env.attempts.StartAttempt(env.ctx, env.user.UserID, quiz.ID)
	open, err := env.answer(attempt.AttemptID, quiz.Questions[0], wrongOption(quiz.Questions[0]))
	if err != nil {
		t.Fatalf("answer failed: %v", err)
	}
	if open.Score != nil || open.Answers[0].IsCorrect != nil || open.Answers[0].CorrectOptionIDs != nil {
		t.Error("grading must not leak while the attempt is open")
	}

	done, _ := env.attempts.SubmitAttempt(env.ctx, attempt.AttemptID, env.user.UserID)
	a := done.Answers[0]
	if a.IsCorrect == nil || *a.IsCorrect {
		t.Error("answer should be graded incorrect after completion")
	}
	if len(a.CorrectOptionIDs) != 1 || a.CorrectOptionIDs[0] != rightOption(quiz.Questions[0]) {
		t.Error("correct option should be shown when the quiz allows it")
	}
}

func TestAttemptService_ShowsEveryCorrectOption(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.enrolledQuiz(func(r *dto.CreateQuizRequest) {
		r.ShowCorrectAnswers = true
		r.Questions[0].Options = []dto.CreateOptionRequest{
			{Label: "right", IsCorrect: true},
			{Label: "also right", IsCorrect: true},
			{Label: "wrong"},
		}
	})

	attempt, _ := env.attempts.StartAttempt(env.ctx, env.user.UserID, quiz.ID)
	q := quiz.Questions[0]
	if _, err := env.answer(attempt.AttemptID, q, q.Options[1].ID); err != nil {
		t.Fatalf("answer failed: %v", err)
	}
	done, err := env.attempts.SubmitAttempt(env.ctx, attempt.AttemptID, env.user.UserID)
	if err != nil {
		t.Fatalf("SubmitAttempt failed: %v", err)
	}
	a := done.Answers[0]
	if !*a.IsCorrect || *a.PointsEarned != 5 {
		t.Error("second correct option should score")
	}
	want := []string{q.Options[0].ID, q.Options[1].ID}
	if len(a.CorrectOptionIDs) != 2 || a.CorrectOptionIDs[0] != want[0] || a.CorrectOptionIDs[1] != want[1] {
		t.Errorf("expected both correct options %v, got %v", want, a.CorrectOptionIDs)
	}
}

// ── Time limit ──

func TestAttemptService_TimeLimitExpiry(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.enrolledQuiz(func(r *dto.CreateQuizRequest) { r.TimeLimitMinutes = intPtr(10) })
	start := env.clock.Now()

	attempt, err := env.attempts.StartAttempt(env.ctx, env.user.UserID, quiz.ID)
	if err != nil {
		t.Fatalf("StartAttempt failed: %v", err)
	}
	if attempt.Deadline == nil || *attempt.Deadline != formatTime(start.Add(10*time.Minute)) {
		t.Errorf("unexpected deadline: %v", attempt.Deadline)
	}

	env.clock.Advance(2 * time.Minute)
	if _, err := env.answer(attempt.AttemptID, quiz.Questions[0], rightOption(quiz.Questions[0])); err != nil {
		t.Fatalf("answer within the limit failed: %v", err)
	}

	env.clock.Advance(9 * time.Minute)
	result, err := env.answer(attempt.AttemptID, quiz.Questions[1], rightOption(quiz.Questions[1]))
	if !errors.Is(err, ErrTimeExpired) {
		t.Fatalf("expected ErrTimeExpired, got %v", err)
	}
	if result == nil || result.CompletedAt == nil {
		t.Fatal("expired answer should still return the finalized attempt")
	}
	if *result.CompletedAt != formatTime(start.Add(10*time.Minute)) {
		t.Errorf("completed_at should be the deadline, got %s", *result.CompletedAt)
	}
	if *result.Score != 5 || *result.Percentage != 50 || *result.Passed {
		t.Errorf("only the answer before the deadline counts, got score=%d pct=%d", *result.Score, *result.Percentage)
	}
	if len(result.Answers) != 1 {
		t.Errorf("late answer must not be stored, got %d answers", len(result.Answers))
	}

	if _, err := env.answer(attempt.AttemptID, quiz.Questions[1], rightOption(quiz.Questions[1])); !errors.Is(err, ErrAttemptAlreadyCompleted) {
		t.Errorf("expected ErrAttemptAlreadyCompleted, got %v", err)
	}
}

func TestAttemptService_LateSubmitAndStatusCheck(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.enrolledQuiz(func(r *dto.CreateQuizRequest) { r.TimeLimitMinutes = intPtr(5) })

	first, _ := env.attempts.StartAttempt(env.ctx, env.user.UserID, quiz.ID)
	env.clock.Advance(6 * time.Minute)

	status, err := env.attempts.GetAttempt(env.ctx, first.AttemptID, env.user.UserID)
	if err != nil {
		t.Fatalf("GetAttempt failed: %v", err)
	}
	if status.State != string(model.AttemptCompleted) || *status.Score != 0 {
		t.Errorf("status check should finalize the expired attempt: %+v", status)
	}

	second, _ := env.attempts.StartAttempt(env.ctx, env.user.UserID, quiz.ID)
	env.clock.Advance(6 * time.Minute)
	result, err := env.attempts.SubmitAttempt(env.ctx, second.AttemptID, env.user.UserID)
	if !errors.Is(err, ErrTimeExpired) {
		t.Fatalf("expected ErrTimeExpired on late submit, got %v", err)
	}
	if result == nil || *result.CompletedAt != *second.Deadline {
		t.Error("late submit should complete at the deadline")
	}

	third, _ := env.attempts.StartAttempt(env.ctx, env.user.UserID, quiz.ID)
	env.clock.Advance(6 * time.Minute)
	list, err := env.attempts.ListAttempts(env.ctx, env.user.UserID, quiz.ID)
	if err != nil || len(list) != 3 {
		t.Fatalf("ListAttempts: %v, %d items", err, len(list))
	}
	for _, a := range list {
		if a.AttemptID == third.AttemptID && a.State != string(model.AttemptCompleted) {
			t.Error("listing should finalize expired attempts")
		}
	}
}

// ── Submit ──

func TestAttemptService_SubmitIdempotent(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.enrolledQuiz()

	attempt, _ := env.attempts.StartAttempt(env.ctx, env.user.UserID, quiz.ID)
	_, _ = env.answer(attempt.AttemptID, quiz.Questions[0], rightOption(quiz.Questions[0]))

	first, err := env.attempts.SubmitAttempt(env.ctx, attempt.AttemptID, env.user.UserID)
	if err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	env.clock.Advance(time.Minute)
	second, err := env.attempts.SubmitAttempt(env.ctx, attempt.AttemptID, env.user.UserID)
	if err != nil {
		t.Fatalf("second submit failed: %v", err)
	}
	if *first.CompletedAt != *second.CompletedAt || *first.Score != *second.Score {
		t.Errorf("resubmit changed the result: %+v vs %+v", first, second)
	}
}

func TestAttemptService_ConcurrentSubmitsIssueOneCertificate(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.enrolledQuiz()

	attempt, _ := env.attempts.StartAttempt(env.ctx, env.user.UserID, quiz.ID)
	for _, q := range quiz.Questions {
		_, _ = env.answer(attempt.AttemptID, q, rightOption(q))
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := env.attempts.SubmitAttempt(env.ctx, attempt.AttemptID, env.user.UserID)
			if err != nil {
				t.Errorf("SubmitAttempt failed: %v", err)
				return
			}
			if !*res.Passed {
				t.Error("every submitter should see the passing result")
			}
		}()
	}
	wg.Wait()

	certs, _ := env.certs.ListForUser(env.ctx, env.user.UserID)
	if len(certs) != 1 {
		t.Errorf("expected exactly one certificate, got %d", len(certs))
	}
	if env.notifier.count() != 1 {
		t.Errorf("expected exactly one issued notification, got %d", env.notifier.count())
	}
}

func TestAttemptService_CertificatesDisabledForGrant(t *testing.T) {
	env := newTestEnv(t)
	noCerts := false
	env.grant(env.course.CourseID, intPtr(10), func(r *dto.GrantAccessRequest) { r.AllowCertificate = &noCerts })
	_, _ = env.assign(env.user.UserID, env.course.CourseID, true)
	quiz := env.twoQuestionQuiz()

	attempt, _ := env.attempts.StartAttempt(env.ctx, env.user.UserID, quiz.ID)
	for _, q := range quiz.Questions {
		_, _ = env.answer(attempt.AttemptID, q, rightOption(q))
	}
	result, err := env.attempts.SubmitAttempt(env.ctx, attempt.AttemptID, env.user.UserID)
	if err != nil || !*result.Passed {
		t.Fatalf("expected a pass, got %v", err)
	}

	certs, _ := env.certs.ListForUser(env.ctx, env.user.UserID)
	if len(certs) != 0 {
		t.Errorf("grant without certificates must not issue one, got %d", len(certs))
	}
	e, _ := env.repo.Enrollment.Get(env.ctx, env.user.UserID, env.course.CourseID, env.org.OrganizationID)
	if e.Status != model.EnrollmentCompleted {
		t.Error("passing still completes the course")
	}
}

// ── Start ──

func TestAttemptService_AttemptNumbersAndLimit(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.enrolledQuiz(func(r *dto.CreateQuizRequest) { r.MaxAttempts = intPtr(2) })

	for want := 1; want <= 2; want++ {
		a, err := env.attempts.StartAttempt(env.ctx, env.user.UserID, quiz.ID)
		if err != nil {
			t.Fatalf("StartAttempt %d failed: %v", want, err)
		}
		if a.AttemptNumber != want {
			t.Errorf("expected attempt number %d, got %d", want, a.AttemptNumber)
		}
	}
	if _, err := env.attempts.StartAttempt(env.ctx, env.user.UserID, quiz.ID); !errors.Is(err, ErrAttemptLimitReached) {
		t.Errorf("expected ErrAttemptLimitReached, got %v", err)
	}
}

func TestAttemptService_ConcurrentStartsNumberUniquely(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.enrolledQuiz(func(r *dto.CreateQuizRequest) { r.MaxAttempts = intPtr(3) })

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := env.attempts.StartAttempt(env.ctx, env.user.UserID, quiz.ID)
			if err != nil {
				if !errors.Is(err, ErrAttemptLimitReached) {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			mu.Lock()
			numbers = append(numbers, a.AttemptNumber)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Ints(numbers)
	if len(numbers) != 3 || numbers[0] != 1 || numbers[1] != 2 || numbers[2] != 3 {
		t.Errorf("expected attempt numbers 1..3, got %v", numbers)
	}
}

func TestAttemptService_StartRequiresEligibility(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.twoQuestionQuiz()

	if _, err := env.attempts.StartAttempt(env.ctx, env.user.UserID, quiz.ID); !errors.Is(err, ErrNotEligible) {
		t.Errorf("expected ErrNotEligible, got %v", err)
	}
	if _, err := env.attempts.StartAttempt(env.ctx, env.user.UserID, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown quiz, got %v", err)
	}
}

func TestAttemptService_StartRejectsEmptyQuiz(t *testing.T) {
	env := newTestEnv(t)
	env.grant(env.course.CourseID, nil)
	_, _ = env.assign(env.user.UserID, env.course.CourseID, true)

	empty := &model.Quiz{CourseID: env.course.CourseID, Title: "Empty", PassingScore: 50}
	env.must(env.repo.Quiz.Create(env.ctx, empty))

	if _, err := env.attempts.StartAttempt(env.ctx, env.user.UserID, empty.QuizID); !errors.Is(err, ErrInvalidQuiz) {
		t.Errorf("expected ErrInvalidQuiz, got %v", err)
	}
}

// ── Answers ──

func TestAttemptService_RecordAnswer(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.enrolledQuiz()
	attempt, _ := env.attempts.StartAttempt(env.ctx, env.user.UserID, quiz.ID)
	q := quiz.Questions[0]

	if _, err := env.answer(attempt.AttemptID, q, wrongOption(q)); err != nil {
		t.Fatalf("first answer failed: %v", err)
	}
	resp, err := env.answer(attempt.AttemptID, q, rightOption(q))
	if err != nil {
		t.Fatalf("re-answer failed: %v", err)
	}
	if len(resp.Answers) != 1 || resp.Answers[0].SelectedOptionID != rightOption(q) {
		t.Errorf("re-answer should replace the previous one: %+v", resp.Answers)
	}

	if _, err := env.answer(attempt.AttemptID, q, rightOption(quiz.Questions[1])); !errors.Is(err, ErrInvalidAnswer) {
		t.Errorf("option of another question should be ErrInvalidAnswer, got %v", err)
	}
	if _, err := env.attempts.RecordAnswer(env.ctx, attempt.AttemptID, env.user.UserID, &dto.RecordAnswerRequest{
		QuestionID: "00000000-0000-0000-0000-000000000000", SelectedOptionID: rightOption(q),
	}); !errors.Is(err, ErrInvalidAnswer) {
		t.Errorf("unknown question should be ErrInvalidAnswer, got %v", err)
	}

	other := env.newUser("Intruder")
	if _, err := env.attempts.RecordAnswer(env.ctx, attempt.AttemptID, other.UserID, &dto.RecordAnswerRequest{
		QuestionID: q.ID, SelectedOptionID: rightOption(q),
	}); !errors.Is(err, ErrNotFound) {
		t.Errorf("another learner's attempt should be ErrNotFound, got %v", err)
	}

	final, _ := env.attempts.SubmitAttempt(env.ctx, attempt.AttemptID, env.user.UserID)
	if *final.Score != 5 {
		t.Errorf("only the latest answer should be graded, got %d", *final.Score)
	}
	if _, err := env.answer(attempt.AttemptID, q, wrongOption(q)); !errors.Is(err, ErrAttemptAlreadyCompleted) {
		t.Errorf("expected ErrAttemptAlreadyCompleted, got %v", err)
	}
}

// ── Issuance retry ──

func TestAttemptService_RetryIssuesCertificateAfterFailedIssue(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.enrolledQuiz()

	svc := env.certs.(*certificateService)
	failures := 1
	svc.newCode = func() (string, error) {
		if failures > 0 {
			failures--
			return "", errors.New("entropy source unavailable")
		}
		return GenerateVerificationCode()
	}

	attempt, _ := env.attempts.StartAttempt(env.ctx, env.user.UserID, quiz.ID)
	for _, q := range quiz.Questions {
		if _, err := env.answer(attempt.AttemptID, q, rightOption(q)); err != nil {
			t.Fatalf("answer failed: %v", err)
		}
	}

	first, err := env.attempts.SubmitAttempt(env.ctx, attempt.AttemptID, env.user.UserID)
	if err != nil || !*first.Passed {
		t.Fatalf("first submit should pass despite the issuance failure: %v", err)
	}
	if certs, _ := env.certs.ListForUser(env.ctx, env.user.UserID); len(certs) != 0 {
		t.Fatalf("issuance failed, expected no certificate yet, got %d", len(certs))
	}

	again, err := env.attempts.SubmitAttempt(env.ctx, attempt.AttemptID, env.user.UserID)
	if err != nil || *again.CompletedAt != *first.CompletedAt || *again.Score != *first.Score {
		t.Fatalf("resubmit should return the stored result: %v", err)
	}
	certs, err := env.certs.ListForUser(env.ctx, env.user.UserID)
	if err != nil || len(certs) != 1 {
		t.Fatalf("resubmit should issue the missing certificate, got %d (%v)", len(certs), err)
	}

	if _, err := env.attempts.GetAttempt(env.ctx, attempt.AttemptID, env.user.UserID); err != nil {
		t.Fatalf("GetAttempt failed: %v", err)
	}
	if certs, _ := env.certs.ListForUser(env.ctx, env.user.UserID); len(certs) != 1 {
		t.Errorf("status check must not mint a second certificate, got %d", len(certs))
	}
	if env.notifier.count() != 1 {
		t.Errorf("expected one issuance notification, got %d", env.notifier.count())
	}
}

func TestAttemptService_StatusCheckIssuesMissingCertificate(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.enrolledQuiz()

	svc := env.certs.(*certificateService)
	failures := 1
	svc.newCode = func() (string, error) {
		if failures > 0 {
			failures--
			return "", errors.New("entropy source unavailable")
		}
		return GenerateVerificationCode()
	}

	attempt, _ := env.attempts.StartAttempt(env.ctx, env.user.UserID, quiz.ID)
	for _, q := range quiz.Questions {
		env.answer(attempt.AttemptID, q, rightOption(q))
	}
	if _, err := env.attempts.SubmitAttempt(env.ctx, attempt.AttemptID, env.user.UserID); err != nil {
		t.Fatalf("SubmitAttempt failed: %v", err)
	}

	status, err := env.attempts.GetAttempt(env.ctx, attempt.AttemptID, env.user.UserID)
	if err != nil || !*status.Passed {
		t.Fatalf("GetAttempt failed: %v", err)
	}
	if certs, _ := env.certs.ListForUser(env.ctx, env.user.UserID); len(certs) != 1 {
		t.Errorf("status check should issue the missing certificate, got %d", len(certs))
	}
}

// ── Expiry sweep ──

func TestAttemptService_FinalizeExpiredSweep(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.enrolledQuiz(func(r *dto.CreateQuizRequest) { r.TimeLimitMinutes = intPtr(10) })

	abandoned, err := env.attempts.StartAttempt(env.ctx, env.user.UserID, quiz.ID)
	if err != nil {
		t.Fatalf("StartAttempt failed: %v", err)
	}
	env.clock.Advance(time.Minute)
	for _, q := range quiz.Questions {
		if _, err := env.answer(abandoned.AttemptID, q, rightOption(q)); err != nil {
			t.Fatalf("answer failed: %v", err)
		}
	}

	n, err := env.attempts.FinalizeExpired(env.ctx, 50)
	if err != nil || n != 0 {
		t.Fatalf("nothing has expired yet: n=%d err=%v", n, err)
	}

	env.clock.Advance(15 * time.Minute)
	n, err = env.attempts.FinalizeExpired(env.ctx, 50)
	if err != nil {
		t.Fatalf("FinalizeExpired failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 finalized attempt, got %d", n)
	}

	status, err := env.attempts.GetAttempt(env.ctx, abandoned.AttemptID, env.user.UserID)
	if err != nil {
		t.Fatalf("GetAttempt failed: %v", err)
	}
	if status.State != string(model.AttemptCompleted) || !*status.Passed {
		t.Errorf("swept attempt should be completed and passed: %+v", status)
	}
	if *status.CompletedAt != *abandoned.Deadline {
		t.Errorf("swept attempt should complete at the deadline, got %s", *status.CompletedAt)
	}
	if env.notifier.count() != 1 {
		t.Errorf("expected one issuance notification, got %d", env.notifier.count())
	}

	if n, _ := env.attempts.FinalizeExpired(env.ctx, 50); n != 0 {
		t.Errorf("second sweep should find nothing, got %d", n)
	}
}

func TestNewExpirySweeper_InvalidSchedule(t *testing.T) {
	env := newTestEnv(t)
	if _, err := NewExpirySweeper(env.attempts, "not a schedule", zap.NewNop()); err == nil {
		t.Error("invalid schedule should be rejected")
	}
	s, err := NewExpirySweeper(env.attempts, "@every 1m", zap.NewNop())
	if err != nil {
		t.Fatalf("NewExpirySweeper failed: %v", err)
	}
	s.runOnce()
}
