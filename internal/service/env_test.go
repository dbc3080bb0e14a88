package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"ntraining/backend/internal/dto"
	"ntraining/backend/internal/model"
	"ntraining/backend/internal/repository"
	"ntraining/backend/internal/testutil"
)

// ── Test helpers ──

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []dto.CertificateIssuedEvent
}

func (n *recordingNotifier) NotifyIssued(_ context.Context, e dto.CertificateIssuedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type testEnv struct {
	t        *testing.T
	ctx      context.Context
	repo     *repository.Repository
	clock    *fakeClock
	notifier *recordingNotifier

	licenses    LicenseService
	enrollments EnrollmentService
	quizzes     QuizService
	attempts    AttemptService
	certs       CertificateService
	verify      VerificationService
	export      ExportService

	org    *model.Organization
	course *model.Course
	user   *model.User
	admin  *model.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := repository.NewRepository(testutil.NewSQLiteDB(t))
	clock := newFakeClock()
	notifier := &recordingNotifier{}
	logger := zap.NewNop()
	withClock := WithClock(clock.Now)

	certs := NewCertificateService(repo, notifier, "https://verify.example.com/", logger, withClock)
	enrollments := NewEnrollmentService(repo, certs, logger, withClock)

	env := &testEnv{
		t:           t,
		ctx:         context.Background(),
		repo:        repo,
		clock:       clock,
		notifier:    notifier,
		licenses:    NewLicenseService(repo, logger, withClock),
		enrollments: enrollments,
		quizzes:     NewQuizService(repo, logger),
		attempts:    NewAttemptService(repo, enrollments, certs, logger, withClock),
		certs:       certs,
		verify:      NewVerificationService(repo, nil, logger),
		export:      NewExportService(repo, logger, withClock),
	}
	env.org = &model.Organization{Name: "Acme Corp"}
	env.course = &model.Course{Title: "Workplace Safety"}
	env.user = env.newUser("Robin Learner")
	env.admin = env.newUser("Alex Admin")
	env.must(repo.Catalog.CreateOrganization(env.ctx, env.org))
	env.must(repo.Catalog.CreateCourse(env.ctx, env.course))
	return env
}

func (e *testEnv) must(err error) {
	e.t.Helper()
	if err != nil {
		e.t.Fatalf("setup failed: %v", err)
	}
}

func (e *testEnv) newUser(name string) *model.User {
	e.t.Helper()
	u := &model.User{Name: name, Email: name + "@example.com"}
	e.must(e.repo.Catalog.CreateUser(e.ctx, u))
	return u
}

func (e *testEnv) newCourse(title string) *model.Course {
	e.t.Helper()
	c := &model.Course{Title: title}
	e.must(e.repo.Catalog.CreateCourse(e.ctx, c))
	return c
}

// grant creates a licensed grant (seats != nil) or an unlimited one.
func (e *testEnv) grant(courseID string, seats *int, mutate ...func(*dto.GrantAccessRequest)) *dto.LicenseGrantResponse {
	e.t.Helper()
	req := &dto.GrantAccessRequest{
		OrganizationID: e.org.OrganizationID,
		CourseID:       courseID,
		AccessType:     string(model.AccessUnlimited),
	}
	if seats != nil {
		req.AccessType = string(model.AccessLicensed)
		req.TotalSeats = seats
	}
	for _, m := range mutate {
		m(req)
	}
	resp, err := e.licenses.GrantAccess(e.ctx, req, e.admin.UserID)
	if err != nil {
		e.t.Fatalf("GrantAccess failed: %v", err)
	}
	return resp
}

func (e *testEnv) assign(userID, courseID string, viaLicense bool) (*dto.EnrollmentResponse, error) {
	return e.enrollments.Assign(e.ctx, &dto.AssignRequest{
		UserID:         userID,
		CourseID:       courseID,
		OrganizationID: e.org.OrganizationID,
		ViaLicense:     viaLicense,
	}, e.admin.UserID)
}

// twoQuestionQuiz passing score 70, two single-choice questions worth 5.
func (e *testEnv) twoQuestionQuiz(mutate ...func(*dto.CreateQuizRequest)) *dto.QuizResponse {
	e.t.Helper()
	q := func(prompt string) dto.CreateQuestionRequest {
		return dto.CreateQuestionRequest{
			Prompt:       prompt,
			QuestionType: string(model.QuestionSingleChoice),
			Points:       5,
			Options: []dto.CreateOptionRequest{
				{Label: "right", IsCorrect: true},
				{Label: "wrong"},
			},
		}
	}
	req := &dto.CreateQuizRequest{
		CourseID:     e.course.CourseID,
		Title:        "Final check",
		PassingScore: 70,
		Questions:    []dto.CreateQuestionRequest{q("Q1"), q("Q2")},
	}
	for _, m := range mutate {
		m(req)
	}
	quiz, err := e.quizzes.Create(e.ctx, req, e.admin.UserID)
	if err != nil {
		e.t.Fatalf("create quiz failed: %v", err)
	}
	return quiz
}

func rightOption(q dto.QuestionResponse) string {
	for _, o := range q.Options {
		if o.IsCorrect != nil && *o.IsCorrect {
			return o.ID
		}
	}
	return ""
}

func wrongOption(q dto.QuestionResponse) string {
	for _, o := range q.Options {
		if o.IsCorrect != nil && !*o.IsCorrect {
			return o.ID
		}
	}
	return ""
}

func (e *testEnv) answer(attemptID string, q dto.QuestionResponse, optionID string) (*dto.AttemptResponse, error) {
	return e.attempts.RecordAnswer(e.ctx, attemptID, e.user.UserID, &dto.RecordAnswerRequest{
		QuestionID:       q.ID,
		SelectedOptionID: optionID,
	})
}

func (e *testEnv) usedSeats(courseID string) int {
	e.t.Helper()
	g, err := e.repo.LicenseGrant.GetByOrgCourse(e.ctx, e.org.OrganizationID, courseID)
	if err != nil {
		e.t.Fatalf("load grant failed: %v", err)
	}
	return g.UsedSeats
}

func intPtr(v int) *int { return &v }
