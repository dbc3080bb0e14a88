package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ntraining/backend/internal/model"
	"ntraining/backend/internal/repository"
	"ntraining/backend/internal/testutil"
	pkgerrors "ntraining/backend/pkg/errors"
)

func intPtr(v int) *int { return &v }

type fixture struct {
	repo   *repository.Repository
	org    *model.Organization
	course *model.Course
	user   *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewRepository(testutil.NewSQLiteDB(t))

	f := &fixture{
		repo:   repo,
		org:    &model.Organization{Name: "Acme"},
		course: &model.Course{Title: "Safety 101"},
		user:   &model.User{Name: "Sam", Email: "sam@example.com"},
	}
	require.NoError(t, repo.Catalog.CreateOrganization(ctx, f.org))
	require.NoError(t, repo.Catalog.CreateCourse(ctx, f.course))
	require.NoError(t, repo.Catalog.CreateUser(ctx, f.user))
	return f
}

func (f *fixture) grant(t *testing.T, accessType model.AccessType, seats *int) *model.LicenseGrant {
	t.Helper()
	g := &model.LicenseGrant{
		OrganizationID:   f.org.OrganizationID,
		CourseID:         f.course.CourseID,
		AccessType:       accessType,
		TotalSeats:       seats,
		ValidFrom:        time.Now().Add(-time.Hour),
		AllowCertificate: true,
	}
	g.Version = 1
	require.NoError(t, f.repo.LicenseGrant.Create(context.Background(), g))
	return g
}

// ────────────────────── License grants ──────────────────────

func TestLicenseGrantRepo_ConsumeSeatStopsAtCapacity(t *testing.T) {
	f := newFixture(t)
	f.grant(t, model.AccessLicensed, intPtr(3))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := f.repo.LicenseGrant.ConsumeSeat(context.Background(), f.org.OrganizationID, f.course.CourseID)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, granted)
	g, err := f.repo.LicenseGrant.GetByOrgCourse(context.Background(), f.org.OrganizationID, f.course.CourseID)
	require.NoError(t, err)
	assert.Equal(t, 3, g.UsedSeats)
}

func TestLicenseGrantRepo_UnlimitedOnlyCounts(t *testing.T) {
	f := newFixture(t)
	f.grant(t, model.AccessUnlimited, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, err := f.repo.LicenseGrant.ConsumeSeat(ctx, f.org.OrganizationID, f.course.CourseID)
		require.NoError(t, err)
		require.True(t, ok)
	}
	g, err := f.repo.LicenseGrant.GetByOrgCourse(ctx, f.org.OrganizationID, f.course.CourseID)
	require.NoError(t, err)
	assert.Equal(t, 5, g.UsedSeats)
}

func TestLicenseGrantRepo_ReleaseSeatNeverNegative(t *testing.T) {
	f := newFixture(t)
	f.grant(t, model.AccessLicensed, intPtr(2))
	ctx := context.Background()

	ok, err := f.repo.LicenseGrant.ReleaseSeat(ctx, f.org.OrganizationID, f.course.CourseID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.repo.LicenseGrant.ConsumeSeat(ctx, f.org.OrganizationID, f.course.CourseID)
	require.NoError(t, err)
	ok, err = f.repo.LicenseGrant.ReleaseSeat(ctx, f.org.OrganizationID, f.course.CourseID)
	require.NoError(t, err)
	assert.True(t, ok)

	g, err := f.repo.LicenseGrant.GetByOrgCourse(ctx, f.org.OrganizationID, f.course.CourseID)
	require.NoError(t, err)
	assert.Equal(t, 0, g.UsedSeats)
}

func TestLicenseGrantRepo_RevokedGrantGivesNoSeats(t *testing.T) {
	f := newFixture(t)
	g := f.grant(t, model.AccessLicensed, intPtr(5))
	ctx := context.Background()

	revoked, err := f.repo.LicenseGrant.Revoke(ctx, g.LicenseGrantID, time.Now(), f.user.UserID)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = f.repo.LicenseGrant.Revoke(ctx, g.LicenseGrantID, time.Now(), f.user.UserID)
	require.NoError(t, err)
	assert.False(t, revoked, "second revoke must be a no-op")

	ok, err := f.repo.LicenseGrant.ConsumeSeat(ctx, f.org.OrganizationID, f.course.CourseID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLicenseGrantRepo_UpdateTermsGuardsUsedSeats(t *testing.T) {
	f := newFixture(t)
	g := f.grant(t, model.AccessLicensed, intPtr(5))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.repo.LicenseGrant.ConsumeSeat(ctx, f.org.OrganizationID, f.course.CourseID)
		require.NoError(t, err)
	}

	g.TotalSeats = intPtr(2)
	err := f.repo.LicenseGrant.UpdateTerms(ctx, g)
	assert.ErrorIs(t, err, pkgerrors.ErrOptimisticLock)

	g.TotalSeats = intPtr(3)
	require.NoError(t, f.repo.LicenseGrant.UpdateTerms(ctx, g))
	assert.Equal(t, 2, g.Version)

	stale := *g
	stale.Version = 1
	assert.ErrorIs(t, f.repo.LicenseGrant.UpdateTerms(ctx, &stale), pkgerrors.ErrOptimisticLock)
}

func TestLicenseGrantRepo_AddSeats(t *testing.T) {
	f := newFixture(t)
	g := f.grant(t, model.AccessLicensed, intPtr(1))
	ctx := context.Background()

	require.NoError(t, f.repo.LicenseGrant.AddSeats(ctx, g.LicenseGrantID, 4, f.user.UserID))
	got, err := f.repo.LicenseGrant.GetByID(ctx, g.LicenseGrantID)
	require.NoError(t, err)
	require.NotNil(t, got.TotalSeats)
	assert.Equal(t, 5, *got.TotalSeats)

	unlimited := newFixture(t)
	ug := unlimited.grant(t, model.AccessUnlimited, nil)
	err = unlimited.repo.LicenseGrant.AddSeats(ctx, ug.LicenseGrantID, 4, f.user.UserID)
	assert.True(t, repository.IsNotFound(err))
}

// ────────────────────── Enrollments ──────────────────────

func TestEnrollmentRepo_RevokeAndReactivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e := &model.Enrollment{
		UserID:         f.user.UserID,
		CourseID:       f.course.CourseID,
		OrganizationID: f.org.OrganizationID,
		GrantedVia:     model.GrantedViaLicense,
		Status:         model.EnrollmentActive,
		SeatHeld:       true,
	}
	e.Version = 1
	require.NoError(t, f.repo.Enrollment.Create(ctx, e))

	dup := *e
	dup.EnrollmentID = ""
	assert.True(t, repository.IsDuplicateKey(f.repo.Enrollment.Create(ctx, &dup)))

	stale := *e
	require.NoError(t, f.repo.Enrollment.MarkRevoked(ctx, e, time.Now(), f.user.UserID))
	assert.False(t, e.SeatHeld)
	assert.ErrorIs(t, f.repo.Enrollment.MarkRevoked(ctx, &stale, time.Now(), f.user.UserID), pkgerrors.ErrOptimisticLock)

	e.GrantedVia = model.GrantedViaDirect
	require.NoError(t, f.repo.Enrollment.Reactivate(ctx, e))

	got, err := f.repo.Enrollment.Get(ctx, f.user.UserID, f.course.CourseID, f.org.OrganizationID)
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentActive, got.Status)
	assert.Equal(t, model.GrantedViaDirect, got.GrantedVia)
	assert.Nil(t, got.RevokedAt)
	assert.Equal(t, 3, got.Version)
}

// ────────────────────── Attempts ──────────────────────

func newQuiz(t *testing.T, f *fixture) *model.Quiz {
	t.Helper()
	quiz := &model.Quiz{
		CourseID:     f.course.CourseID,
		Title:        "Final",
		PassingScore: 70,
		Questions: []model.QuizQuestion{
			{Position: 2, Prompt: "second", QuestionType: model.QuestionTrueFalse, Points: 1,
				Options: []model.QuestionOption{{Position: 1, Label: "True", IsCorrect: true}, {Position: 2, Label: "False"}}},
			{Position: 1, Prompt: "first", QuestionType: model.QuestionSingleChoice, Points: 2,
				Options: []model.QuestionOption{{Position: 2, Label: "B"}, {Position: 1, Label: "A", IsCorrect: true}}},
		},
	}
	require.NoError(t, f.repo.Quiz.Create(context.Background(), quiz))
	return quiz
}

func TestQuizRepo_GetByIDOrdersQuestionsAndOptions(t *testing.T) {
	f := newFixture(t)
	quiz := newQuiz(t, f)

	got, err := f.repo.Quiz.GetByID(context.Background(), quiz.QuizID)
	require.NoError(t, err)
	require.Len(t, got.Questions, 2)
	assert.Equal(t, "first", got.Questions[0].Prompt)
	assert.Equal(t, "A", got.Questions[0].Options[0].Label)
	assert.Equal(t, 3, got.MaxScore())
}

func TestQuizAttemptRepo_Lifecycle(t *testing.T) {
	f := newFixture(t)
	quiz := newQuiz(t, f)
	ctx := context.Background()

	a := &model.QuizAttempt{UserID: f.user.UserID, QuizID: quiz.QuizID, AttemptNumber: 1, StartedAt: time.Now(), Version: 1}
	require.NoError(t, f.repo.Attempt.Create(ctx, a))

	clash := &model.QuizAttempt{UserID: f.user.UserID, QuizID: quiz.QuizID, AttemptNumber: 1, StartedAt: time.Now(), Version: 1}
	assert.True(t, repository.IsDuplicateKey(f.repo.Attempt.Create(ctx, clash)))

	q := quiz.Questions[0]
	require.NoError(t, f.repo.Attempt.TouchOpen(ctx, a.AttemptID, 1))
	require.NoError(t, f.repo.Attempt.UpsertAnswer(ctx, &model.QuizAnswer{
		AttemptID: a.AttemptID, QuestionID: q.QuestionID, SelectedOptionID: q.Options[1].OptionID, AnsweredAt: time.Now(),
	}))
	require.NoError(t, f.repo.Attempt.UpsertAnswer(ctx, &model.QuizAnswer{
		AttemptID: a.AttemptID, QuestionID: q.QuestionID, SelectedOptionID: q.Options[0].OptionID,
		IsCorrect: true, PointsEarned: 1, AnsweredAt: time.Now(),
	}))

	got, err := f.repo.Attempt.GetByID(ctx, a.AttemptID)
	require.NoError(t, err)
	require.Len(t, got.Answers, 1, "re-answering replaces the earlier answer")
	assert.True(t, got.Answers[0].IsCorrect)
	assert.Equal(t, 2, got.Version)

	now := time.Now()
	got.CompletedAt = &now
	got.Score, got.MaxScore, got.Percentage, got.Passed = 1, 3, 33, false
	require.NoError(t, f.repo.Attempt.Finalize(ctx, got))

	again := *got
	again.Version = 3
	assert.ErrorIs(t, f.repo.Attempt.Finalize(ctx, &again), pkgerrors.ErrOptimisticLock, "completed attempts are immutable")
	assert.ErrorIs(t, f.repo.Attempt.TouchOpen(ctx, a.AttemptID, got.Version), pkgerrors.ErrOptimisticLock)

	count, err := f.repo.Attempt.CountByUserQuiz(ctx, f.user.UserID, quiz.QuizID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

// ────────────────────── Certificates ──────────────────────

func TestCertificateRepo_UniquePerUserCourse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cert := &model.Certificate{
		UserID:           f.user.UserID,
		CourseID:         f.course.CourseID,
		OrganizationID:   &f.org.OrganizationID,
		VerificationCode: "ABCD-EFGH-JKMN",
		IssuedAt:         time.Now(),
		Source:           map[string]interface{}{"type": "quiz_attempt"},
	}
	require.NoError(t, f.repo.Certificate.Create(ctx, cert))

	dup := &model.Certificate{UserID: f.user.UserID, CourseID: f.course.CourseID, VerificationCode: "PQRS-TUVW-XYZ2", IssuedAt: time.Now()}
	assert.True(t, repository.IsDuplicateKey(f.repo.Certificate.Create(ctx, dup)))

	got, err := f.repo.Certificate.GetByCode(ctx, "ABCD-EFGH-JKMN")
	require.NoError(t, err)
	require.NotNil(t, got.User)
	require.NotNil(t, got.Course)
	require.NotNil(t, got.Organization)
	assert.Equal(t, "Sam", got.User.Name)
	assert.Equal(t, "quiz_attempt", got.Source["type"])

	_, err = f.repo.Certificate.GetByCode(ctx, "NOPE-NOPE-NOPE")
	assert.True(t, repository.IsNotFound(err))
}

func TestRepository_TransactionRollsBack(t *testing.T) {
	f := newFixture(t)
	f.grant(t, model.AccessLicensed, intPtr(1))
	ctx := context.Background()

	err := f.repo.Transaction(ctx, func(tx *repository.Repository) error {
		ok, err := tx.LicenseGrant.ConsumeSeat(ctx, f.org.OrganizationID, f.course.CourseID)
		require.NoError(t, err)
		require.True(t, ok)
		return pkgerrors.ErrOptimisticLock
	})
	assert.ErrorIs(t, err, pkgerrors.ErrOptimisticLock)

	g, err := f.repo.LicenseGrant.GetByOrgCourse(ctx, f.org.OrganizationID, f.course.CourseID)
	require.NoError(t, err)
	assert.Equal(t, 0, g.UsedSeats)
}
