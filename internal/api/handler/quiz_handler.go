package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"ntraining/backend/internal/dto"
	"ntraining/backend/internal/service"
	"ntraining/backend/pkg/response"
)

// QuizHandler quiz authoring and eligibility endpoints
type QuizHandler struct {
	quizSvc       service.QuizService
	enrollmentSvc service.EnrollmentService
}

// NewQuizHandler creates a QuizHandler
func NewQuizHandler(quizSvc service.QuizService, enrollmentSvc service.EnrollmentService) *QuizHandler {
	return &QuizHandler{quizSvc: quizSvc, enrollmentSvc: enrollmentSvc}
}

// CreateQuiz authors a quiz with its questions
// POST /api/v1/quizzes
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	var req dto.CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "invalid request parameters")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	quiz, err := h.quizSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	response.Created(c, quiz)
}

// GetQuiz quiz definition; correct answers only for platform admins
// GET /api/v1/quizzes/:id
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	quiz, err := h.quizSvc.Get(c.Request.Context(), c.Param("id"), isPlatformAdmin(c))
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	response.OK(c, quiz)
}

// Eligibility whether the caller may start the quiz now
// GET /api/v1/quizzes/:id/eligibility
func (h *QuizHandler) Eligibility(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	quizID := c.Param("id")
	eligible, err := h.enrollmentSvc.IsEligible(c.Request.Context(), userID, quizID)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	response.OK(c, dto.EligibilityResponse{QuizID: quizID, Eligible: eligible})
}

func (h *QuizHandler) handleQuizError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, 22101, "quiz or course not found")
	case errors.Is(err, service.ErrInvalidQuiz):
		response.BadRequest(c, 22102, err.Error())
	default:
		response.InternalError(c)
	}
}
