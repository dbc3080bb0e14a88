package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"ntraining/backend/internal/dto"
	"ntraining/backend/internal/service"
	"ntraining/backend/pkg/response"
)

// codeTimeExpired is sent with HTTP 200: the attempt was finalized and the
// result is in data.
const codeTimeExpired = 22208

// AttemptHandler quiz attempt endpoints. Every call acts on the caller's own
// attempts.
type AttemptHandler struct {
	attemptSvc service.AttemptService
}

// NewAttemptHandler creates an AttemptHandler
func NewAttemptHandler(attemptSvc service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attemptSvc: attemptSvc}
}

// StartAttempt opens a new attempt
// POST /api/v1/quizzes/:id/attempts
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	attempt, err := h.attemptSvc.StartAttempt(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleAttemptError(c, attempt, err)
		return
	}

	response.Created(c, attempt)
}

// ListAttempts the caller's attempts at a quiz
// GET /api/v1/quizzes/:id/attempts
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.attemptSvc.ListAttempts(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleAttemptError(c, nil, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// GetAttempt status check
// GET /api/v1/attempts/:id
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	attempt, err := h.attemptSvc.GetAttempt(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.handleAttemptError(c, attempt, err)
		return
	}

	response.OK(c, attempt)
}

// RecordAnswer answers or re-answers one question
// PUT /api/v1/attempts/:id/answers
func (h *AttemptHandler) RecordAnswer(c *gin.Context) {
	var req dto.RecordAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "invalid request parameters")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	attempt, err := h.attemptSvc.RecordAnswer(c.Request.Context(), c.Param("id"), userID, &req)
	if err != nil {
		h.handleAttemptError(c, attempt, err)
		return
	}

	response.OK(c, attempt)
}

// SubmitAttempt finalizes and grades the attempt
// POST /api/v1/attempts/:id/submit
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	attempt, err := h.attemptSvc.SubmitAttempt(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.handleAttemptError(c, attempt, err)
		return
	}

	response.OK(c, attempt)
}

func (h *AttemptHandler) handleAttemptError(c *gin.Context, attempt *dto.AttemptResponse, err error) {
	switch {
	case errors.Is(err, service.ErrTimeExpired) && attempt != nil:
		response.OKWithCode(c, codeTimeExpired, "time limit expired, attempt was submitted automatically", attempt)
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, 22201, "quiz or attempt not found")
	case errors.Is(err, service.ErrNotEligible):
		response.Forbidden(c, 22202, "not eligible for this quiz")
	case errors.Is(err, service.ErrAttemptLimitReached):
		response.Conflict(c, 22203, "maximum number of attempts reached")
	case errors.Is(err, service.ErrInvalidQuiz):
		response.Conflict(c, 22204, "quiz has no questions")
	case errors.Is(err, service.ErrAttemptAlreadyCompleted):
		response.Conflict(c, 22205, "attempt is already completed")
	case errors.Is(err, service.ErrInvalidAnswer):
		response.BadRequest(c, 22206, "question or option does not belong to this quiz")
	default:
		response.InternalError(c)
	}
}
