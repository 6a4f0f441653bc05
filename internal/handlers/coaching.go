package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ascendhq/ascend/internal/middleware"
	"github.com/ascendhq/ascend/internal/services"
	appErrors "github.com/ascendhq/ascend/pkg/errors"
	"github.com/ascendhq/ascend/pkg/response"
)

// CoachingHandler serves the coaching session API.
type CoachingHandler struct {
	coaching *services.CoachingService
}

func NewCoachingHandler(coaching *services.CoachingService) *CoachingHandler {
	return &CoachingHandler{coaching: coaching}
}

func mapCoachingError(err error) error {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		return appErrors.ErrNotFound
	case errors.Is(err, services.ErrUnknownCoachType):
		return appErrors.NewBadRequest(err.Error())
	default:
		return appErrors.ErrInternalServer.WithInternal(err)
	}
}

type createSessionRequest struct {
	CoachType string `json:"coachType" validate:"required"`
}

// Create handles POST /api/coaching-sessions.
func (h *CoachingHandler) Create(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrAuthenticationRequired)
		return
	}

	var req createSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	session, err := h.coaching.Create(user.ID, req.CoachType)
	if err != nil {
		response.Error(c, mapCoachingError(err))
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": session})
}

// List handles GET /api/coaching-sessions.
func (h *CoachingHandler) List(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrAuthenticationRequired)
		return
	}

	sessions, err := h.coaching.List(user.ID)
	if err != nil {
		response.Error(c, mapCoachingError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sessions": sessions})
}

// Get handles GET /api/coaching-sessions/:id.
func (h *CoachingHandler) Get(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrAuthenticationRequired)
		return
	}

	session, err := h.coaching.Get(user.ID, c.Param("id"))
	if err != nil {
		response.Error(c, mapCoachingError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

type updateSessionRequest struct {
	Hearted *bool `json:"hearted"`
}

// Update handles PATCH /api/coaching-sessions/:id.
func (h *CoachingHandler) Update(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrAuthenticationRequired)
		return
	}

	var req updateSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	session, err := h.coaching.Update(user.ID, c.Param("id"), services.SessionUpdate{Hearted: req.Hearted})
	if err != nil {
		response.Error(c, mapCoachingError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

type chatRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// Chat handles POST /api/coaching-sessions/:id/chat.
func (h *CoachingHandler) Chat(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrAuthenticationRequired)
		return
	}

	var req chatRequest
	if !bindAndValidate(c, &req) {
		return
	}

	turn, err := h.coaching.AppendChatTurn(requestContext(c), user, c.Param("id"), req.Message)
	if err != nil {
		response.Error(c, mapCoachingError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"userMessage":  turn.UserMessage,
		"coachMessage": turn.CoachMessage,
	})
}

// GenerateSummary handles POST /api/coaching-sessions/:id/generate-summary.
func (h *CoachingHandler) GenerateSummary(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrAuthenticationRequired)
		return
	}

	summary, err := h.coaching.GenerateSummary(requestContext(c), user.ID, c.Param("id"))
	if err != nil {
		response.Error(c, mapCoachingError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"summary": summary})
}

// DetailedAnalysis handles POST /api/coaching-sessions/:id/detailed-analysis.
func (h *CoachingHandler) DetailedAnalysis(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrAuthenticationRequired)
		return
	}

	analysis, err := h.coaching.DetailedAnalysis(requestContext(c), user.ID, c.Param("id"))
	if err != nil {
		response.Error(c, mapCoachingError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"analysis": analysis})
}
