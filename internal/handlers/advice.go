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

// AdviceHandler serves the saved advice API.
type AdviceHandler struct {
	advice *services.AdviceService
}

func NewAdviceHandler(advice *services.AdviceService) *AdviceHandler {
	return &AdviceHandler{advice: advice}
}

type saveAdviceRequest struct {
	SessionID      string `json:"sessionId"`
	CoachType      string `json:"coachType" validate:"required"`
	MessageContent string `json:"messageContent" validate:"required,max=10000"`
}

// Save handles POST /api/saved-advice.
func (h *AdviceHandler) Save(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrAuthenticationRequired)
		return
	}

	var req saveAdviceRequest
	if !bindAndValidate(c, &req) {
		return
	}

	saved, err := h.advice.Save(user.ID, services.SaveInput{
		SessionID:      req.SessionID,
		CoachType:      req.CoachType,
		MessageContent: req.MessageContent,
	})
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"advice": saved})
}

// List handles GET /api/saved-advice.
func (h *AdviceHandler) List(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrAuthenticationRequired)
		return
	}

	items, err := h.advice.List(user.ID)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"advice": items})
}

// Delete handles DELETE /api/saved-advice/:id.
func (h *AdviceHandler) Delete(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrAuthenticationRequired)
		return
	}

	if err := h.advice.Delete(user.ID, c.Param("id")); err != nil {
		if errors.Is(err, services.ErrAdviceNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Advice deleted"})
}
