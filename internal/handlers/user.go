package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ascendhq/ascend/internal/middleware"
	"github.com/ascendhq/ascend/internal/services"
	appErrors "github.com/ascendhq/ascend/pkg/errors"
	"github.com/ascendhq/ascend/pkg/response"
)

// UserHandler serves profile and notification preference updates.
type UserHandler struct {
	profiles *services.ProfileService
}

func NewUserHandler(profiles *services.ProfileService) *UserHandler {
	return &UserHandler{profiles: profiles}
}

type profileRequest struct {
	FirstName        *string  `json:"firstName" validate:"omitempty,max=100"`
	LastName         *string  `json:"lastName" validate:"omitempty,max=100"`
	CurrentRole      *string  `json:"currentRole" validate:"omitempty,max=200"`
	Industry         *string  `json:"industry" validate:"omitempty,max=200"`
	CareerStage      *string  `json:"careerStage" validate:"omitempty,max=100"`
	FiveYearGoal     *string  `json:"fiveYearGoal" validate:"omitempty,max=1000"`
	BiggestChallenge *string  `json:"biggestChallenge" validate:"omitempty,max=1000"`
	WorkEnvironment  *string  `json:"workEnvironment" validate:"omitempty,max=200"`
	PrimaryCoaches   []string `json:"primaryCoaches"`
}

// UpdateProfile handles PATCH /api/user/profile.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrAuthenticationRequired)
		return
	}

	var req profileRequest
	if !bindAndValidate(c, &req) {
		return
	}

	updated, err := h.profiles.UpdateProfile(user.ID, services.ProfileUpdate{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		CurrentRole:      req.CurrentRole,
		Industry:         req.Industry,
		CareerStage:      req.CareerStage,
		FiveYearGoal:     req.FiveYearGoal,
		BiggestChallenge: req.BiggestChallenge,
		WorkEnvironment:  req.WorkEnvironment,
		PrimaryCoaches:   req.PrimaryCoaches,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTooManyPrimaryCoaches), errors.Is(err, services.ErrUnknownCoachType):
			response.Error(c, appErrors.NewBadRequest(err.Error()))
		case errors.Is(err, gorm.ErrRecordNotFound):
			response.Error(c, appErrors.ErrNotFound)
		default:
			response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": updated})
}

type notificationsRequest struct {
	EmailNotifications *bool `json:"emailNotifications"`
	MarketingEmails    *bool `json:"marketingEmails"`
	WeeklyDigest       *bool `json:"weeklyDigest"`
	CoachingReminders  *bool `json:"coachingReminders"`
}

// UpdateNotifications handles PATCH /api/user/notifications.
func (h *UserHandler) UpdateNotifications(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrAuthenticationRequired)
		return
	}

	var req notificationsRequest
	if !bindAndValidate(c, &req) {
		return
	}

	updated, err := h.profiles.UpdateNotifications(user.ID, services.NotificationUpdate{
		EmailNotifications: req.EmailNotifications,
		MarketingEmails:    req.MarketingEmails,
		WeeklyDigest:       req.WeeklyDigest,
		CoachingReminders:  req.CoachingReminders,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": updated})
}
