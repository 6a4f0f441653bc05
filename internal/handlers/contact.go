package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ascendhq/ascend/internal/middleware"
	"github.com/ascendhq/ascend/internal/services"
	appErrors "github.com/ascendhq/ascend/pkg/errors"
	"github.com/ascendhq/ascend/pkg/response"
)

// ContactHandler serves the public contact form.
type ContactHandler struct {
	contact *services.ContactService
}

func NewContactHandler(contact *services.ContactService) *ContactHandler {
	return &ContactHandler{contact: contact}
}

type contactRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=300"`
	Message string `json:"message" validate:"required,max=5000"`
}

// Submit handles POST /api/contact. Authentication is optional; a signed-in
// user's ID is attached to the message for support context.
func (h *ContactHandler) Submit(c *gin.Context) {
	var req contactRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input := services.SubmitInput{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	}
	if user, ok := middleware.CurrentUser(c); ok {
		input.UserID = user.ID
	}

	msg, err := h.contact.Submit(requestContext(c), input)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"message": "Thanks for reaching out. We'll get back to you soon.",
		"id":      msg.ID,
	})
}
