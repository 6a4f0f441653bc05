package handlers

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/ascendhq/ascend/pkg/errors"
	"github.com/ascendhq/ascend/pkg/response"
	appValidator "github.com/ascendhq/ascend/pkg/validator"
)

// bindAndValidate binds the JSON payload into dest and runs struct validation
// rules. When validation fails, an error response is written and false is
// returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if details := appValidator.ValidateStruct(dest); len(details) > 0 {
		response.Error(c, appErrors.NewValidation(details...))
		return false
	}

	return true
}
