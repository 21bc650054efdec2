package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/joshu-sajeev/dailygist/common"
)

var validate = validator.New()

// Bind decodes the JSON body into dest and runs its validate tags. On failure
// it records a 400 on c and returns false.
func Bind[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.Error(common.Errf(http.StatusBadRequest, "invalid json: %v", err.Error()))
		return false
	}

	if err := validate.Struct(dest); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.Error(common.Wrap(http.StatusBadRequest, err, "invalid request body"))
			return false
		}
		c.Error(common.APIError{
			Status:  http.StatusBadRequest,
			Message: "validation failed",
			Fields:  FormatValidationErrors(verrs),
		})
		return false
	}

	return true
}

// FormatValidationErrors maps each failing field to "failed <tag>".
func FormatValidationErrors(verrs validator.ValidationErrors) map[string]any {
	fields := make(map[string]any, len(verrs))
	for _, e := range verrs {
		fields[e.Field()] = "failed " + e.Tag()
	}
	return fields
}
