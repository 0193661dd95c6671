package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/AviRoy1988/receipe-api/internal/dto"
	"github.com/AviRoy1988/receipe-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// validationMessage turns one failed binding tag into a readable message.
func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "min":
		return fmt.Sprintf("ensure this field has at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("ensure this field has no more than %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed on %q", fe.Tag())
	}
}

// fieldName maps the Go field name back to the JSON key.
func fieldName(fe validator.FieldError) string {
	return strings.ToLower(fe.Field())
}

// respondBindError writes a 400 for a failed ShouldBind.
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fieldName(fe)] = validationMessage(fe)
		}
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid input", Fields: fields})
		return
	}
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "malformed request body"})
}

// respondUserError maps service errors on create/update to responses.
func respondUserError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:  "invalid input",
			Fields: map[string]string{"email": err.Error()},
		})
	case errors.Is(err, service.ErrEmailRequired):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:  "invalid input",
			Fields: map[string]string{"email": err.Error()},
		})
	case errors.Is(err, service.ErrPasswordTooShort), errors.Is(err, service.ErrPasswordTooLong):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:  "invalid input",
			Fields: map[string]string{"password": err.Error()},
		})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "user inactive or deleted"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: fallback})
	}
}
