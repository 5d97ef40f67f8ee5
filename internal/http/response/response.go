// Package response provides shared HTTP response helpers, including the
// mapping from typed domain errors to transport responses.
package response

import (
	"net/http"

	"vakwerk_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

func Created(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusCreated, payload)
}

func Error(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// DomainError maps an apperr.Error to its HTTP status; anything else
// becomes a 500 with a generic message.
func DomainError(c *gin.Context, err error) {
	if domainErr, ok := err.(*apperr.Error); ok {
		Error(c, domainErr.HTTPStatus(), domainErr.Message, domainErr.Details)
		return
	}
	Error(c, http.StatusInternalServerError, "internal server error", nil)
}
