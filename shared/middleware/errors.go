package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mojagap/moja-node/shared/apperr"
)

// StatusFor maps an error from the service layer to its HTTP status.
func StatusFor(err error) int {
	if _, ok := apperr.IsValidationError(err); ok {
		return http.StatusBadRequest
	}
	if authErr, ok := apperr.IsAuthorizationError(err); ok {
		if authErr.Unauthenticated {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	}
	if _, ok := apperr.IsNotFoundError(err); ok {
		return http.StatusNotFound
	}
	if _, ok := apperr.IsConflictError(err); ok {
		return http.StatusConflict
	}
	if _, ok := apperr.IsUnsupportedOperationError(err); ok {
		return http.StatusUnprocessableEntity
	}
	if _, ok := apperr.IsIntegrationError(err); ok {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// RespondWithAppError writes err using the shared error body. Unknown errors
// are reported with a generic message and recorded on the context for the
// request logger.
func RespondWithAppError(c *gin.Context, err error) {
	status := StatusFor(err)
	switch status {
	case http.StatusBadRequest:
		verr, _ := apperr.IsValidationError(err)
		c.JSON(status, BadRequestErrorResponse{Message: verr.Message, Details: verr.Details})
	case http.StatusUnauthorized, http.StatusForbidden:
		authErr, _ := apperr.IsAuthorizationError(err)
		RespondWithError(c, status, authErr.Message)
	case http.StatusConflict:
		conflict, _ := apperr.IsConflictError(err)
		RespondWithError(c, status, conflict.Message)
	case http.StatusInternalServerError:
		_ = c.Error(err)
		RespondWithError(c, status, "An unexpected error occurred")
	default:
		RespondWithError(c, status, err.Error())
	}
}
