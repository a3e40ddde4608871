package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mojagap/moja-node/shared/cqrs"
	"github.com/mojagap/moja-node/shared/middleware"
)

const (
	// AuthenticationHeader carries the bearer token issued by a login.
	AuthenticationHeader = "Authentication"
	// EmailHeader and PasswordHeader carry login credentials as an alternative to the body.
	EmailHeader    = "X-Auth-Email"
	PasswordHeader = "X-Auth-Password"
)

// pathID parses the :id route parameter, writing a 400 on failure.
func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid ID")
		return 0, false
	}
	return uint(id), true
}

// actorID returns the authenticated caller, writing a 401 when it is missing.
func actorID(c *gin.Context) (uint, bool) {
	id, ok := middleware.GetUserID(c)
	if !ok || id == 0 {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Authentication required")
		return 0, false
	}
	return id, true
}

// bindLogin reads credentials from the optional JSON body and the
// X-Auth-Email / X-Auth-Password headers.
func bindLogin(c *gin.Context) (cqrs.LoginCommand, bool) {
	var cmd cqrs.LoginCommand
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&cmd); err != nil {
			middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
			return cmd, false
		}
	}
	cmd.HeaderEmail = c.GetHeader(EmailHeader)
	cmd.HeaderPassword = c.GetHeader(PasswordHeader)
	return cmd, true
}

func queryParams(c *gin.Context) map[string]string {
	params := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return params
}
