package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mojagap/moja-node/shared/apperr"
	"github.com/mojagap/moja-node/shared/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestIsStrongPassword(t *testing.T) {
	tests := []struct {
		password string
		want     bool
	}{
		{"Str0ng!Pass", true},
		{"Sh0rt!", false},
		{"alllower1!", false},
		{"ALLUPPER1!", false},
		{"NoDigits!!", false},
		{"NoSpecial12", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStrongPassword(tt.password))
		})
	}
}

func TestValidate_StrongPasswordTag(t *testing.T) {
	type input struct {
		Password string `validate:"required,strongpassword"`
	}

	err := Validate(input{Password: "weak"})
	verr, ok := apperr.IsValidationError(err)
	require.True(t, ok)
	require.Len(t, verr.Details, 1)
	assert.Equal(t, "Password", verr.Details[0].Field)
	assert.Equal(t, "strongpassword", verr.Details[0].Type)

	assert.NoError(t, Validate(input{Password: "Str0ng!Pass"}))
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	type input struct {
		Email string `json:"email,omitempty" validate:"required,email"`
	}

	details := ValidateRequest(input{Email: "not-an-email"})
	require.Len(t, details, 1)
	assert.Equal(t, "email", details[0].Field)
	assert.Equal(t, "Invalid email format", details[0].Message)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperr.NewValidationError("bad"), http.StatusBadRequest},
		{"authorization", apperr.NewAuthorizationError("no"), http.StatusForbidden},
		{"credentials", apperr.NewInvalidCredentialsError("no"), http.StatusUnauthorized},
		{"not found", apperr.NewNotFoundError("Company", "ID"), http.StatusNotFound},
		{"conflict", apperr.NewConflictError("account", "active"), http.StatusConflict},
		{"unsupported", apperr.NewUnsupportedOperationError("no"), http.StatusUnprocessableEntity},
		{"integration", apperr.NewIntegrationError("users", 500, errors.New("boom")), http.StatusBadGateway},
		{"wrapped", fmt.Errorf("context: %w", apperr.NewNotFoundError("User", "ID")), http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	secret := []byte("middleware-test-secret")
	valid, err := token.Issue("a@x.com", 7, []string{"SUPER_PERMISSION"}, secret, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name           string
		header         string
		expectedStatus int
	}{
		{"valid token", "Bearer " + valid, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/", AuthMiddleware(secret), func(c *gin.Context) {
				id, ok := GetUserID(c)
				require.True(t, ok)
				assert.Equal(t, uint(7), id)
				assert.Equal(t, []string{"SUPER_PERMISSION"}, GetAuthorities(c))
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}
