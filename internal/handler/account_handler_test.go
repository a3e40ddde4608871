package handler

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mojagap/moja-node/shared/apperr"
	"github.com/mojagap/moja-node/shared/cqrs"
	"github.com/mojagap/moja-node/shared/models"
)

// ---- mock implementations ----

type mockAccountCommander struct {
	createFn   func(cqrs.CreateAccountCommand) (*models.AppUserView, error)
	loginFn    func(cqrs.LoginCommand) (*models.AppUserView, error)
	updateFn   func(cqrs.UpdateAccountCommand) (*models.ActionResponse, error)
	activateFn func(cqrs.ActivateAccountCommand) (*models.ActionResponse, error)
}

func (m *mockAccountCommander) CreateAccount(_ context.Context, cmd cqrs.CreateAccountCommand) (*models.AppUserView, error) {
	if m.createFn != nil {
		return m.createFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockAccountCommander) AuthenticateUser(_ context.Context, cmd cqrs.LoginCommand) (*models.AppUserView, error) {
	if m.loginFn != nil {
		return m.loginFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockAccountCommander) UpdateAccount(_ context.Context, cmd cqrs.UpdateAccountCommand) (*models.ActionResponse, error) {
	if m.updateFn != nil {
		return m.updateFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockAccountCommander) ActivateAccount(_ context.Context, cmd cqrs.ActivateAccountCommand) (*models.ActionResponse, error) {
	if m.activateFn != nil {
		return m.activateFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}

func newAccountTestRouter(cmds AccountCommander, authUserID uint) *gin.Engine {
	r := newTestEngine(authUserID)
	h := NewAccountHandler(cmds)
	r.POST("/v1/accounts", h.CreateAccount)
	r.POST("/v1/auth/login", h.Login)
	r.PUT("/v1/accounts", h.UpdateAccount)
	r.PUT("/v1/accounts/:id/activate", h.ActivateAccount)
	return r
}

// ---- test data ----

var aTestUserView = &models.AppUserView{
	ID: 1, FirstName: "Amina", LastName: "Okello", Email: "amina@example.com",
	UserStatus:     models.RecordStatusActive,
	Authentication: "signed.jwt.token",
	Account:        &models.AccountSummary{ID: 1, AccountType: models.AccountTypeIndividual, CountryCode: "UG"},
}

func aValidCreateAccountBody() map[string]interface{} {
	return map[string]interface{}{
		"accountType": "INDIVIDUAL",
		"countryCode": "UG",
		"appUsers": []map[string]interface{}{{
			"firstName": "Amina", "lastName": "Okello",
			"email": "amina@example.com", "password": "Str0ng!Pass",
		}},
	}
}

// ---- tests ----

func TestCreateAccountHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		createFn       func(cqrs.CreateAccountCommand) (*models.AppUserView, error)
		expectedStatus int
	}{
		{
			name:           "success - individual account",
			body:           aValidCreateAccountBody(),
			createFn:       func(cmd cqrs.CreateAccountCommand) (*models.AppUserView, error) { return aTestUserView, nil },
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "bad request - malformed json",
			body:           "{not json",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - unknown country code",
			body:           map[string]interface{}{"accountType": "INDIVIDUAL", "countryCode": "XX"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "bad request - weak password",
			body: map[string]interface{}{
				"accountType": "INDIVIDUAL", "countryCode": "UG",
				"appUsers": []map[string]interface{}{{"firstName": "A", "lastName": "B", "email": "a@b.test", "password": "weak"}},
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unprocessable - partner accounts",
			body: aValidCreateAccountBody(),
			createFn: func(cmd cqrs.CreateAccountCommand) (*models.AppUserView, error) {
				return nil, apperr.NewUnsupportedOperationError(apperr.MsgPartnerNotSupported)
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "conflict - email taken",
			body: aValidCreateAccountBody(),
			createFn: func(cmd cqrs.CreateAccountCommand) (*models.AppUserView, error) {
				return nil, apperr.NewConflictError("user", apperr.MsgEmailAlreadyRegistered)
			},
			expectedStatus: http.StatusConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAccountTestRouter(&mockAccountCommander{createFn: tt.createFn}, 0)
			w := doRequest(router, http.MethodPost, "/v1/accounts", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
			if w.Code == http.StatusCreated && w.Header().Get(AuthenticationHeader) != aTestUserView.Authentication {
				t.Errorf("[%s] expected Authentication header to carry the token", tt.name)
			}
		})
	}
}

func TestLoginHandler(t *testing.T) {
	var got cqrs.LoginCommand
	loginFn := func(cmd cqrs.LoginCommand) (*models.AppUserView, error) {
		got = cmd
		if cmd.HeaderPassword == "wrong" {
			return nil, apperr.NewInvalidCredentialsError(apperr.MsgInvalidCredentials)
		}
		return aTestUserView, nil
	}
	router := newAccountTestRouter(&mockAccountCommander{loginFn: loginFn}, 0)

	w := doRequest(router, http.MethodPost, "/v1/auth/login", nil,
		"X-Auth-Email", "amina@example.com", "X-Auth-Password", "Str0ng!Pass")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body: %s", w.Code, w.Body.String())
	}
	if got.HeaderEmail != "amina@example.com" || got.HeaderPassword != "Str0ng!Pass" {
		t.Errorf("expected header credentials to be forwarded, got %+v", got)
	}
	if w.Header().Get(AuthenticationHeader) == "" {
		t.Errorf("expected Authentication header")
	}

	w = doRequest(router, http.MethodPost, "/v1/auth/login", map[string]string{"email": "amina@example.com", "password": "x"},
		"X-Auth-Email", "amina@example.com", "X-Auth-Password", "wrong")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d; body: %s", w.Code, w.Body.String())
	}
	if got.Email != "amina@example.com" {
		t.Errorf("expected body credentials to be forwarded, got %+v", got)
	}
}

func TestUpdateAccountHandler(t *testing.T) {
	tests := []struct {
		name           string
		authUserID     uint
		updateFn       func(cqrs.UpdateAccountCommand) (*models.ActionResponse, error)
		expectedStatus int
	}{
		{
			name:       "success - actor taken from token",
			authUserID: 7,
			updateFn: func(cmd cqrs.UpdateAccountCommand) (*models.ActionResponse, error) {
				if cmd.ActorID != 7 {
					return nil, fmt.Errorf("unexpected actor %d", cmd.ActorID)
				}
				return &models.ActionResponse{ID: 3}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unauthorized - no caller",
			authUserID:     0,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:       "internal error - unexpected failure",
			authUserID: 7,
			updateFn: func(cmd cqrs.UpdateAccountCommand) (*models.ActionResponse, error) {
				return nil, fmt.Errorf("connection reset")
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAccountTestRouter(&mockAccountCommander{updateFn: tt.updateFn}, tt.authUserID)
			w := doRequest(router, http.MethodPut, "/v1/accounts", map[string]interface{}{"accountType": "INDIVIDUAL", "countryCode": "UG"})
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestActivateAccountHandler(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		activateFn     func(cqrs.ActivateAccountCommand) (*models.ActionResponse, error)
		expectedStatus int
	}{
		{
			name: "success - activate own account",
			path: "/v1/accounts/3/activate",
			activateFn: func(cmd cqrs.ActivateAccountCommand) (*models.ActionResponse, error) {
				return &models.ActionResponse{ID: cmd.AccountID}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "bad request - non numeric id",
			path:           "/v1/accounts/abc/activate",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "conflict - already active",
			path: "/v1/accounts/3/activate",
			activateFn: func(cmd cqrs.ActivateAccountCommand) (*models.ActionResponse, error) {
				return nil, apperr.NewConflictError("account", apperr.MsgAccountAlreadyActive)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "not found - no such account",
			path: "/v1/accounts/99/activate",
			activateFn: func(cmd cqrs.ActivateAccountCommand) (*models.ActionResponse, error) {
				return nil, apperr.NewNotFoundError("Account", "ID")
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "forbidden - another tenant",
			path: "/v1/accounts/4/activate",
			activateFn: func(cmd cqrs.ActivateAccountCommand) (*models.ActionResponse, error) {
				return nil, apperr.NewAuthorizationError(apperr.MsgNotPermittedOnAccount)
			},
			expectedStatus: http.StatusForbidden,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAccountTestRouter(&mockAccountCommander{activateFn: tt.activateFn}, 1)
			w := doRequest(router, http.MethodPut, tt.path, nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}
