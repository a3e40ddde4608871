package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mojagap/moja-node/shared/cqrs"
	"github.com/mojagap/moja-node/shared/middleware"
	"github.com/mojagap/moja-node/shared/models"
)

// AccountCommander defines the write-side operations used by AccountHandler.
type AccountCommander interface {
	CreateAccount(context.Context, cqrs.CreateAccountCommand) (*models.AppUserView, error)
	AuthenticateUser(context.Context, cqrs.LoginCommand) (*models.AppUserView, error)
	UpdateAccount(context.Context, cqrs.UpdateAccountCommand) (*models.ActionResponse, error)
	ActivateAccount(context.Context, cqrs.ActivateAccountCommand) (*models.ActionResponse, error)
}

// AccountHandler handles account onboarding and login.
type AccountHandler struct {
	commands AccountCommander
}

func NewAccountHandler(commands AccountCommander) *AccountHandler {
	return &AccountHandler{commands: commands}
}

func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req cqrs.CreateAccountCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	view, err := h.commands.CreateAccount(c.Request.Context(), req)
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}

	c.Header(AuthenticationHeader, view.Authentication)
	c.JSON(http.StatusCreated, view)
}

func (h *AccountHandler) Login(c *gin.Context) {
	cmd, ok := bindLogin(c)
	if !ok {
		return
	}

	view, err := h.commands.AuthenticateUser(c.Request.Context(), cmd)
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}

	c.Header(AuthenticationHeader, view.Authentication)
	c.JSON(http.StatusOK, view)
}

func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req cqrs.UpdateAccountCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.ActorID = userID

	resp, err := h.commands.UpdateAccount(c.Request.Context(), req)
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AccountHandler) ActivateAccount(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	accountID, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := h.commands.ActivateAccount(c.Request.Context(), cqrs.ActivateAccountCommand{
		ActorID:   userID,
		AccountID: accountID,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
