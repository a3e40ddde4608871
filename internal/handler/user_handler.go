package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mojagap/moja-node/shared/cqrs"
	"github.com/mojagap/moja-node/shared/middleware"
	"github.com/mojagap/moja-node/shared/models"
)

// UserCommander defines the write-side operations used by UserHandler.
type UserCommander interface {
	CreateUser(context.Context, cqrs.CreateUserCommand) (*models.AppUserView, error)
	AuthenticateUser(context.Context, cqrs.LoginCommand) (*models.UserSummary, error)
	UpdateUser(context.Context, cqrs.UpdateUserCommand) (*models.UserSummary, error)
	RemoveUser(context.Context, cqrs.RemoveUserCommand) (*models.UserSummary, error)
	CreateExternalUser(context.Context, models.ExternalUser) (*models.ExternalUser, error)
}

// UserQuerier defines the read-side operations used by UserHandler.
type UserQuerier interface {
	GetAppUsersByQueryParams(ctx context.Context, actorID uint, params map[string]string) (*models.RecordHolder[models.AppUserView], error)
	GetUser(context.Context, cqrs.GetUserQuery) (*models.AppUserView, error)
	GetExternalUserByID(context.Context, cqrs.GetExternalUserQuery) (*models.ExternalUser, error)
	GetExternalUsers(ctx context.Context, actorID uint) ([]models.AppUserView, error)
}

// UserHandler handles user management and the external user bridge.
type UserHandler struct {
	commands UserCommander
	queries  UserQuerier
}

func NewUserHandler(commands UserCommander, queries UserQuerier) *UserHandler {
	return &UserHandler{commands: commands, queries: queries}
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	holder, err := h.queries.GetAppUsersByQueryParams(c.Request.Context(), userID, queryParams(c))
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, holder)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	targetID, ok := pathID(c)
	if !ok {
		return
	}

	view, err := h.queries.GetUser(c.Request.Context(), cqrs.GetUserQuery{
		UserID:           targetID,
		RequestingUserID: userID,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req cqrs.CreateUserCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}
	req.ActorID = userID

	view, err := h.commands.CreateUser(c.Request.Context(), req)
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

func (h *UserHandler) Login(c *gin.Context) {
	cmd, ok := bindLogin(c)
	if !ok {
		return
	}

	summary, err := h.commands.AuthenticateUser(c.Request.Context(), cmd)
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}

	c.Header(AuthenticationHeader, summary.Authentication)
	c.JSON(http.StatusOK, summary)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	targetID, ok := pathID(c)
	if !ok {
		return
	}

	var req cqrs.UpdateUserCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.ActorID = userID
	req.UserID = targetID

	summary, err := h.commands.UpdateUser(c.Request.Context(), req)
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *UserHandler) RemoveUser(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	targetID, ok := pathID(c)
	if !ok {
		return
	}

	summary, err := h.commands.RemoveUser(c.Request.Context(), cqrs.RemoveUserCommand{ActorID: userID, UserID: targetID})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *UserHandler) ListExternalUsers(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	users, err := h.queries.GetExternalUsers(c.Request.Context(), userID)
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) GetExternalUser(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid ID")
		return
	}

	user, err := h.queries.GetExternalUserByID(c.Request.Context(), cqrs.GetExternalUserQuery{ID: id, RequestingUserID: userID})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) CreateExternalUser(c *gin.Context) {
	if _, ok := actorID(c); !ok {
		return
	}

	var req models.ExternalUser
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.commands.CreateExternalUser(c.Request.Context(), req)
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}
