package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mojagap/moja-node/shared/cqrs"
	"github.com/mojagap/moja-node/shared/middleware"
	"github.com/mojagap/moja-node/shared/models"
)

type CompanyCommander interface {
	CreateCompany(context.Context, cqrs.CreateCompanyCommand) (*models.ActionResponse, error)
	UpdateCompany(context.Context, cqrs.UpdateCompanyCommand) (*models.ActionResponse, error)
	CloseCompany(context.Context, cqrs.CloseCompanyCommand) (*models.ActionResponse, error)
}

type CompanyHandler struct {
	commands CompanyCommander
}

func NewCompanyHandler(commands CompanyCommander) *CompanyHandler {
	return &CompanyHandler{commands: commands}
}

func (h *CompanyHandler) CreateCompany(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req cqrs.CreateCompanyCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}
	req.ActorID = userID

	resp, err := h.commands.CreateCompany(c.Request.Context(), req)
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *CompanyHandler) UpdateCompany(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	companyID, ok := pathID(c)
	if !ok {
		return
	}

	var req cqrs.UpdateCompanyCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.ActorID = userID
	req.CompanyID = companyID

	resp, err := h.commands.UpdateCompany(c.Request.Context(), req)
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *CompanyHandler) CloseCompany(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	companyID, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := h.commands.CloseCompany(c.Request.Context(), cqrs.CloseCompanyCommand{
		ActorID:   userID,
		CompanyID: companyID,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
