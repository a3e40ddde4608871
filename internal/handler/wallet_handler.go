package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mojagap/moja-node/shared/cqrs"
	"github.com/mojagap/moja-node/shared/middleware"
	"github.com/mojagap/moja-node/shared/models"
)

type WalletCommander interface {
	Deposit(context.Context, cqrs.DepositCommand) (*models.WalletTransaction, error)
	ApplyWalletCharges(context.Context, cqrs.ApplyWalletChargeCommand) ([]uint, error)
}

type ApplyWalletChargesResponse struct {
	WalletIDs []uint `json:"walletIds"`
}

type WalletHandler struct {
	commands WalletCommander
}

func NewWalletHandler(commands WalletCommander) *WalletHandler {
	return &WalletHandler{commands: commands}
}

func (h *WalletHandler) Deposit(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	walletID, ok := pathID(c)
	if !ok {
		return
	}

	var req cqrs.DepositCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.ActorID = userID
	req.WalletID = walletID

	txn, err := h.commands.Deposit(c.Request.Context(), req)
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, txn)
}

func (h *WalletHandler) ApplyWalletCharges(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req cqrs.ApplyWalletChargeCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}
	req.ActorID = userID

	ids, err := h.commands.ApplyWalletCharges(c.Request.Context(), req)
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, ApplyWalletChargesResponse{WalletIDs: ids})
}
