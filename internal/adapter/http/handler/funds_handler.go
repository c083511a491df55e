package handler

import (
	"group-escrow-ledger/internal/adapter/http/dto"
	"group-escrow-ledger/internal/core/domain"
	"group-escrow-ledger/internal/core/ports"
	"group-escrow-ledger/pkg/apperror"
	"group-escrow-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// FundsHandler handles escrow deposit and withdrawal endpoints.
type FundsHandler struct {
	ledgerSvc ports.LedgerService
}

// NewFundsHandler creates a new FundsHandler.
func NewFundsHandler(ledgerSvc ports.LedgerService) *FundsHandler {
	return &FundsHandler{ledgerSvc: ledgerSvc}
}

// Deposit handles POST /api/v1/groups/:id/deposit.
func (h *FundsHandler) Deposit(c *gin.Context) {
	req, ok := h.bindFundsRequest(c)
	if !ok {
		return
	}

	result, err := h.ledgerSvc.Deposit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToFundsResponse(result))
}

// Withdraw handles POST /api/v1/groups/:id/withdraw.
func (h *FundsHandler) Withdraw(c *gin.Context) {
	req, ok := h.bindFundsRequest(c)
	if !ok {
		return
	}

	result, err := h.ledgerSvc.Withdraw(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToFundsResponse(result))
}

// bindFundsRequest assembles the service request from the route, the JWT
// identity, and the body. On failure it writes the error response itself.
func (h *FundsHandler) bindFundsRequest(c *gin.Context) (ports.FundsRequest, bool) {
	wallet, ok := callerWallet(c)
	if !ok {
		return ports.FundsRequest{}, false
	}
	groupID, ok := groupIDParam(c)
	if !ok {
		return ports.FundsRequest{}, false
	}

	var req dto.FundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return ports.FundsRequest{}, false
	}
	dto.SanitizeStruct(&req)

	return ports.FundsRequest{
		GroupID:     groupID,
		Caller:      wallet,
		Account:     domain.Address(req.Account),
		Escrow:      domain.Address(req.Escrow),
		Amount:      req.Amount,
		ReferenceID: req.ReferenceID,
	}, true
}
