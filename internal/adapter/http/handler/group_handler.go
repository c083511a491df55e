package handler

import (
	"group-escrow-ledger/internal/adapter/http/dto"
	"group-escrow-ledger/internal/adapter/http/middleware"
	"group-escrow-ledger/internal/core/domain"
	"group-escrow-ledger/internal/core/ports"
	"group-escrow-ledger/pkg/apperror"
	"group-escrow-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GroupHandler handles group membership and expense-split endpoints.
type GroupHandler struct {
	ledgerSvc ports.LedgerService
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(ledgerSvc ports.LedgerService) *GroupHandler {
	return &GroupHandler{ledgerSvc: ledgerSvc}
}

// callerWallet extracts the authenticated wallet address set by JWTAuth.
func callerWallet(c *gin.Context) (domain.Address, bool) {
	v, exists := c.Get(middleware.CtxWalletAddress)
	if !exists {
		response.Error(c, apperror.ErrInvalidToken())
		return "", false
	}
	wallet, ok := v.(domain.Address)
	if !ok || wallet == "" {
		response.Error(c, apperror.ErrInvalidToken())
		return "", false
	}
	return wallet, true
}

// groupIDParam parses the :id path parameter.
func groupIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid group id"))
		return uuid.Nil, false
	}
	return id, true
}

// Create handles POST /api/v1/groups.
func (h *GroupHandler) Create(c *gin.Context) {
	wallet, ok := callerWallet(c)
	if !ok {
		return
	}

	var req dto.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	groupID, err := uuid.Parse(req.GroupID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid group id"))
		return
	}

	group, err := h.ledgerSvc.CreateGroup(c.Request.Context(), ports.CreateGroupRequest{
		GroupID:  groupID,
		Caller:   wallet,
		Creator:  domain.Address(req.Creator),
		Currency: domain.Address(req.Currency),
		Escrow:   domain.Address(req.Escrow),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToGroupResponse(group))
}

// Get handles GET /api/v1/groups/:id.
func (h *GroupHandler) Get(c *gin.Context) {
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	group, err := h.ledgerSvc.GetGroup(c.Request.Context(), groupID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToGroupResponse(group))
}

// GetBalance handles GET /api/v1/groups/:id/balance. The optional ?user=
// query reads another member's balance; default is the caller's own.
func (h *GroupHandler) GetBalance(c *gin.Context) {
	wallet, ok := callerWallet(c)
	if !ok {
		return
	}
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	user := wallet
	if q := c.Query("user"); q != "" {
		user = domain.Address(q)
	}

	balance, err := h.ledgerSvc.GetBalance(c.Request.Context(), groupID, user)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		GroupID: groupID.String(),
		User:    string(user),
		Balance: balance,
	})
}

// AddMember handles POST /api/v1/groups/:id/members.
func (h *GroupHandler) AddMember(c *gin.Context) {
	wallet, ok := callerWallet(c)
	if !ok {
		return
	}
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	var req dto.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	if err := h.ledgerSvc.AddUser(c.Request.Context(), groupID, wallet, domain.Address(req.User)); err != nil {
		response.Error(c, err)
		return
	}

	h.respondWithGroup(c, groupID)
}

// Approve handles POST /api/v1/groups/:id/approve. The caller approves their
// own membership.
func (h *GroupHandler) Approve(c *gin.Context) {
	wallet, ok := callerWallet(c)
	if !ok {
		return
	}
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	if err := h.ledgerSvc.ApproveUser(c.Request.Context(), groupID, wallet); err != nil {
		response.Error(c, err)
		return
	}

	h.respondWithGroup(c, groupID)
}

// RemoveMember handles DELETE /api/v1/groups/:id/members/:address.
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	wallet, ok := callerWallet(c)
	if !ok {
		return
	}
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	user := domain.Address(c.Param("address"))
	if user == "" {
		response.Error(c, apperror.Validation("missing member address"))
		return
	}

	if err := h.ledgerSvc.RemoveUser(c.Request.Context(), groupID, wallet, user); err != nil {
		response.Error(c, err)
		return
	}

	h.respondWithGroup(c, groupID)
}

// TransferAdmin handles POST /api/v1/groups/:id/admin.
func (h *GroupHandler) TransferAdmin(c *gin.Context) {
	wallet, ok := callerWallet(c)
	if !ok {
		return
	}
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	var req dto.TransferAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	if err := h.ledgerSvc.TransferAdmin(c.Request.Context(), groupID, wallet, domain.Address(req.NewAdmin)); err != nil {
		response.Error(c, err)
		return
	}

	h.respondWithGroup(c, groupID)
}

// SplitExpense handles POST /api/v1/groups/:id/split.
func (h *GroupHandler) SplitExpense(c *gin.Context) {
	wallet, ok := callerWallet(c)
	if !ok {
		return
	}
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	var req dto.SplitExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	users := make([]domain.Address, len(req.Users))
	for i, u := range req.Users {
		users[i] = domain.Address(u)
	}

	group, err := h.ledgerSvc.SplitExpense(c.Request.Context(), ports.SplitExpenseRequest{
		GroupID:   groupID,
		Caller:    wallet,
		Payer:     domain.Address(req.Payer),
		TotalCost: req.TotalCost,
		Users:     users,
		Amounts:   req.Amounts,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToGroupResponse(group))
}

// respondWithGroup returns the group's post-mutation state.
func (h *GroupHandler) respondWithGroup(c *gin.Context, groupID uuid.UUID) {
	group, err := h.ledgerSvc.GetGroup(c.Request.Context(), groupID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToGroupResponse(group))
}
