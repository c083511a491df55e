package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"group-escrow-ledger/internal/adapter/http/dto"
	"group-escrow-ledger/internal/adapter/http/middleware"
	"group-escrow-ledger/internal/core/domain"
	"group-escrow-ledger/internal/core/ports"
	"group-escrow-ledger/internal/core/ports/mocks"
	"group-escrow-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testWallet = domain.Address("wallet-caller")

// newAuthedContext builds a test context carrying the JWT-derived identity.
func newAuthedContext(t *testing.T, method, target string, body any) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.CtxUserID, uuid.New())
	c.Set(middleware.CtxWalletAddress, testWallet)
	return c, w
}

func testGroup(id uuid.UUID) *domain.Group {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := domain.NewGroup(id, "mint-usdc", "escrow-acc-1", testWallet, now)
	return g
}

func envelopeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %s", w.Body.String())
	return data
}

// --- Auth Handler Tests ---

func TestRegister_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	userID := uuid.New()
	mockAuth.EXPECT().Register(gomock.Any(), ports.RegisterRequest{
		Username:      "splitter",
		Password:      "password123",
		DisplayName:   "Splitter",
		WalletAddress: "wallet-a",
	}).Return(&domain.User{
		ID:            userID,
		Username:      "splitter",
		WalletAddress: "wallet-a",
	}, nil)

	body, _ := json.Marshal(dto.RegisterRequest{
		Username:      "splitter",
		Password:      "password123",
		DisplayName:   "Splitter",
		WalletAddress: "wallet-a",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Register(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := envelopeData(t, w)
	assert.Equal(t, userID.String(), data["user_id"])
	assert.Equal(t, "wallet-a", data["wallet_address"])
}

func TestRegister_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	// Empty body => binding error
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader([]byte("{}")))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister_UsernameTaken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	mockAuth.EXPECT().Register(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrUsernameExists())

	body, _ := json.Marshal(dto.RegisterRequest{
		Username:      "taken",
		Password:      "password123",
		DisplayName:   "Taken",
		WalletAddress: "wallet-b",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Register(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLogin_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	expiry := time.Now().Add(24 * time.Hour)
	mockAuth.EXPECT().Login(gomock.Any(), "splitter", "password123").Return("jwt-token-123", expiry, nil)

	body, _ := json.Marshal(dto.LoginRequest{
		Username: "splitter",
		Password: "password123",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Login(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := envelopeData(t, w)
	assert.Equal(t, "jwt-token-123", data["token"])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	mockAuth.EXPECT().Login(gomock.Any(), "bad", "bad").Return("", time.Time{}, apperror.ErrInvalidCredentials())

	body, _ := json.Marshal(dto.LoginRequest{
		Username: "bad",
		Password: "bad",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Login(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// --- Group Handler Tests ---

func TestCreateGroup_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewGroupHandler(mockLedger)

	groupID := uuid.New()
	mockLedger.EXPECT().CreateGroup(gomock.Any(), ports.CreateGroupRequest{
		GroupID:  groupID,
		Caller:   testWallet,
		Creator:  "wallet-a",
		Currency: "mint-usdc",
		Escrow:   "escrow-acc-1",
	}).Return(testGroup(groupID), nil)

	c, w := newAuthedContext(t, http.MethodPost, "/api/v1/groups", dto.CreateGroupRequest{
		GroupID:  groupID.String(),
		Creator:  "wallet-a",
		Currency: "mint-usdc",
		Escrow:   "escrow-acc-1",
	})

	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := envelopeData(t, w)
	assert.Equal(t, groupID.String(), data["id"])
	assert.Equal(t, "mint-usdc", data["currency"])
}

func TestCreateGroup_MissingIdentity(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewGroupHandler(mockLedger)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/groups", nil)

	h.Create(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateGroup_NotProtocolAdmin(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewGroupHandler(mockLedger)

	groupID := uuid.New()
	mockLedger.EXPECT().CreateGroup(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrNotProtocolAdmin())

	c, w := newAuthedContext(t, http.MethodPost, "/api/v1/groups", dto.CreateGroupRequest{
		GroupID:  groupID.String(),
		Creator:  "wallet-a",
		Currency: "mint-usdc",
		Escrow:   "escrow-acc-1",
	})

	h.Create(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetGroup_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewGroupHandler(mockLedger)

	groupID := uuid.New()
	mockLedger.EXPECT().GetGroup(gomock.Any(), groupID).Return(testGroup(groupID), nil)

	c, w := newAuthedContext(t, http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: groupID.String()}}

	h.Get(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := envelopeData(t, w)
	assert.Equal(t, string(testWallet), data["admin"])
	members := data["members"].([]interface{})
	assert.Len(t, members, 1)
}

func TestGetGroup_BadID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewGroupHandler(mockLedger)

	c, w := newAuthedContext(t, http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

	h.Get(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetBalance_DefaultsToCaller(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewGroupHandler(mockLedger)

	groupID := uuid.New()
	mockLedger.EXPECT().GetBalance(gomock.Any(), groupID, testWallet).Return(int64(-250), nil)

	c, w := newAuthedContext(t, http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: groupID.String()}}

	h.GetBalance(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := envelopeData(t, w)
	assert.Equal(t, float64(-250), data["balance"])
	assert.Equal(t, string(testWallet), data["user"])
}

func TestGetBalance_QueryOverride(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewGroupHandler(mockLedger)

	groupID := uuid.New()
	mockLedger.EXPECT().GetBalance(gomock.Any(), groupID, domain.Address("wallet-b")).Return(int64(100), nil)

	c, w := newAuthedContext(t, http.MethodGet, "/?user=wallet-b", nil)
	c.Params = gin.Params{{Key: "id", Value: groupID.String()}}

	h.GetBalance(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := envelopeData(t, w)
	assert.Equal(t, "wallet-b", data["user"])
}

func TestAddMember_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewGroupHandler(mockLedger)

	groupID := uuid.New()
	group := testGroup(groupID)
	require.NoError(t, group.AddUser(testWallet, "wallet-b"))

	mockLedger.EXPECT().AddUser(gomock.Any(), groupID, testWallet, domain.Address("wallet-b")).Return(nil)
	mockLedger.EXPECT().GetGroup(gomock.Any(), groupID).Return(group, nil)

	c, w := newAuthedContext(t, http.MethodPost, "/", dto.AddMemberRequest{User: "wallet-b"})
	c.Params = gin.Params{{Key: "id", Value: groupID.String()}}

	h.AddMember(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := envelopeData(t, w)
	members := data["members"].([]interface{})
	assert.Len(t, members, 2)
}

func TestAddMember_NotAdmin(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewGroupHandler(mockLedger)

	groupID := uuid.New()
	mockLedger.EXPECT().AddUser(gomock.Any(), groupID, testWallet, domain.Address("wallet-b")).
		Return(apperror.ErrUnauthorizedAdd())

	c, w := newAuthedContext(t, http.MethodPost, "/", dto.AddMemberRequest{User: "wallet-b"})
	c.Params = gin.Params{{Key: "id", Value: groupID.String()}}

	h.AddMember(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestApprove_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewGroupHandler(mockLedger)

	groupID := uuid.New()
	mockLedger.EXPECT().ApproveUser(gomock.Any(), groupID, testWallet).Return(nil)
	mockLedger.EXPECT().GetGroup(gomock.Any(), groupID).Return(testGroup(groupID), nil)

	c, w := newAuthedContext(t, http.MethodPost, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: groupID.String()}}

	h.Approve(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRemoveMember_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewGroupHandler(mockLedger)

	groupID := uuid.New()
	mockLedger.EXPECT().RemoveUser(gomock.Any(), groupID, testWallet, domain.Address("wallet-b")).Return(nil)
	mockLedger.EXPECT().GetGroup(gomock.Any(), groupID).Return(testGroup(groupID), nil)

	c, w := newAuthedContext(t, http.MethodDelete, "/", nil)
	c.Params = gin.Params{
		{Key: "id", Value: groupID.String()},
		{Key: "address", Value: "wallet-b"},
	}

	h.RemoveMember(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRemoveMember_BalanceNonZero(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewGroupHandler(mockLedger)

	groupID := uuid.New()
	mockLedger.EXPECT().RemoveUser(gomock.Any(), groupID, testWallet, domain.Address("wallet-b")).
		Return(apperror.ErrUserBalanceNonZero())

	c, w := newAuthedContext(t, http.MethodDelete, "/", nil)
	c.Params = gin.Params{
		{Key: "id", Value: groupID.String()},
		{Key: "address", Value: "wallet-b"},
	}

	h.RemoveMember(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTransferAdmin_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewGroupHandler(mockLedger)

	groupID := uuid.New()
	mockLedger.EXPECT().TransferAdmin(gomock.Any(), groupID, testWallet, domain.Address("wallet-b")).Return(nil)
	mockLedger.EXPECT().GetGroup(gomock.Any(), groupID).Return(testGroup(groupID), nil)

	c, w := newAuthedContext(t, http.MethodPost, "/", dto.TransferAdminRequest{NewAdmin: "wallet-b"})
	c.Params = gin.Params{{Key: "id", Value: groupID.String()}}

	h.TransferAdmin(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSplitExpense_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewGroupHandler(mockLedger)

	groupID := uuid.New()
	mockLedger.EXPECT().SplitExpense(gomock.Any(), ports.SplitExpenseRequest{
		GroupID:   groupID,
		Caller:    testWallet,
		Payer:     "wallet-a",
		TotalCost: 900,
		Users:     []domain.Address{"wallet-b", "wallet-c"},
		Amounts:   []int64{450, 450},
	}).Return(testGroup(groupID), nil)

	c, w := newAuthedContext(t, http.MethodPost, "/", dto.SplitExpenseRequest{
		Payer:     "wallet-a",
		TotalCost: 900,
		Users:     []string{"wallet-b", "wallet-c"},
		Amounts:   []int64{450, 450},
	})
	c.Params = gin.Params{{Key: "id", Value: groupID.String()}}

	h.SplitExpense(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSplitExpense_MismatchedLists(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewGroupHandler(mockLedger)

	groupID := uuid.New()
	mockLedger.EXPECT().SplitExpense(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrInconsistentBalanceLengths())

	c, w := newAuthedContext(t, http.MethodPost, "/", dto.SplitExpenseRequest{
		Payer:     "wallet-a",
		TotalCost: 900,
		Users:     []string{"wallet-b", "wallet-c"},
		Amounts:   []int64{900},
	})
	c.Params = gin.Params{{Key: "id", Value: groupID.String()}}

	h.SplitExpense(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Funds Handler Tests ---

func TestDeposit_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewFundsHandler(mockLedger)

	groupID := uuid.New()
	now := time.Now().UTC()
	mockLedger.EXPECT().Deposit(gomock.Any(), ports.FundsRequest{
		GroupID:     groupID,
		Caller:      testWallet,
		Account:     "acc-sender",
		Escrow:      "escrow-acc-1",
		Amount:      500,
		ReferenceID: "dep-001",
	}).Return(&ports.FundsResult{
		GroupID:     groupID,
		User:        testWallet,
		Direction:   "deposit",
		Amount:      500,
		NewBalance:  500,
		ReferenceID: "dep-001",
		ProcessedAt: now,
	}, nil)

	c, w := newAuthedContext(t, http.MethodPost, "/", dto.FundsRequest{
		Account:     "acc-sender",
		Escrow:      "escrow-acc-1",
		Amount:      500,
		ReferenceID: "dep-001",
	})
	c.Params = gin.Params{{Key: "id", Value: groupID.String()}}

	h.Deposit(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := envelopeData(t, w)
	assert.Equal(t, "deposit", data["direction"])
	assert.Equal(t, float64(500), data["new_balance"])
}

func TestDeposit_InvalidBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewFundsHandler(mockLedger)

	groupID := uuid.New()
	c, w := newAuthedContext(t, http.MethodPost, "/", dto.FundsRequest{
		Account: "acc-sender",
		Escrow:  "escrow-acc-1",
		Amount:  -5, // gt=0 binding
	})
	c.Params = gin.Params{{Key: "id", Value: groupID.String()}}

	h.Deposit(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWithdraw_InsufficientBalance(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewFundsHandler(mockLedger)

	groupID := uuid.New()
	mockLedger.EXPECT().Withdraw(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrInsufficientUserBalance())

	c, w := newAuthedContext(t, http.MethodPost, "/", dto.FundsRequest{
		Account:     "acc-recipient",
		Escrow:      "escrow-acc-1",
		Amount:      5000,
		ReferenceID: "wd-001",
	})
	c.Params = gin.Params{{Key: "id", Value: groupID.String()}}

	h.Withdraw(c)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

// --- Health Check Tests ---

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Ping(ctx context.Context) error { return s.err }
func (s stubChecker) Name() string                   { return s.name }

func TestHealthCheck_AllHealthy(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(stubChecker{name: "postgresql"}, stubChecker{name: "redis"})(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestHealthCheck_Degraded(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(
		stubChecker{name: "postgresql"},
		stubChecker{name: "token-node", err: errors.New("connection refused")},
	)(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
	deps := resp["dependencies"].(map[string]interface{})
	node := deps["token-node"].(map[string]interface{})
	assert.Equal(t, "unhealthy", node["status"])
}
