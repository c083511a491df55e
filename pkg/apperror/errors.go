package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Group membership (GRP) ----

func ErrUserAlreadyExists() *AppError {
	return New("GRP_001", "The user already exists in this group", http.StatusConflict)
}

func ErrUserDoesNotExist() *AppError {
	return New("GRP_002", "The user does not exist in this group", http.StatusNotFound)
}

func ErrGroupAtCapacity() *AppError {
	return New("GRP_003", "The group has reached maximum capacity", http.StatusConflict)
}

func ErrCannotRemoveAdmin() *AppError {
	return New("GRP_004", "The admin of the group cannot be removed", http.StatusConflict)
}

func ErrUserBalanceNonZero() *AppError {
	return New("GRP_005", "The user has a non-zero balance", http.StatusConflict)
}

func ErrUserNotApproved() *AppError {
	return New("GRP_006", "The user has not approved participation in this group", http.StatusForbidden)
}

func ErrAdminNotApproved() *AppError {
	return New("GRP_007", "The new admin has not approved participation in this group", http.StatusForbidden)
}

func ErrGroupNotFound() *AppError {
	return New("GRP_008", "Group not found", http.StatusNotFound)
}

// ---- Authorization (PRM) ----

func ErrUnauthorizedAdd() *AppError {
	return New("PRM_001", "Only the group admin may add users", http.StatusForbidden)
}

func ErrUnauthorizedRemove() *AppError {
	return New("PRM_002", "Only the group admin or the user may remove a user", http.StatusForbidden)
}

func ErrUnauthorizedTransfer() *AppError {
	return New("PRM_003", "Only the group admin may transfer admin rights", http.StatusForbidden)
}

func ErrNotProtocolAdmin() *AppError {
	return New("PRM_004", "Caller is not the protocol administrator", http.StatusForbidden)
}

// ---- Amounts & arithmetic (AMT) ----

func ErrAmountIsNotPositive() *AppError {
	return New("AMT_001", "Amount must be strictly positive", http.StatusBadRequest)
}

func ErrAmountOverflow() *AppError {
	return New("AMT_002", "Balance arithmetic would overflow", http.StatusConflict)
}

func ErrInconsistentBalanceLengths() *AppError {
	return New("AMT_003", "Users and amounts lists must have equal length", http.StatusBadRequest)
}

func ErrInsufficientUserBalance() *AppError {
	return New("AMT_004", "User ledger balance is less than the requested amount", http.StatusPaymentRequired)
}

func ErrInsufficientEscrowBalance() *AppError {
	return New("AMT_005", "Escrow token balance is less than the requested amount", http.StatusPaymentRequired)
}

// ---- Escrow / token-account consistency (ESC) ----

func ErrInvalidCurrencyAccount() *AppError {
	return New("ESC_001", "Currency mint account is missing or malformed", http.StatusUnprocessableEntity)
}

func ErrInvalidEscrowAccount() *AppError {
	return New("ESC_002", "Escrow token account is missing or malformed", http.StatusUnprocessableEntity)
}

func ErrInvalidSenderAccount() *AppError {
	return New("ESC_003", "Sender token account is missing or malformed", http.StatusUnprocessableEntity)
}

func ErrInvalidRecipientAccount() *AppError {
	return New("ESC_004", "Recipient token account is missing or malformed", http.StatusUnprocessableEntity)
}

func ErrInconsistentTokenPrograms() *AppError {
	return New("ESC_005", "Mint and token account are managed by different token programs", http.StatusUnprocessableEntity)
}

func ErrInconsistentEscrowOwner() *AppError {
	return New("ESC_006", "Escrow account is not owned by the group's derived authority", http.StatusUnprocessableEntity)
}

func ErrInconsistentEscrowMint() *AppError {
	return New("ESC_007", "Escrow account mint does not match the group currency", http.StatusUnprocessableEntity)
}

func ErrInconsistentSenderMint() *AppError {
	return New("ESC_008", "Sender account mint does not match the group currency", http.StatusUnprocessableEntity)
}

func ErrInconsistentRecipientMint() *AppError {
	return New("ESC_009", "Recipient account mint does not match the group currency", http.StatusUnprocessableEntity)
}

func ErrEscrowHasDelegate() *AppError {
	return New("ESC_010", "Escrow account must not carry a delegate authority", http.StatusUnprocessableEntity)
}

func ErrEscrowIsFrozen() *AppError {
	return New("ESC_011", "Escrow account is frozen", http.StatusUnprocessableEntity)
}

func ErrSenderIsFrozen() *AppError {
	return New("ESC_012", "Sender account is frozen", http.StatusUnprocessableEntity)
}

func ErrRecipientIsFrozen() *AppError {
	return New("ESC_013", "Recipient account is frozen", http.StatusUnprocessableEntity)
}

func ErrInconsistentEscrow() *AppError {
	return New("ESC_014", "Referenced escrow does not match the group's recorded escrow", http.StatusUnprocessableEntity)
}

func ErrInconsistentSenderOwner() *AppError {
	return New("ESC_015", "Caller is not the owner of the sender account", http.StatusForbidden)
}

func ErrInconsistentRecipientOwner() *AppError {
	return New("ESC_016", "Caller is not the owner of the recipient account", http.StatusForbidden)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrUsernameExists() *AppError {
	return New("AUTH_002", "Username already exists", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrWalletAddressExists() *AppError {
	return New("AUTH_004", "Wallet address is already registered", http.StatusConflict)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrTokenNodeError(err error) *AppError {
	return Wrap("SYS_002", "Token node request failed", http.StatusBadGateway, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request-validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
