package service

import (
	"context"
	"testing"
	"time"

	"group-escrow-ledger/internal/core/domain"
	"group-escrow-ledger/internal/core/ports"
	"group-escrow-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type authTestDeps struct {
	svc      *AuthServiceImpl
	userRepo *mocks.MockUserRepository
	ctrl     *gomock.Controller
}

func setupAuthService(t *testing.T) *authTestDeps {
	ctrl := gomock.NewController(t)
	d := &authTestDeps{
		userRepo: mocks.NewMockUserRepository(ctrl),
		ctrl:     ctrl,
	}
	d.svc = NewAuthService(
		d.userRepo,
		NewArgon2HashService(),
		NewJWTTokenService("test-secret", time.Hour, "group-escrow-ledger"),
		zerolog.Nop(),
	)
	return d
}

func TestAuthService_Register_Success(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	req := ports.RegisterRequest{
		Username:      "alice",
		Password:      "s3cret-password",
		DisplayName:   "Alice",
		WalletAddress: "wallet-alice",
	}

	d.userRepo.EXPECT().GetByUsername(ctx, "alice").Return(nil, nil)
	d.userRepo.EXPECT().GetByWalletAddress(ctx, domain.Address("wallet-alice")).Return(nil, nil)
	d.userRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	user, err := d.svc.Register(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, domain.Address("wallet-alice"), user.WalletAddress)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "s3cret-password", user.PasswordHash)
}

func TestAuthService_Register_UsernameTaken(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.userRepo.EXPECT().GetByUsername(ctx, "alice").Return(&domain.User{ID: uuid.New()}, nil)

	user, err := d.svc.Register(ctx, ports.RegisterRequest{
		Username:      "alice",
		Password:      "password",
		WalletAddress: "wallet-alice",
	})
	assert.Nil(t, user)
	assertAppError(t, err, "AUTH_002")
}

func TestAuthService_Register_WalletTaken(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.userRepo.EXPECT().GetByUsername(ctx, "bob").Return(nil, nil)
	d.userRepo.EXPECT().GetByWalletAddress(ctx, domain.Address("wallet-alice")).Return(&domain.User{ID: uuid.New()}, nil)

	user, err := d.svc.Register(ctx, ports.RegisterRequest{
		Username:      "bob",
		Password:      "password",
		WalletAddress: "wallet-alice",
	})
	assert.Nil(t, user)
	assertAppError(t, err, "AUTH_004")
}

func TestAuthService_Login_Success(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	hashSvc := NewArgon2HashService()
	hash, err := hashSvc.Hash("s3cret-password")
	require.NoError(t, err)

	userID := uuid.New()
	d.userRepo.EXPECT().GetByUsername(ctx, "alice").Return(&domain.User{
		ID:            userID,
		Username:      "alice",
		PasswordHash:  hash,
		WalletAddress: "wallet-alice",
	}, nil)

	token, expiry, err := d.svc.Login(ctx, "alice", "s3cret-password")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiry.After(time.Now()))

	claims, err := NewJWTTokenService("test-secret", time.Hour, "group-escrow-ledger").Validate(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, domain.Address("wallet-alice"), claims.WalletAddress)
}

func TestAuthService_Login_UnknownUser(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.userRepo.EXPECT().GetByUsername(ctx, "ghost").Return(nil, nil)

	_, _, err := d.svc.Login(ctx, "ghost", "whatever")
	assertAppError(t, err, "AUTH_001")
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	hash, err := NewArgon2HashService().Hash("right-password")
	require.NoError(t, err)

	d.userRepo.EXPECT().GetByUsername(ctx, "alice").Return(&domain.User{
		ID:           uuid.New(),
		PasswordHash: hash,
	}, nil)

	_, _, err = d.svc.Login(ctx, "alice", "wrong-password")
	assertAppError(t, err, "AUTH_001")
}
