package handler

import (
	"group-escrow-ledger/internal/adapter/http/middleware"
	redisStore "group-escrow-ledger/internal/adapter/storage/redis"
	"group-escrow-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	LedgerSvc      ports.LedgerService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep: verifies PostgreSQL, Redis, and the token node)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	groupHandler := NewGroupHandler(deps.LedgerSvc)
	fundsHandler := NewFundsHandler(deps.LedgerSvc)

	groups := v1.Group("/groups", jwtAuth)
	{
		groups.POST("", rl("groups"), groupHandler.Create)
		groups.GET("/:id", rl("reads"), groupHandler.Get)
		groups.GET("/:id/balance", rl("reads"), groupHandler.GetBalance)
		groups.POST("/:id/members", rl("groups"), groupHandler.AddMember)
		groups.POST("/:id/approve", rl("groups"), groupHandler.Approve)
		groups.DELETE("/:id/members/:address", rl("groups"), groupHandler.RemoveMember)
		groups.POST("/:id/admin", rl("groups"), groupHandler.TransferAdmin)
		groups.POST("/:id/split", rl("groups"), groupHandler.SplitExpense)
		groups.POST("/:id/deposit", rl("funds"), fundsHandler.Deposit)
		groups.POST("/:id/withdraw", rl("funds"), fundsHandler.Withdraw)
	}

	return r
}
