package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/bizbridge-auth/internal/interface/http"
	"github.com/oksasatya/bizbridge-auth/internal/interface/middleware"
)

// AuthModule mounts the public account endpoints.
type AuthModule struct {
	Handler *handlers.AuthHandler
	Limits  Limiter
}

func NewAuthModule(h *handlers.AuthHandler, limits Limiter) *AuthModule {
	return &AuthModule{Handler: h, Limits: limits}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	registerLimiter := m.Limits.PerMinute(20, middleware.KeyByIP())
	loginLimiter := m.Limits.PerMinute(10, middleware.KeyByIP())
	refreshLimiter := m.Limits.PerMinute(60, middleware.KeyByIP())
	issueLimiter := m.Limits.PerMinute(5, middleware.KeyByIPAndPath())
	confirmLimiter := m.Limits.PerMinute(30, middleware.KeyByIPAndPath())

	rg.POST("/register", registerLimiter, m.Handler.Register)
	rg.POST("/login", loginLimiter, m.Handler.Login)
	rg.POST("/refresh", refreshLimiter, m.Handler.Refresh)
	rg.GET("/logout", m.Handler.Logout)

	// Password recovery
	rg.POST("/password/forgot", issueLimiter, m.Handler.ForgotPassword)
	rg.POST("/verify/otp", confirmLimiter, m.Handler.VerifyResetOTP)
	rg.PUT("/password/reset", confirmLimiter, m.Handler.ResetPassword)

	// Email verification, no session needed
	rg.POST("/email/verify", issueLimiter, m.Handler.SendEmailVerification)
	rg.POST("/email/verify/otp", confirmLimiter, m.Handler.VerifyEmailOTP)
}
