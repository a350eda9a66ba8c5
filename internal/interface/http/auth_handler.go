package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/bizbridge-auth/internal/application"
	"github.com/oksasatya/bizbridge-auth/internal/interface/middleware"
	"github.com/oksasatya/bizbridge-auth/pkg/helpers"
	"github.com/oksasatya/bizbridge-auth/pkg/response"
)

// AuthHandler serves the public account endpoints: registration, login,
// session refresh and logout, password recovery and email verification.
type AuthHandler struct {
	Svc     *application.Service
	Logger  logrus.FieldLogger
	Cookies *helpers.Manager
}

func NewAuthHandler(svc *application.Service, logger logrus.FieldLogger, cookies *helpers.Manager) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: cookies}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required,phone"`
	Password string `json:"password" binding:"required,pwd"`
	Name     string `json:"name" binding:"omitempty,max=100"`
}

// email may also carry a phone number
type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required,pwd"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type verifyOTPRequest struct {
	Email string `json:"email" binding:"required"`
	OTP   string `json:"otp"`
}

type resetPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password" binding:"required,pwd"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

type emailOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,otp"`
}

// session sets the cookie pair and answers with the user and access token.
func (h *AuthHandler) session(c *gin.Context, message string, pair application.TokenPair, payload response.Payload) {
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	payload["token"] = pair.AccessToken
	response.Success(c, http.StatusOK, message, payload)
}

// Register POST /api/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}
	u, pair, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.session(c, "User registered successfully", pair, response.Payload{"user": u})
}

// Login POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}
	u, pair, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.session(c, "Login successful", pair, response.Payload{"user": u})
}

// Refresh POST /api/refresh rotates the token pair from the refresh cookie.
func (h *AuthHandler) Refresh(c *gin.Context) {
	refresh, err := c.Cookie(helpers.RefreshCookie)
	if err != nil || refresh == "" {
		_ = c.Error(application.ErrInvalidSession)
		return
	}
	u, pair, err := h.Svc.Refresh(c.Request.Context(), refresh)
	if err != nil {
		h.Cookies.Clear(c)
		_ = c.Error(err)
		return
	}
	h.session(c, "Token refreshed", pair, response.Payload{"user": u})
}

// Logout GET /api/logout clears the cookies and, when the access token still
// parses, the server-side session.
func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(helpers.AccessCookie); err == nil && token != "" {
		h.Svc.Logout(c.Request.Context(), token)
	}
	h.Cookies.Clear(c)
	response.Success(c, http.StatusOK, "Logged out successfully", nil)
}

// ForgotPassword POST /api/password/forgot {email}
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}
	email, err := h.Svc.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "OTP sent to "+email+". Please check your email.", nil)
}

// VerifyResetOTP POST /api/verify/otp {email, otp}
func (h *AuthHandler) VerifyResetOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}
	token, err := h.Svc.VerifyResetOTP(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "OTP verified successfully", response.Payload{"resetPasswordToken": token})
}

// ResetPassword PUT /api/password/reset {token, password, confirmPassword}
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}
	u, pair, err := h.Svc.ResetPassword(c.Request.Context(), req.Token, req.Password, req.ConfirmPassword)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.Logger.WithFields(logrus.Fields{"user_id": u.ID, "ip": middleware.ClientIP(c)}).Info("password reset via token")
	h.session(c, "Password reset successfully", pair, response.Payload{"user": u})
}

// SendEmailVerification POST /api/email/verify {email}
func (h *AuthHandler) SendEmailVerification(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}
	email, verified, err := h.Svc.SendEmailVerification(c.Request.Context(), req.Email)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if verified {
		response.Success(c, http.StatusOK, "Email already verified", nil)
		return
	}
	response.Success(c, http.StatusOK, "OTP sent to "+email+". Please check your email.", nil)
}

// VerifyEmailOTP POST /api/email/verify/otp {email, otp}
func (h *AuthHandler) VerifyEmailOTP(c *gin.Context) {
	var req emailOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}
	verified, err := h.Svc.VerifyEmailOTP(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if verified {
		response.Success(c, http.StatusOK, "Email already verified", nil)
		return
	}
	response.Success(c, http.StatusOK, "Email verified successfully", nil)
}
