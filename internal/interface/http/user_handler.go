package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/bizbridge-auth/internal/application"
	"github.com/oksasatya/bizbridge-auth/internal/interface/middleware"
	"github.com/oksasatya/bizbridge-auth/pkg/apperror"
	"github.com/oksasatya/bizbridge-auth/pkg/helpers"
	"github.com/oksasatya/bizbridge-auth/pkg/response"
)

const maxAvatarBytes = 5 << 20

var allowedAvatarTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

type UserHandler struct {
	Svc     *application.Service
	Logger  logrus.FieldLogger
	Cookies *helpers.Manager
}

func NewUserHandler(svc *application.Service, logger logrus.FieldLogger, cookies *helpers.Manager) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger, Cookies: cookies}
}

type updateProfileRequest struct {
	Name  string `json:"name" binding:"omitempty,max=100"`
	Phone string `json:"phone" binding:"omitempty,phone"`
}

type changePasswordRequest struct {
	OldPassword     string `json:"oldPassword" binding:"required,pwd"`
	NewPassword     string `json:"newPassword" binding:"required,pwd"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// GetProfile GET /api/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	u, err := h.Svc.GetProfile(c.Request.Context(), c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "User info fetched successfully", response.Payload{"user": u})
}

// UpdateProfile PUT /api/profile/update {name?, phone?}
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}
	u, err := h.Svc.UpdateProfile(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), application.UpdateProfileInput{
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Profile updated successfully", response.Payload{"user": u})
}

// ChangePassword PUT /api/profile/password/update
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}
	u, pair, err := h.Svc.ChangePassword(c.Request.Context(), c.GetString(middleware.CtxUserIDKey),
		req.OldPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, "Password updated successfully", response.Payload{"user": u, "token": pair.AccessToken})
}

// UploadAvatar PUT /api/profile/avatar (multipart field "avatar")
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	fh, err := c.FormFile("avatar")
	if err != nil {
		_ = c.Error(apperror.Validation("avatar file is required"))
		return
	}
	if fh.Size > maxAvatarBytes {
		_ = c.Error(apperror.Validation("avatar must be at most 5MB"))
		return
	}
	contentType := fh.Header.Get("Content-Type")
	if !allowedAvatarTypes[contentType] {
		_ = c.Error(apperror.Validation("avatar must be a jpeg, png or webp image"))
		return
	}

	f, err := fh.Open()
	if err != nil {
		_ = c.Error(apperror.Internal("failed to read avatar", err))
		return
	}
	defer f.Close()

	u, err := h.Svc.UploadAvatar(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), f, fh.Filename, contentType)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Avatar updated successfully", response.Payload{"user": u})
}
