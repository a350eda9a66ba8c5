package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/bizbridge-auth/internal/application"
	"github.com/oksasatya/bizbridge-auth/internal/interface/middleware"
	"github.com/oksasatya/bizbridge-auth/pkg/response"
)

// AdminHandler serves the /api/admin endpoints. Routes must sit behind
// middleware.Auth and middleware.RequireAdmin.
type AdminHandler struct {
	Svc    *application.Service
	Logger logrus.FieldLogger
}

func NewAdminHandler(svc *application.Service, logger logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{Svc: svc, Logger: logger}
}

type searchQuery struct {
	Q    string `form:"q" binding:"required,max=200"`
	Size int    `form:"size" binding:"omitempty,min=1,max=50"`
}

// ListUsers GET /api/admin/all/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.Svc.ListUsers(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Users fetched successfully", response.Payload{"users": users})
}

// DeleteUser DELETE /api/admin/user/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	u, err := h.Svc.DeleteUser(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "User deleted successfully", response.Payload{"deleteUser": u})
}

// SearchUsers GET /api/admin/users/search?q=&size=
func (h *AdminHandler) SearchUsers(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}
	hits, err := h.Svc.SearchUsers(c.Request.Context(), q.Q, q.Size)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Users fetched successfully", response.Payload{"users": hits})
}
