package modules

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/bizbridge-auth/internal/interface/http"
	"github.com/oksasatya/bizbridge-auth/internal/interface/middleware"
	"github.com/oksasatya/bizbridge-auth/pkg/helpers"
)

// UserModule wires the profile endpoints behind the session middleware.
// Protected: GET /api/profile, PUT /api/profile/update,
// PUT /api/profile/password/update, PUT /api/profile/avatar
type UserModule struct {
	Handler *handlers.UserHandler
	Redis   *redis.Client
	JWT     *helpers.JWTManager
	Limits  Limiter
}

func NewUserModule(h *handlers.UserHandler, rdb *redis.Client, jwt *helpers.JWTManager, limits Limiter) *UserModule {
	return &UserModule{Handler: h, Redis: rdb, JWT: jwt, Limits: limits}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/profile")
	auth.Use(middleware.Auth(m.Redis, m.JWT))
	auth.Use(m.Limits.PerMinute(120, middleware.KeyByUserID()))
	{
		auth.GET("", m.Handler.GetProfile)
		auth.PUT("/update", m.Handler.UpdateProfile)
		auth.PUT("/password/update", m.Handler.ChangePassword)
		auth.PUT("/avatar", m.Handler.UploadAvatar)
	}
}
