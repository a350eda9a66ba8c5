package modules

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/bizbridge-auth/internal/interface/http"
	"github.com/oksasatya/bizbridge-auth/internal/interface/middleware"
	"github.com/oksasatya/bizbridge-auth/pkg/helpers"
)

type AdminModule struct {
	Handler *handlers.AdminHandler
	Redis   *redis.Client
	JWT     *helpers.JWTManager
}

func NewAdminModule(h *handlers.AdminHandler, rdb *redis.Client, jwt *helpers.JWTManager) *AdminModule {
	return &AdminModule{Handler: h, Redis: rdb, JWT: jwt}
}

func (m *AdminModule) Register(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	admin.Use(middleware.Auth(m.Redis, m.JWT), middleware.RequireAdmin())
	{
		admin.GET("/all/users", m.Handler.ListUsers)
		admin.DELETE("/user/:id", m.Handler.DeleteUser)
		admin.GET("/users/search", m.Handler.SearchUsers)
	}
}
