package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/bizbridge-auth/config"
	"github.com/oksasatya/bizbridge-auth/internal/application"
	"github.com/oksasatya/bizbridge-auth/internal/container"
	handlers "github.com/oksasatya/bizbridge-auth/internal/interface/http"
	"github.com/oksasatya/bizbridge-auth/internal/interface/middleware"
	"github.com/oksasatya/bizbridge-auth/internal/metrics"
	"github.com/oksasatya/bizbridge-auth/internal/router/modules"
	"github.com/oksasatya/bizbridge-auth/pkg/helpers"
)

// Deps is everything the HTTP modules need.
type Deps struct {
	Config  *config.Config
	Logger  *logrus.Logger
	Redis   *redis.Client
	JWT     *helpers.JWTManager
	Service *application.Service
}

// BuildDeps wires the application service from the container singletons.
func BuildDeps() Deps {
	var opts []application.Option
	if x := container.GetUserIndex(); x != nil {
		opts = append(opts, application.WithUserIndex(x))
	}
	if u := container.GetAvatarUploader(); u != nil {
		opts = append(opts, application.WithAvatarStore(u))
	}

	service := application.NewService(
		container.GetUsers(),
		container.GetJWT(),
		container.GetRedis(),
		container.GetMailer(),
		container.GetLogger(),
		container.GetConfig(),
		opts...,
	)

	return Deps{
		Config:  container.GetConfig(),
		Logger:  container.GetLogger(),
		Redis:   container.GetRedis(),
		JWT:     container.GetJWT(),
		Service: service,
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry, d Deps) {
	cookies := helpers.NewCookie(d.Config.CookieDomain, d.Config.CookieSecure)

	var allow middleware.AllowFunc
	if d.Config.Env == "development" {
		allow = middleware.AllowPrivateIP()
	}
	limits := modules.Limiter{Redis: d.Redis, Allow: allow}

	r.AddRoot(modules.NewDebugModule(d.Config.DebugMetricsEnabled))
	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(d.Service, d.Logger, cookies), limits))
	r.Add(modules.NewUserModule(handlers.NewUserHandler(d.Service, d.Logger, cookies), d.Redis, d.JWT, limits))
	r.Add(modules.NewAdminModule(handlers.NewAdminHandler(d.Service, d.Logger), d.Redis, d.JWT))
}

// NewEngine builds the gin engine with global middleware and every module mounted.
func NewEngine(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	if d.Config.TrustProxyHeaders {
		r.Use(middleware.RealIP())
	}
	r.Use(metrics.GinMiddleware())

	// CORS
	corsCfg := cors.Config{
		AllowOrigins:     d.Config.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsCfg.AllowOrigins) > 0 {
		r.Use(cors.New(corsCfg))
	}

	// health and metrics scrapes stay out of the access log
	reg := NewRegistry(r)
	if d.Config.HTTPLogEnabled {
		reg.Use(middleware.AccessLog(d.Logger))
	}
	reg.Use(middleware.ErrorResponder(d.Logger))
	InitModules(reg, d)
	reg.RegisterAll()
	return r
}
