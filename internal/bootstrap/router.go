package bootstrap

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/flowwatch/flowwatch-backend/internal/api/http"
	"github.com/flowwatch/flowwatch-backend/internal/api/http/middleware"
	monitorhttp "github.com/flowwatch/flowwatch-backend/internal/api/http/monitor"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	APIKey      string
	Redis       *redis.Client
	DB          *pgxpool.Pool
	Monitor     monitorhttp.Service
}

func SetGinMode(env string) {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()

	// The settings endpoint is read by a browser-hosted widget.
	r.Use(cors.Default())

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Redis, dep.DB)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")
	api.Use(middleware.APIKeyMiddleware(dep.APIKey))
	api.Use(middleware.RequestIDMiddleware())

	monitorHandler := monitorhttp.NewHandler(dep.Monitor)
	monitorHandler.Register(api)

	return r
}
