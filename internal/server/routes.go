package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	slogGin "github.com/samber/slog-gin"

	savesHandler "github.com/pepasjc/savesync/internal/server/handlers/saves"
	syncHandler "github.com/pepasjc/savesync/internal/server/handlers/sync"
	titlesHandler "github.com/pepasjc/savesync/internal/server/handlers/titles"
	updateHandler "github.com/pepasjc/savesync/internal/server/handlers/update"
	"github.com/pepasjc/savesync/internal/server/middlewares"
	"github.com/pepasjc/savesync/internal/version"
)

func SetupRoutes(config *Config, svc *Services) http.Handler {
	r := gin.New()

	savesH := savesHandler.New(svc.Saves)
	syncH := syncHandler.New(svc.Saves)
	titlesH := titlesHandler.New(svc.Saves, svc.Titles, config.Saves.DataDir)
	updateH := updateHandler.New(&config.Update)

	httpLogger := slog.Default().WithGroup("http")
	r.Use(slogGin.NewWithConfig(httpLogger, slogGin.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
		WithRequestID:    true,
	}))
	r.Use(gin.Recovery())
	r.Use(gzip.Gzip(gzip.BestSpeed))
	r.Use(cors.Default())

	r.GET("/", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, version.DetailedWithApp())
	})
	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.PureJSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	v1.Use(middlewares.RateLimiter("600-M"))

	// status stays reachable without the shared key so consoles can probe
	// connectivity before configuration
	v1.GET("/status", titlesH.Status)

	authed := v1.Group("")
	authed.Use(middlewares.APIKeyAuth(config.Auth.APIKey))
	{
		authed.GET("/titles", titlesH.List)
		authed.POST("/titles/names", titlesH.Names)

		authed.GET("/saves/:title_id/meta", savesH.GetMeta)
		authed.GET("/saves/:title_id/history", savesH.History)
		authed.GET("/saves/:title_id/history/:tag", savesH.HistoryVersion)
		authed.GET("/saves/:title_id", savesH.Download)
		authed.POST("/saves/:title_id", savesH.Upload)

		authed.POST("/sync", syncH.Sync)

		authed.GET("/update/check", updateH.Check)
		authed.GET("/update/download", updateH.Download)
	}

	r.NoRoute(func(ctx *gin.Context) {
		ctx.PureJSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	r.NoMethod(func(ctx *gin.Context) {
		ctx.PureJSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	return r.Handler()
}
