package server

import (
	"net/http"
	"runtime"

	"antigravity2api-go/internal/handlers/claude"
	"antigravity2api-go/internal/handlers/common"
	"antigravity2api-go/internal/handlers/gemini"
	"antigravity2api-go/internal/handlers/management"
	"antigravity2api-go/internal/handlers/openai"
	"antigravity2api-go/internal/middleware"
	"antigravity2api-go/internal/models"
	"github.com/gin-gonic/gin"
)

func registerRoutes(engine *gin.Engine, deps Deps, antiRelay, cliRelay *common.Relay, mgmt *management.Handler) {
	auth := middleware.APIKeyAuth(deps.Cfg.APIKey)

	// Antigravity pool surface.
	engine.POST("/v1/chat/completions", auth, openai.ChatCompletions(antiRelay))
	engine.POST("/v1/messages", auth, claude.Messages(antiRelay))
	engine.POST("/v1beta/models/*modelAction", auth, gemini.GenerateContent(antiRelay))
	engine.GET("/v1/models", auth, openai.ListModels(models.Antigravity))
	engine.GET("/v1beta/models", auth, gemini.ListModels(models.Antigravity))

	// CLI pool mirror.
	cli := engine.Group("/cli")
	cli.POST("/v1/chat/completions", auth, openai.ChatCompletions(cliRelay))
	cli.POST("/v1/messages", auth, claude.Messages(cliRelay))
	cli.POST("/v1beta/models/*modelAction", auth, gemini.GenerateContent(cliRelay))
	cli.GET("/v1/models", auth, openai.ListModels(models.CLI))
	cli.GET("/v1beta/models", auth, gemini.ListModels(models.CLI))

	// Ops.
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/v1/memory", auth, func(c *gin.Context) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		c.JSON(http.StatusOK, gin.H{
			"alloc_bytes":     m.Alloc,
			"sys_bytes":       m.Sys,
			"num_gc":          m.NumGC,
			"goroutines":      runtime.NumGoroutine(),
			"signature_cache": deps.Signatures.Len(),
		})
	})

	// Management surface; same-origin, session-gated.
	api := engine.Group("/api/management")
	api.POST("/login", middleware.LoginRateLimiter(), mgmt.Login)

	authed := api.Group("", mgmt.RequireSession())
	authed.PUT("/rotation", mgmt.UpdateRotation)
	authed.POST("/signatures/clear", mgmt.ClearSignatures)

	pool := authed.Group("/:pool")
	pool.GET("/tokens", mgmt.ListTokens)
	pool.POST("/tokens", mgmt.AddToken)
	pool.GET("/export", mgmt.ExportTokens)
	pool.POST("/import", mgmt.ImportTokens)
	pool.PATCH("/tokens/:tokenId", mgmt.UpdateToken)
	pool.DELETE("/tokens/:tokenId", mgmt.DeleteToken)
	pool.POST("/tokens/:tokenId/refresh", mgmt.RefreshToken)
	pool.POST("/tokens/:tokenId/project", mgmt.FetchProject)
}
