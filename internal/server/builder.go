// Package server assembles the gin engine and owns its lifecycle.
package server

import (
	"context"
	"fmt"
	"net/http"

	"antigravity2api-go/internal/account"
	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/handlers/common"
	"antigravity2api-go/internal/handlers/management"
	"antigravity2api-go/internal/middleware"
	"antigravity2api-go/internal/sigcache"
	"antigravity2api-go/internal/translator"
	"antigravity2api-go/internal/upstream"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Deps are the wired components the server routes over.
type Deps struct {
	Cfg         *config.Config
	Antigravity *account.Manager
	CLI         *account.Manager
	AntiClient  *upstream.Client
	CLIClient   *upstream.Client
	Conv        *translator.Converter
	Signatures  *sigcache.Cache
}

// Server wraps the HTTP engine.
type Server struct {
	cfg  *config.Config
	http *http.Server
}

// New builds the engine with the middleware chain and all routes.
func New(deps Deps) *Server {
	if !deps.Cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.CORS(),
	)

	antiRelay := &common.Relay{
		Cfg:     deps.Cfg,
		Manager: deps.Antigravity,
		Client:  deps.AntiClient,
		Conv:    deps.Conv,
	}
	cliRelay := &common.Relay{
		Cfg:     deps.Cfg,
		Manager: deps.CLI,
		Client:  deps.CLIClient,
		Conv:    deps.Conv,
	}
	mgmt := management.New(deps.Cfg, deps.Antigravity, deps.CLI, deps.Signatures)

	registerRoutes(engine, deps, antiRelay, cliRelay, mgmt)

	addr := fmt.Sprintf("%s:%d", deps.Cfg.Host, deps.Cfg.Port)
	return &Server{
		cfg: deps.Cfg,
		// Long generations rule out server-side write timeouts; the
		// heartbeat keeps intermediaries from idle-closing.
		http: &http.Server{Addr: addr, Handler: engine},
	}
}

// Run blocks serving until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	log.Infof("listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
