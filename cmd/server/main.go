package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"antigravity2api-go/internal/account"
	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/imagestore"
	"antigravity2api-go/internal/logging"
	"antigravity2api-go/internal/server"
	"antigravity2api-go/internal/sigcache"
	"antigravity2api-go/internal/tokenstore"
	"antigravity2api-go/internal/translator"
	"antigravity2api-go/internal/upstream"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg := config.Load(*configPath)
	if cfg == nil {
		os.Exit(1)
	}
	if err := logging.Setup(cfg); err != nil {
		log.WithError(err).Fatal("logging setup failed")
	}
	if err := cfg.EnsureDataDir(); err != nil {
		log.WithError(err).Fatal("data dir setup failed")
	}

	signatures := sigcache.New(sigcache.Policy{
		CacheThinking:        cfg.Signature.CacheThinking,
		CacheToolSignatures:  cfg.Signature.CacheToolSignatures,
		CacheImageSignatures: cfg.Signature.CacheImageSignatures,
		CacheAll:             cfg.Signature.CacheAll,
	}, cfg.SignatureTTL())
	conv := translator.NewConverter(signatures, cfg.PassSignatureToClient)
	conv.Images = imagestore.New(cfg.ImagesDir(), "/images")

	antiVariant := upstream.Antigravity()
	cliVariant := upstream.GeminiCLI()
	antiClient := upstream.New(cfg, antiVariant)
	cliClient := upstream.New(cfg, cliVariant)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	antiManager := buildManager(ctx, cfg, antiVariant, antiClient)
	cliManager := buildManager(ctx, cfg, cliVariant, cliClient)
	defer antiManager.Close()
	defer cliManager.Close()

	srv := server.New(server.Deps{
		Cfg:         cfg,
		Antigravity: antiManager,
		CLI:         cliManager,
		AntiClient:  antiClient,
		CLIClient:   cliClient,
		Conv:        conv,
		Signatures:  signatures,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	select {
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Fatal("server failed")
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ServerShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("graceful shutdown failed")
		}
	}
}

// buildManager wires one account pool: store backend, refresh, project
// bootstrap and the on-disk hot reload watcher.
func buildManager(ctx context.Context, cfg *config.Config, variant upstream.Variant, client *upstream.Client) *account.Manager {
	var store tokenstore.Store
	if cfg.RedisURL != "" {
		rs, err := tokenstore.NewRedisStore(cfg.RedisURL, variant.AccountsFile)
		if err != nil {
			log.WithError(err).Fatalf("[%s] redis store setup failed", variant.Name)
		}
		store = rs
	} else {
		store = tokenstore.NewFileStore(cfg.AccountsFile(variant.AccountsFile), cfg.EncryptPassword)
	}

	mgr := account.NewManager(account.Options{
		Variant:       variant,
		Store:         store,
		Caller:        client,
		Strategy:      account.ParseStrategy(cfg.Rotation.Strategy),
		RequestCount:  cfg.Rotation.RequestCount,
		RefreshBuffer: cfg.RefreshBuffer(),
	})
	if err := mgr.Init(ctx); err != nil {
		log.WithError(err).Fatalf("[%s] account pool init failed", variant.Name)
	}
	if err := mgr.Watch(); err != nil {
		log.WithError(err).Warnf("[%s] account file watcher unavailable", variant.Name)
	}
	return mgr
}
