// Package main is the entry point for the API server
//
//	@title			EventTrack API
//	@version		1.0
//	@description	Multi-tenant event ingestion: channels, API keys, visitors and events.
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes		http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in						header
//	@name					Authorization
//
//	@securityDefinitions.apikey	APIKey
//	@in						header
//	@name					apikey
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"eventtrack-api/internal/accounts"
	"eventtrack-api/internal/config"
	"eventtrack-api/internal/db"
	"eventtrack-api/internal/esx"
	"eventtrack-api/internal/events"
	"eventtrack-api/internal/httpx"
	"eventtrack-api/internal/httpx/kit"
	"eventtrack-api/internal/logx"
	"eventtrack-api/internal/mqx"
	"eventtrack-api/internal/orgs"
	"eventtrack-api/internal/redisx"
	"eventtrack-api/internal/server"

	_ "eventtrack-api/docs" // swagger docs
)

func main() {
	// Load .env if present
	_ = godotenv.Load()

	// Load config (env first; optional Apollo override)
	cfg, store, apClose, err := config.Load()
	if err != nil {
		panic(err)
	}
	if apClose != nil {
		defer apClose()
	}

	logx.Init(cfg.Log.Level, cfg.Log.Format)
	mainLogger := logx.GetScope("main")

	mainLogger.Info("config loaded",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.Server.Addr),
		zap.String("db.driver", cfg.DB.Driver),
		zap.String("log.level", cfg.Log.Level),
		zap.String("log.format", cfg.Log.Format),
	)

	drv, closeDB, err := db.Open(cfg)
	if err != nil {
		mainLogger.Sugar().Errorw("open db error", "err", err)
		panic(err)
	}
	defer closeDB()

	if cfg.DB.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := db.Migrate(ctx, drv)
		cancel()
		if err != nil {
			mainLogger.Sugar().Errorw("auto migrate error", "err", err)
			panic(err)
		}
	}

	tokens, err := accounts.NewTokens(cfg)
	if err != nil {
		mainLogger.Sugar().Errorw("jwt config error", "err", err)
		panic(err)
	}

	// Optional deps: Redis, MQ, ES. Each one degrades to an in-process fallback.
	var eventOpts []events.Option

	rdb, redisClose, err := redisx.Open(cfg)
	if err != nil {
		mainLogger.Sugar().Warnw("redis init failed", "err", err)
	} else {
		defer redisClose()
	}
	if rdb != nil {
		eventOpts = append(eventOpts, events.WithKeyCache(redisx.NewKeyCache(rdb, time.Duration(cfg.Events.KeyCacheTTLSec)*time.Second)))
	}

	var mailer orgs.Mailer
	if cfg.MQ.URL != "" {
		if pub, err := mqx.NewRabbitPublisher(cfg.MQ.URL, cfg.MQ.Exchange); err != nil {
			mainLogger.Sugar().Warnw("mq init failed; invite mails are logged only", "err", err)
		} else {
			defer func() { _ = pub.Close() }()
			mailer = mqx.NewMailQueue(pub)
		}
	}

	esClient, esClose, err := esx.Open(cfg)
	if err != nil {
		mainLogger.Sugar().Warnw("es init failed", "err", err)
	} else {
		defer esClose()
	}
	if esClient != nil {
		dir := esx.NewVisitorDirectory(esClient, cfg.ES.VisitorIndex)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := dir.EnsureIndex(ctx)
		cancel()
		if err != nil {
			mainLogger.Sugar().Warnw("visitor index unavailable; search disabled", "err", err)
		} else {
			eventOpts = append(eventOpts, events.WithVisitorDirectory(dir))
		}
	}

	accountSvc := accounts.NewService(drv, tokens)
	orgSvc := orgs.NewService(drv, accountSvc, tokens, mailer, orgs.Options{
		BaseURL:   cfg.Invite.BaseURL,
		InviteTTL: time.Duration(cfg.Invite.ExpireHours) * time.Hour,
	})
	eventSvc := events.NewService(drv, orgSvc, eventOpts...)

	app := fiber.New(fiber.Config{ErrorHandler: kit.ErrorHandler()})
	httpx.RegisterCommonMiddlewares(app)
	httpx.Register(app, httpx.Deps{
		Config:   cfg,
		DB:       drv.DB(),
		Redis:    rdb,
		Tokens:   tokens,
		Accounts: accountSvc,
		Orgs:     orgSvc,
		Events:   eventSvc,
	})

	// Validators: rollback strategy for invalid config
	store.AddValidator(func(newCfg *config.Config, changed map[string]bool) error {
		if changed["db.max_open"] || changed["db.max_idle"] {
			if newCfg.DB.MaxIdleConns > newCfg.DB.MaxOpenConns {
				return fmt.Errorf("DB_MAX_IDLE cannot exceed DB_MAX_OPEN")
			}
		}
		return nil
	})

	store.Watch(func(newCfg *config.Config, changed map[string]bool) {
		if changed["db.max_open"] || changed["db.max_idle"] {
			db.UpdatePool(newCfg.DB.MaxOpenConns, newCfg.DB.MaxIdleConns)
			mainLogger.Info("db pool updated",
				zap.Int("max_open", newCfg.DB.MaxOpenConns),
				zap.Int("max_idle", newCfg.DB.MaxIdleConns),
			)
		}
		for _, key := range []string{"db.url", "server.addr", "redis.addr", "mq.url", "es.addrs", "events.rl_window_sec", "events.rl_max", "events.key_cache_ttl_sec", "invite.base_url", "invite.expire_hours"} {
			if changed[key] {
				mainLogger.Warn("config changed; restart required to take effect", zap.String("key", key))
			}
		}
		if changed["log.level"] || changed["log.format"] {
			logx.Init(newCfg.Log.Level, newCfg.Log.Format)
			mainLogger.Info("logger reconfigured",
				zap.String("level", newCfg.Log.Level),
				zap.String("format", newCfg.Log.Format),
			)
		}
	})

	// Graceful shutdown
	go func() {
		ln, err := server.GetListener(cfg.Server.Addr)
		if err != nil {
			mainLogger.Sugar().Errorf("listener error: %v", err)
			return
		}
		if err := app.Listener(ln); err != nil {
			mainLogger.Sugar().Infof("fiber exit: %v", err)
		}
	}()
	mainLogger.Sugar().Infof("server started on %s", cfg.Server.Addr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	mainLogger.Sugar().Info("shutting down...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		mainLogger.Sugar().Warnf("shutdown: %v", err)
	}
}
