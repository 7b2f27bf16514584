package server

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/gookit/event"
	"github.com/plugward/plugward/internal/conf"
	"github.com/plugward/plugward/internal/database/auditlog"
	"github.com/plugward/plugward/internal/eventType"
	logutil "github.com/plugward/plugward/internal/log"
	"github.com/plugward/plugward/internal/version"
	"go.uber.org/fx"
)

// FxModule provides the gin engine and the HTTP server lifecycle.
func FxModule() fx.Option {
	return fx.Options(
		fx.Provide(provideEngine),
		fx.Invoke(registerAuditStream),
		fx.Invoke(registerServerLifecycle),
	)
}

func provideEngine(cfg *conf.Config) (*gin.Engine, error) {
	if version.CurrentVersion != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(logutil.GinLogger())
	r.Use(logutil.GinRecovery())

	corsEnabled := &atomic.Bool{}
	corsEnabled.Store(cfg.AllowCors)

	r.Use(func(c *gin.Context) {
		if corsEnabled.Load() {
			c.Header("Access-Control-Allow-Origin", "*")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, HEAD, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Length, Content-Type, Authorization, Accept, X-CSRF-Token, X-Requested-With, Set-Cookie")
			c.Header("Access-Control-Expose-Headers", "Content-Length, Authorization, Set-Cookie")
			c.Header("Access-Control-Allow-Credentials", "false")
			c.Header("Access-Control-Max-Age", "43200")
			if c.Request.Method == "OPTIONS" {
				c.AbortWithStatus(204)
				return
			}
		}
		c.Next()
	})

	r.Use(func(c *gin.Context) {
		if len(c.Request.URL.Path) >= 4 && c.Request.URL.Path[:4] == "/api" {
			c.Header("Cache-Control", "no-store")
		}
		c.Next()
	})

	r.Any("/ping", func(c *gin.Context) {
		c.String(200, "pong")
	})

	event.On(eventType.ConfigUpdated, event.ListenerFunc(func(e event.Event) error {
		newConf := e.Get("new").(conf.Config)
		corsEnabled.Store(newConf.AllowCors)
		return nil
	}), event.High)

	return r, nil
}

type httpRunner struct {
	server  *http.Server
	stopped chan struct{}
}

func registerServerLifecycle(lc fx.Lifecycle, engine *gin.Engine, cfg *conf.Config) {
	runner := &httpRunner{stopped: make(chan struct{})}

	lc.Append(fx.Hook{
		OnStart: func(_ctx context.Context) error {
			if engine == nil {
				return errors.New("gin engine is nil")
			}

			// Route registration is event-driven; listeners receive the engine.
			if err, _ := event.Trigger(eventType.ServerInitializeStart, event.M{"engine": engine}); err != nil {
				slog.Error("Something went wrong during ServerInitializeStart event.", slog.Any("error", err))
				return err
			}

			runner.server = &http.Server{Addr: cfg.Listen, Handler: engine}
			event.Trigger(eventType.ServerInitializeDone, event.M{})

			log.Printf("Starting server on %s ...", cfg.Listen)
			go func() {
				defer close(runner.stopped)
				if err := runner.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					auditlog.Log("", "server", "server encountered a fatal error", err.Error())
					event.Trigger(eventType.ProcessExit, event.M{})
					log.Printf("listen: %v", err)
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			auditlog.Log("", "server", "server is shutting down", "")
			event.Trigger(eventType.ProcessExit, event.M{})
			if runner.server == nil {
				return nil
			}
			err := runner.server.Shutdown(ctx)
			select {
			case <-runner.stopped:
			case <-ctx.Done():
			}
			return err
		},
	})
}
