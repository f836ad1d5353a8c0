// Package app wires configuration, storage, and the HTTP surface into a
// runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/telecomsuite/subtrack/internal/config"
	"github.com/telecomsuite/subtrack/internal/db"
	"github.com/telecomsuite/subtrack/internal/http/api/admin"
	"github.com/telecomsuite/subtrack/internal/http/api/front"
)

// shutdownGrace bounds how long in-flight requests may finish on shutdown.
const shutdownGrace = 10 * time.Second

// RunServer opens storage, migrates and seeds it, and serves the admin and
// user APIs until ctx is cancelled.
func RunServer(ctx context.Context, configPath string, port int) error {
	dsn, errDSN := config.LoadDatabaseDSN(configPath)
	if errDSN != nil {
		return fmt.Errorf("load database dsn: %w", errDSN)
	}
	conn, errOpen := db.Open(dsn)
	if errOpen != nil {
		return fmt.Errorf("open database: %w", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return fmt.Errorf("migrate database: %w", errMigrate)
	}
	if errSeed := db.Seed(conn); errSeed != nil {
		return fmt.Errorf("seed database: %w", errSeed)
	}

	jwtCfg, errJWT := config.LoadJWTConfig(configPath)
	if errJWT != nil {
		return fmt.Errorf("load jwt config: %w", errJWT)
	}
	if jwtCfg.Secret == "" {
		return errors.New("missing jwt secret (set JWT_SECRET or `jwt.secret` in config file)")
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	admin.RegisterAdminRoutes(engine, conn, jwtCfg)
	front.RegisterFrontRoutes(engine, conn, jwtCfg)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: engine,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", server.Addr)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case errServe := <-serveErr:
		if errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", errServe)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		return fmt.Errorf("shutdown: %w", errShutdown)
	}
	log.Info("server stopped")
	return nil
}
