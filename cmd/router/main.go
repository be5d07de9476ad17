// cmd/router is the entrypoint for one half of a ShopSync BStar router
// pair, generalizing cmd/server's original startup shape (flags,
// Gin, graceful shutdown) to the front-door role spec.md §4.4/§4.5
// describes: electing coordinators, forwarding client traffic, and
// running the Binary Star active/standby exchange against its peer.
//
// Example — a primary/backup pair:
//
//	./router --id router-primary --addr :8080 --peer-router http://localhost:8081
//	./router --id router-backup  --addr :8081 --peer-router http://localhost:8080 --primary=false
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"shopsync/internal/bstar"
	"shopsync/internal/config"
	"shopsync/internal/logging"
	"shopsync/internal/router"
	"shopsync/internal/transport"
)

func main() {
	fs := pflag.NewFlagSet("router", pflag.ExitOnError)
	primary := fs.Bool("primary", true, "start as BStar PRIMARY (false starts as BACKUP)")
	load := config.RouterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "FATAL:", err)
		os.Exit(1)
	}

	logger := logging.New("router", cfg.LogLevel, cfg.LogPretty)

	sender := transport.NewHTTPSender(cfg.CoordinatorHealthCheckTimeoutOrDefault())
	r := router.New(cfg, sender, logger, *primary)

	if cfg.PeerRouter != "" {
		exchange := bstar.NewExchange(r.FSM(), sender, cfg.PeerRouter, cfg.HeartbeatBStarOrDefault(), logger)
		r.SetExchange(exchange)
		go exchange.Run(context.Background())
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(logging.GinLogger(logger), logging.GinRecovery(logger))
	handler := router.NewHandler(r)
	handler.Register(engine)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"router": cfg.ID, "state": r.FSM().State().String()})
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      engine,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	monitorCtx, cancelMonitor := context.WithCancel(context.Background())
	go r.RunLivenessMonitor(monitorCtx)

	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("id", cfg.ID).Msg("router listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	cancelMonitor()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}
}
