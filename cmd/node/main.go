// cmd/node is the entrypoint for a ShopSync storage node, generalizing
// cmd/server's original (flags, graceful shutdown, background
// snapshot ticker) to the node half of the router/node split spec.md
// describes: a node persists shopping lists and coordinates quorum
// operations, registering itself with one or more routers on startup
// instead of taking peer addresses directly on the command line.
//
// Example — three-node cluster behind a router pair:
//
//	./node --id node1 --addr :9090 --data-dir /tmp/shopsync/n1 --routers http://localhost:8080,http://localhost:8081
//	./node --id node2 --addr :9091 --data-dir /tmp/shopsync/n2 --routers http://localhost:8080,http://localhost:8081
//	./node --id node3 --addr :9092 --data-dir /tmp/shopsync/n3 --routers http://localhost:8080,http://localhost:8081
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
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"shopsync/internal/config"
	"shopsync/internal/localstore"
	"shopsync/internal/logging"
	"shopsync/internal/nodeserver"
	"shopsync/internal/ring"
	"shopsync/internal/transport"
	"shopsync/internal/wire"
)

func main() {
	fs := pflag.NewFlagSet("node", pflag.ExitOnError)
	load := config.NodeFlags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "FATAL:", err)
		os.Exit(1)
	}

	logger := logging.New("node", cfg.LogLevel, cfg.LogPretty)

	store, err := localstore.Open(cfg.DataDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("open local store")
	}

	sender := transport.NewHTTPSender(cfg.HealthCheckTimeout)
	nodeRing := ring.New(ring.DefaultVnodes)
	node := nodeserver.New(cfg.Addr, cfg, nodeRing, store, sender, logger)

	if err := node.LoadFromDisk(); err != nil {
		logger.Fatal().Err(err).Msg("replay local store")
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(logging.GinLogger(logger), logging.GinRecovery(logger))
	handler := nodeserver.NewHandler(node)
	handler.Register(engine)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"node": cfg.ID, "status": "ok"})
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      engine,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	registerWithRouters(context.Background(), cfg, sender, nodeRing, logger)

	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("id", cfg.ID).Msg("node listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	go node.RunHintFlushLoop(context.Background())

	go func() {
		interval := cfg.HintFlushInterval
		if interval <= 0 {
			interval = 15 * time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			if err := node.FlushDirty(); err != nil {
				logger.Warn().Err(err).Msg("flush dirty lists failed")
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := node.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("final flush failed")
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}
}

// registerWithRouters announces this node to every configured router
// and seeds its own ring copy with whatever nodes each router already
// knew about, mirroring DynamoNode's startup REGISTER handshake.
func registerWithRouters(ctx context.Context, cfg config.Node, sender transport.Sender, nodeRing *ring.Ring, logger zerolog.Logger) {
	nodeRing.AddNode(cfg.Addr)

	for _, router := range cfg.Routers {
		resp, err := sender.Send(ctx, router, wire.BuildRegister(cfg.ID, cfg.Addr))
		if err != nil {
			logger.Warn().Err(err).Str("router", router).Msg("register failed")
			continue
		}
		for _, addr := range decodeAddresses(resp.Value) {
			nodeRing.AddNode(addr)
		}
		logger.Info().Str("router", router).Msg("registered")
	}
}

// decodeAddresses recovers a []string from an envelope Value field
// that round-tripped through JSON as []interface{} (Value is typed
// any so json.Marshal/Unmarshal never see the concrete []string).
func decodeAddresses(value any) []string {
	raw, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
