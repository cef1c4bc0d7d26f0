package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/AnhadSachdeva/Key-Value-Store/internal/config"
	"github.com/AnhadSachdeva/Key-Value-Store/internal/logger"
	"github.com/AnhadSachdeva/Key-Value-Store/internal/server"
	"github.com/AnhadSachdeva/Key-Value-Store/internal/storage"
	"github.com/AnhadSachdeva/Key-Value-Store/internal/web"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer log.Sync() //nolint:errcheck

	// the first positional argument overrides the configured port
	port := cfg.Server.Port
	if len(os.Args) > 1 {
		if n, err := strconv.Atoi(os.Args[1]); err == nil && n >= 1 && n <= 65535 {
			port = os.Args[1]
		} else {
			log.Warn("invalid port argument, using configured port",
				zap.String("arg", os.Args[1]),
				zap.String("port", port),
			)
		}
	}

	log.Info("kvstore starting", zap.String("port", port))

	store := storage.NewStore(log)
	engine := server.NewEngine(store, log)
	srv := server.NewServer(engine, log)

	address := net.JoinHostPort(cfg.Server.Host, port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		log.Error("listener error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("listening on", zap.String("address", address))

	var adminSrv *web.Server
	if cfg.Web.Enabled {
		adminSrv = web.New(cfg.Web.Addr, store, log)
		adminSrv.Start()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		srv.Serve(listener) //nolint:errcheck
	}()

	<-ctx.Done()

	log.Info("Shutting down...")

	listener.Close() //nolint:errcheck

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if adminSrv != nil {
		if err := adminSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("admin endpoint shutdown failed", zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		srv.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("All connections closed gracefully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timed out, forcing exit", zap.Duration("timeout", 5*time.Second))
	}

	engine.Shutdown()

	log.Info("kvstore stopped")
}
