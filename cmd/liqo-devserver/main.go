package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/me/jejakliqo/internal/config"
	"github.com/me/jejakliqo/internal/devserver"
	"github.com/me/jejakliqo/internal/logging"
)

func main() {
	configFile := flag.String("config", "", "Config file (default ~/.jejakliqo/config.yaml)")
	addr := flag.String("addr", "", "Listen address (overrides devserver.addr)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "Log format (text, json)")
	debug := flag.Bool("debug", false, "Shorthand for --log-level=debug")
	noSeed := flag.Bool("no-seed", false, "Start without demo accounts and data")

	// Failure knobs for exercising client error handling.
	latency := flag.Duration("latency", -1, "Delay added to every request (overrides devserver.latency)")
	maintenance := flag.Bool("maintenance", false, "Answer logins with the maintenance 500")
	pageExpired := flag.Bool("page-expired", false, "Answer every request with 419")
	omitExpiry := flag.Bool("omit-expiry", false, "Leave token_expires_at out of login responses")
	malformedLogin := flag.Bool("malformed-login", false, "Leave the token out of login responses")

	flag.Parse()

	path := *configFile
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.DevServer.Addr = *addr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *debug {
		cfg.Log.Level = "debug"
	}
	if *latency >= 0 {
		cfg.DevServer.Latency = *latency
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)

	dcfg := devserver.DefaultConfig()
	dcfg.JWTSecret = cfg.DevServer.JWTSecret
	dcfg.TokenTTL = cfg.DevServer.TokenTTL
	dcfg.Seed = !*noSeed
	srv, err := devserver.New(dcfg, devserver.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "create server: %v\n", err)
		os.Exit(1)
	}
	defer srv.Close()

	knobs := srv.Knobs()
	knobs.SetLatency(cfg.DevServer.Latency)
	knobs.SetMaintenance(*maintenance)
	knobs.SetPageExpired(*pageExpired)
	knobs.SetOmitExpiry(*omitExpiry)
	knobs.SetMalformedLogin(*malformedLogin)

	httpServer := &http.Server{
		Addr:              cfg.DevServer.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("devserver starting", "addr", cfg.DevServer.Addr, "seeded", dcfg.Seed)
		if dcfg.Seed {
			logger.Info("demo accounts use password " + devserver.SeedPassword)
		}
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
