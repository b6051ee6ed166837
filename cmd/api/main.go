package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/workspace-search/internal/adapters/http"
	mcpadapter "github.com/kirillkom/workspace-search/internal/adapters/mcp"
	"github.com/kirillkom/workspace-search/internal/bootstrap"
	"github.com/kirillkom/workspace-search/internal/config"
	"github.com/kirillkom/workspace-search/internal/observability/logging"
)

const serviceName = "workspace-search"

func main() {
	mcpMode := flag.Bool("mcp", false, "serve the MCP stdio transport instead of HTTP")
	flag.Parse()

	cfg := config.Load()

	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	if *mcpMode {
		logger = logging.NewStderrLogger(serviceName, cfg.LogLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger, serviceName)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	go func() {
		if err := app.StartInvalidation(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("index_event_subscription_failed", "error", err)
		}
	}()

	if *mcpMode {
		serveMCP(ctx, app)
		return
	}
	serveHTTP(ctx, app)
}

func serveMCP(ctx context.Context, app *bootstrap.App) {
	server := mcpadapter.NewServer(app.RetrieveUC, app.Logger)
	if err := server.Serve(ctx); err != nil {
		app.Logger.Error("mcp_server_error", "error", err)
	}
}

func serveHTTP(ctx context.Context, app *bootstrap.App) {
	cfg := app.Config

	router := httpadapter.NewRouter(app.RetrieveUC, app.LinkUC, app.Logger).Handler()
	trafficControl := httpadapter.TrafficControl{
		RPS:           cfg.RateLimitRPS,
		Burst:         cfg.RateLimitBurst,
		MaxConcurrent: cfg.MaxConcurrentSearch,
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", app.Metrics.Handler())
	mux.Handle("/", trafficControl.Wrap(app.Metrics.Middleware(serviceName, router)))

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		app.Logger.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("api_shutdown_error", "error", err)
	}
}
