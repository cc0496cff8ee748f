// Command livehub is the main entrypoint for the community real-time backend.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs idempotent migrations.
//   - Starts background jobs: the chat hub, the retention sweep, and the
//     optional Twitch chat mirror.
//   - Exposes an HTTP server with /ws, /live, /healthz, /readyz, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/onnwee/livehub/chat"
	"github.com/onnwee/livehub/config"
	"github.com/onnwee/livehub/db"
	"github.com/onnwee/livehub/kickapi"
	"github.com/onnwee/livehub/live"
	"github.com/onnwee/livehub/server"
	"github.com/onnwee/livehub/telemetry"
	"github.com/onnwee/livehub/twicasapi"
	"github.com/onnwee/livehub/twitchapi"
	"github.com/onnwee/livehub/youtubeapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		// unknown level -> keep info but note once using temporary logger
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("livehub", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// DB
	database, err := db.Connect()
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.Migrate(context.Background(), database); err != nil {
		slog.Error("failed to migrate db", slog.Any("err", err))
		os.Exit(1)
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Chat hub and background jobs
	hub := chat.NewHub(&chat.SQLStore{DB: database}, cfg.HistoryWindow, cfg.HistoryLimit)
	go hub.Run(ctx)
	go chat.StartRetentionJob(ctx, database)
	go chat.StartMirror(ctx, cfg, hub)

	// Live status pollers, one per platform. A platform without credentials is
	// simply left out of the map and its streamers report offline.
	pollers := map[db.Platform]live.Poller{
		db.PlatformKick: kickapi.NewClient(),
	}
	if cfg.TwitchClientID != "" && cfg.TwitchClientSecret != "" {
		pollers[db.PlatformTwitch] = twitchapi.NewClient(cfg.TwitchClientID, cfg.TwitchClientSecret)
	} else {
		slog.Info("twitch poller disabled (missing client credentials)")
	}
	if cfg.YouTubeAPIKey != "" {
		yt, err := youtubeapi.New(ctx, cfg.YouTubeAPIKey)
		if err != nil {
			slog.Error("youtube client init failed", slog.Any("err", err))
			os.Exit(1)
		}
		pollers[db.PlatformYouTube] = yt
	} else {
		slog.Info("youtube poller disabled (missing api key)")
	}
	if cfg.TwitCastingToken != "" {
		pollers[db.PlatformTwitCasting] = twicasapi.NewClient(cfg.TwitCastingToken)
	} else {
		slog.Info("twitcasting poller disabled (missing token)")
	}
	aggregator := live.NewAggregator(database, pollers, cfg.LiveCacheTTL)

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	// HTTP server
	go func() {
		if err := server.Start(ctx, database, hub, aggregator, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}
