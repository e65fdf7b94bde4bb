// Command minilodon is an idle-kick chat bot. It:
//   - Loads configuration and initializes structured logging.
//   - Opens the action store (JSON file or Postgres with migrations).
//   - Connects to IRC or Twitch chat, joins the control and monitored rooms,
//     and kicks participants of the monitored room who stay silent too long.
//   - Answers chat commands and video links posted in the monitored room.
//   - Exposes a small HTTP server with /healthz, /readyz, /metrics and /idle.
//
// Shutdown is graceful on SIGINT/SIGTERM. Losing the connection or being
// removed from a mandatory room exits non-zero.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/minilodon/actions"
	"github.com/onnwee/minilodon/chat"
	"github.com/onnwee/minilodon/chatlog"
	"github.com/onnwee/minilodon/commands"
	"github.com/onnwee/minilodon/config"
	"github.com/onnwee/minilodon/db"
	"github.com/onnwee/minilodon/server"
	"github.com/onnwee/minilodon/telemetry"
	"github.com/onnwee/minilodon/twitchapi"
	"github.com/onnwee/minilodon/video"
	"github.com/onnwee/minilodon/youtubeapi"
)

const version = "1.0.0"

func main() {
	// local dev convenience only; production relies on real env
	_ = godotenv.Load()

	setupLogging()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()
	shutdown, err := telemetry.InitTracing("minilodon", version,
		attribute.String("chat.transport", cfg.Transport),
		attribute.String("chat.room", cfg.MainChannel))
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()
	slog.Info("tracing configured", slog.Bool("enabled", telemetry.IsTracingEnabled()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("bot stopped", slog.Any("err", err), slog.Bool("fatal", chat.IsFatal(err)))
		shutdown()
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config) error {
	store, database, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if database != nil {
		defer func() {
			if err := database.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()
	}

	conn, err := newTransport(ctx, cfg)
	if err != nil {
		return err
	}

	logs := chatlog.NewBook(cfg.LogDir)
	logs.OnRotate = telemetry.CountRotation

	session := chat.NewSession(conn, logs, sessionOptions(cfg))

	set := commands.New(session, store, commands.Options{Video: newResolver(ctx, cfg)})
	if err := set.Install(ctx); err != nil {
		return fmt.Errorf("install commands: %w", err)
	}

	startPprof()
	go func() {
		if err := server.Start(ctx, session, database, cfg.HTTPAddr); err != nil {
			slog.Error("http server stopped", slog.Any("err", err))
		}
	}()
	go rotateDaily(ctx, session, logs)

	slog.Info("starting session",
		slog.String("transport", cfg.Transport),
		slog.String("main", cfg.MainChannel),
		slog.String("control", cfg.ControlChannel),
		slog.Duration("idle", cfg.IdleTime))
	return session.Run(ctx)
}

// sessionOptions maps config onto the session. The NickServ password only
// applies to IRC: the session waits for NickServ before joining.
func sessionOptions(cfg *config.Config) chat.Options {
	opts := chat.Options{
		MainRoom:        cfg.MainChannel,
		ControlRoom:     cfg.ControlChannel,
		IdleTimeout:     cfg.IdleTime,
		ServiceAccounts: cfg.ServiceAccounts,
	}
	if cfg.Transport == config.TransportIRC {
		opts.Password = cfg.Password
	}
	return opts
}

func setupLogging() {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		format = "text"
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", format))
}

// openStore returns the action store and, for the postgres backend, the
// database handle behind it.
func openStore(ctx context.Context, cfg *config.Config) (actions.Store, *sql.DB, error) {
	if cfg.ActionsBackend != config.BackendPostgres {
		slog.Info("using file action store", slog.String("path", cfg.ActionsFile))
		return actions.NewFileStore(cfg.ActionsFile), nil, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	database, err := db.Connect(connectCtx, cfg.DBDsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}

	// versioned migrations first, idempotent DDL as the fallback
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.RunMigrations(database); err != nil {
		slog.Warn("versioned migrations failed, falling back to embedded SQL",
			slog.Any("err", err), slog.String("component", "db_migrate"))
		if err := db.Migrate(ctx, database); err != nil {
			_ = database.Close()
			return nil, nil, fmt.Errorf("migrate db: %w", err)
		}
	}
	return actions.NewPGStore(database), database, nil
}

func newTransport(ctx context.Context, cfg *config.Config) (chat.Transport, error) {
	if cfg.Transport != config.TransportTwitch {
		return chat.NewIRCConn(chat.IRCConfig{
			Server:  cfg.Addr(),
			Nick:    cfg.Nick,
			TLS:     cfg.TLS,
			Version: "minilodon " + version,
			Quit:    "Bye",
		}), nil
	}

	token := cfg.TwitchOAuthToken
	if cfg.TwitchRefreshToken != "" {
		refreshCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		tok, err := twitchapi.RefreshChatToken(refreshCtx, nil, cfg.TwitchClientID, cfg.TwitchClientSecret, cfg.TwitchRefreshToken, "")
		cancel()
		switch {
		case err == nil:
			token = tok.AccessToken
			slog.Info("twitch chat token refreshed", slog.Time("expires", tok.Expiry))
		case token == "":
			return nil, fmt.Errorf("refresh twitch chat token: %w", err)
		default:
			slog.Warn("twitch chat token refresh failed, using configured token", slog.Any("err", err))
		}
	}
	return chat.NewTwitchConn(chat.TwitchConfig{Nick: cfg.Nick, Token: token}), nil
}

// newResolver wires the video providers whose credentials are configured.
// It returns nil when none are.
func newResolver(ctx context.Context, cfg *config.Config) commands.Describer {
	var providers []video.Provider
	if cfg.YouTubeAPIKey != "" {
		yt, err := youtubeapi.New(ctx, cfg.YouTubeAPIKey)
		if err != nil {
			slog.Warn("youtube lookups disabled", slog.Any("err", err))
		} else {
			providers = append(providers, video.YouTube{API: yt})
		}
	}
	if cfg.TwitchVideosEnabled() {
		providers = append(providers, video.Twitch{API: &twitchapi.HelixClient{
			AppTokenSource: &twitchapi.TokenSource{ClientID: cfg.TwitchClientID, ClientSecret: cfg.TwitchClientSecret},
			ClientID:       cfg.TwitchClientID,
		}})
	}
	if len(providers) == 0 {
		slog.Info("video lookups disabled: no provider credentials")
		return nil
	}
	return video.NewResolver(providers...)
}

// rotateDaily reopens room logs at local midnight so quiet rooms still roll
// over. Writes on a new day rotate on their own.
func rotateDaily(ctx context.Context, session *chat.Session, logs *chatlog.Book) {
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
		select {
		case <-ctx.Done():
			return
		case <-time.After(next.Sub(now)):
		}
		err := session.Do(ctx, func() {
			if err := logs.Rotate(); err != nil {
				slog.Error("log rotation failed", slog.Any("err", err))
			}
		})
		if err != nil {
			return
		}
	}
}

// startPprof serves /debug/pprof when ENABLE_PPROF=1.
func startPprof() {
	if os.Getenv("ENABLE_PPROF") != "1" {
		return
	}
	addr := os.Getenv("PPROF_ADDR")
	if addr == "" {
		addr = "localhost:6060"
	}
	go func() {
		slog.Info("pprof profiling enabled", slog.String("addr", addr))
		srv := &http.Server{
			Addr:              addr,
			Handler:           nil, // default mux exposes /debug/pprof
			ReadHeaderTimeout: 5 * time.Second,
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("pprof server error", slog.Any("err", err))
		}
	}()
}
