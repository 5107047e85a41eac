package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/roneel47/4Sure-sub000/broker"
	"github.com/roneel47/4Sure-sub000/config"
	"github.com/roneel47/4Sure-sub000/game"
	"github.com/roneel47/4Sure-sub000/gateway"
	"github.com/roneel47/4Sure-sub000/logger"
	"github.com/roneel47/4Sure-sub000/migrations"
	"github.com/roneel47/4Sure-sub000/storage"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

type roomStore interface {
	game.RoomStore
	game.RoomRetirer
	Close() error
}

func CreateServer(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.SetTrustedProxies([]string{"127.0.0.1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})
	r.Use(gin.Recovery(), logger.GinMiddleware())
	r.GET("/health", func(ctx *gin.Context) { ctx.String(200, "healthy") })

	r.Use(func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")

		if slices.Contains(allowedOrigins, origin) {
			ctx.Next()
			return
		}
		ctx.String(http.StatusForbidden, "forbidden origin")
		ctx.Abort()
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}))

	return r
}

func openStore(ctx context.Context, cfg *config.Config) (roomStore, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		return storage.NewSQLiteStore(ctx, cfg.SQLitePath)
	case config.StorePostgres:
		if err := migrations.UpPostgres(ctx, cfg.PostgresURL); err != nil {
			return nil, err
		}
		return storage.NewPostgresRepo(ctx, cfg.PostgresURL)
	default:
		return storage.NewMemoryStore(), nil
	}
}

// openPublisher returns the hub itself when the instance runs alone. With NATS configured
// every notification makes a round trip through the broker so that all instances, this one
// included, deliver it the same way.
func openPublisher(cfg *config.Config, hub *gateway.Hub) (game.Publisher, func(), error) {
	if cfg.NatsURL == "" {
		return hub, func() {}, nil
	}

	url := cfg.NatsURL
	var embedded *broker.EmbeddedServer
	if url == config.NatsEmbedded {
		var err error
		embedded, err = broker.NewEmbeddedServer(broker.WithPort(cfg.NatsPort))
		if err != nil {
			return nil, nil, err
		}
		if err := embedded.Start(); err != nil {
			return nil, nil, err
		}
		url = embedded.ClientURL()
	}

	hostname, _ := os.Hostname()
	b, err := broker.Connect(url, fmt.Sprintf("codebreaker-%s-%d", hostname, os.Getpid()))
	if err != nil {
		if embedded != nil {
			embedded.Shutdown()
		}
		return nil, nil, err
	}
	unsubscribe, err := b.Subscribe(hub.Deliver)
	if err != nil {
		b.Close()
		if embedded != nil {
			embedded.Shutdown()
		}
		return nil, nil, err
	}

	return b, func() {
		unsubscribe()
		if err := b.Close(); err != nil {
			log.Warn().Err(err).Msg("draining nats connection")
		}
		if embedded != nil {
			embedded.Shutdown()
		}
	}, nil
}

func main() {
	// a missing .env is fine, the environment may already be populated
	_ = godotenv.Load()

	cfg, err := config.Load(os.LookupEnv)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := logger.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatal().Err(err).Msg("invalid LOG_LEVEL")
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("opening room store")
	}

	hub := gateway.NewHub()
	publisher, closePublisher, err := openPublisher(cfg, hub)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting room broker")
	}

	coordinator := game.NewCoordinator(store, publisher, game.WithMaxRetries(uint64(cfg.StoreMaxRetries)))

	tickers := game.SystemTickers{}
	janitor := game.NewJanitor(store, tickers, cfg.JanitorInterval, cfg.RoomIdleTTL)
	janitorStarted := make(chan struct{})
	go janitor.Run(ctx, janitorStarted)
	<-janitorStarted

	r := CreateServer(cfg.AllowedOrigins)

	gameHandler := gateway.NewGameHandler(coordinator, hub, tickers, cfg.AllowedOrigins,
		gateway.WithRateLimit(cfg.MessagesPerSecond, cfg.MessageBurst))
	{
		gameGroup := r.Group("/game")
		gameGroup.GET("/ws", gameHandler.WebsocketHandler)
		gameGroup.GET("/rooms/:roomid", gameHandler.RoomHandler)
	}

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server stopped")
		}
	}()
	log.Info().
		Str("port", cfg.Port).
		Str("store", cfg.StoreDriver).
		Bool("broker", cfg.NatsURL != "").
		Msg("server started")

	<-ctx.Done()
	log.Info().Msg("SIGTERM or SIGINT received, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown")
	}
	// hijacked websocket connections are not tracked by the http server
	hub.CloseAll(gateway.CloseShutdown)
	closePublisher()
	if err := store.Close(); err != nil {
		log.Warn().Err(err).Msg("closing room store")
	}
	log.Info().Msg("shutdown complete")
}
