package cli

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trivia-session-service/internal/app"
	"trivia-session-service/internal/config"
	"trivia-session-service/internal/infra/memory"
	"trivia-session-service/internal/infra/opentdb"
	pgbank "trivia-session-service/internal/infra/postgres"
	infraredis "trivia-session-service/internal/infra/redis"
	transport "trivia-session-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const defaultSecondsPerQuestion = 30

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	tokenTTL := config.TTLDuration(cfg.Redis.TokenTTL, 6*time.Hour)

	var rankingKV app.KeyValue = memory.NewKV()
	var tokenStore app.TokenStore = memory.NewTokenStore()
	if redisClient != nil {
		rankingKV = infraredis.NewKV(redisClient)
		tokenStore = infraredis.NewTokenStore(redisClient, tokenTTL)
	}
	ranking := app.NewRankingLog(rankingKV)

	// The remote provider is the default question source; a configured
	// Postgres URL with no provider base URL selects the offline bank.
	var source app.QuestionSource
	var tokens *app.TokenProvider
	if cfg.Postgres.URL != "" && cfg.Trivia.APIBaseURL == "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		source = pgbank.NewQuestionBank(pool)
	} else {
		client := opentdb.NewClient(cfg.Trivia.APIBaseURL)
		source = client
		tokens = app.NewTokenProvider(tokenStore, client)
	}

	shuffler := app.NewShuffler()
	seconds := cfg.Trivia.SecondsPerQuestion
	if seconds <= 0 {
		seconds = defaultSecondsPerQuestion
	}

	newSession := func(player app.Identity) *app.Session {
		return app.NewSession(app.SessionDeps{
			Source:   source,
			Shuffler: shuffler,
			Ranking:  ranking,
			Tokens:   tokens,
		}, player, seconds)
	}
	wsHandler := transport.NewWSHandler(newSession, seconds)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/ranking", func(w http.ResponseWriter, r *http.Request) {
		entries, err := ranking.ReadAll(r.Context())
		if err != nil {
			http.Error(w, "ranking unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(entries)
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trivia service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
