package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"trivia-live-service/internal/app"
	"trivia-live-service/internal/config"
	"trivia-live-service/internal/domain"
	"trivia-live-service/internal/infra/memory"
	pgloader "trivia-live-service/internal/infra/postgres"
	infraredis "trivia-live-service/internal/infra/redis"
	"trivia-live-service/internal/scoring"
	transport "trivia-live-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
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

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	packTTL := config.TTLDuration(cfg.Packs.TTL, 10*time.Minute)
	var loader memory.PackLoader = memory.NewStaticPackLoader(samplePacks())
	if pool != nil {
		loader = pgloader.NewPackLoader(pool)
	}
	var packRepo app.PackRepository
	if redisClient != nil {
		packRepo = infraredis.NewPackRepository(redisClient, loader, packTTL)
	} else {
		packRepo = memory.NewPackRepository(loader, packTTL)
	}

	var matchStore app.MatchStore
	if redisClient != nil {
		matchStore = infraredis.NewMatchStore(redisClient)
	} else {
		matchStore = memory.NewMatchStore()
	}

	soloRetention := config.TTLDuration(cfg.Solo.Retention, 7*24*time.Hour)
	var soloStore app.SoloScoreStore
	if redisClient != nil {
		soloStore = infraredis.NewSoloScoreStore(redisClient, soloRetention, cfg.Solo.MaxEntries)
	} else {
		soloStore = memory.NewSoloScoreStore(soloRetention, cfg.Solo.MaxEntries)
	}

	matchService := app.NewMatchService(matchStore, packRepo, matchDefaults(cfg))
	soloService := app.NewSoloService(soloStore, cfg.Solo.TopN, cfg.Solo.AdminPasscode)

	wsHandler := transport.NewWSHandler(matchService)
	apiHandler := transport.NewAPIHandler(matchService, soloService)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	apiHandler.Register(mux)

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

func matchDefaults(cfg config.Config) domain.MatchConfig {
	defaults := scoring.DefaultConfig()
	if cfg.Game.BasePoints > 0 {
		defaults.BasePoints = cfg.Game.BasePoints
	}
	if cfg.Game.SpeedMax > 0 {
		defaults.SpeedMax = cfg.Game.SpeedMax
	}
	if cfg.Game.FirstBonus > 0 {
		defaults.FirstBonus = cfg.Game.FirstBonus
	}
	if cfg.Game.SpeedCapMs > 0 {
		defaults.SpeedCapMs = cfg.Game.SpeedCapMs
	}
	if cfg.Game.TimePerQSec > 0 {
		defaults.TimePerQSec = cfg.Game.TimePerQSec
	}
	return defaults
}

// samplePacks provides a minimal question set; swap the loader for the
// Postgres-backed one by configuring postgres.url.
func samplePacks() map[string]domain.Pack {
	return map[string]domain.Pack{
		"pack-core-01": {
			ID:      "pack-core-01",
			Title:   "Core Pack 01",
			Enabled: true,
			Questions: []domain.Question{
				{
					Prompt:       "What is 2 + 2?",
					Answers:      []string{"3", "4", "5"},
					CorrectIndex: 1,
					TimeLimitSec: 25,
				},
				{
					Prompt:       "Which planet is known as the Red Planet?",
					Answers:      []string{"Venus", "Jupiter", "Mars"},
					CorrectIndex: 2,
					TimeLimitSec: 25,
				},
			},
		},
	}
}
