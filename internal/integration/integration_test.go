package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"trivia-live-service/internal/app"
	"trivia-live-service/internal/domain"
	pgloader "trivia-live-service/internal/infra/postgres"
	pgmigrations "trivia-live-service/internal/infra/postgres/migrations"
	infraredis "trivia-live-service/internal/infra/redis"
	"trivia-live-service/internal/scoring"
)

func TestLiveMatchEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedPack(t, ctx, pgURL, samplePack())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	packs := infraredis.NewPackRepository(redisClient, pgloader.NewPackLoader(pool), 5*time.Minute)
	store := infraredis.NewMatchStore(redisClient)
	service := app.NewMatchService(store, packs, scoring.DefaultConfig())

	matchID, err := service.CreateMatch(ctx, app.CreateMatchInput{
		Code:    "ZX42",
		HostPin: "7777",
		PackID:  "pack-1",
	})
	if err != nil {
		t.Fatalf("create match: %v", err)
	}

	if err := service.JoinMatch(ctx, matchID, "u1", "Alice"); err != nil {
		t.Fatalf("join u1: %v", err)
	}
	if err := service.JoinMatch(ctx, matchID, "u2", "Bob"); err != nil {
		t.Fatalf("join u2: %v", err)
	}

	updates, cancel, err := service.Subscribe(ctx, matchID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if _, err := service.HostAction(ctx, matchID, "7777", domain.ActionOpen); err != nil {
		t.Fatalf("open question: %v", err)
	}

	first, err := service.SubmitAnswer(ctx, app.SubmitAnswerInput{
		MatchID: matchID, PlayerID: "u2", QIndex: 0, AnswerIndex: 1,
	})
	if err != nil {
		t.Fatalf("submit u2: %v", err)
	}
	if !first.Correct || !first.First {
		t.Fatalf("expected first correct answer, got %+v", first)
	}

	second, err := service.SubmitAnswer(ctx, app.SubmitAnswerInput{
		MatchID: matchID, PlayerID: "u1", QIndex: 0, AnswerIndex: 1,
	})
	if err != nil {
		t.Fatalf("submit u1: %v", err)
	}
	if !second.Correct || second.First {
		t.Fatalf("expected a correct non-first answer, got %+v", second)
	}
	if second.Awarded >= first.Awarded {
		t.Fatalf("later answer must not out-award the first: %d vs %d", second.Awarded, first.Awarded)
	}

	if _, err := service.SubmitAnswer(ctx, app.SubmitAnswerInput{
		MatchID: matchID, PlayerID: "u2", QIndex: 0, AnswerIndex: 0,
	}); err == nil {
		t.Fatalf("duplicate submission must be rejected")
	}

	snap := waitForLeader(t, updates, "u2")
	if len(snap.Leaderboard.Entries) != 2 {
		t.Fatalf("expected two leaderboard entries, got %+v", snap.Leaderboard.Entries)
	}

	if err := service.EndMatch(ctx, matchID, "7777"); err != nil {
		t.Fatalf("end match: %v", err)
	}
	if _, err := service.HostAction(ctx, matchID, "7777", domain.ActionOpen); err == nil {
		t.Fatalf("ended match must reject host actions")
	}
}

func waitForLeader(t *testing.T, updates <-chan app.MatchSnapshot, playerID string) app.MatchSnapshot {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				t.Fatalf("snapshot feed closed")
			}
			if len(snap.Leaderboard.Entries) > 0 && snap.Leaderboard.Entries[0].PlayerID == playerID {
				return snap
			}
		case <-timeout:
			t.Fatalf("never saw %s leading", playerID)
		}
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "trivia", "POSTGRES_PASSWORD": "triviapass", "POSTGRES_DB": "triviadb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://trivia:triviapass@%s:%s/triviadb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedPack(t *testing.T, ctx context.Context, dsn string, pack domain.Pack) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(pack)
	if err != nil {
		t.Fatalf("marshal pack: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO packs (id, data) VALUES (? , ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, pack.ID, string(data)); err != nil {
		t.Fatalf("insert pack: %v", err)
	}
}

func samplePack() domain.Pack {
	return domain.Pack{
		ID:      "pack-1",
		Title:   "Warmup",
		Enabled: true,
		Questions: []domain.Question{
			{Prompt: "What is 2 + 2?", Answers: []string{"3", "4", "5"}, CorrectIndex: 1, TimeLimitSec: 25},
			{Prompt: "What is 3 + 3?", Answers: []string{"6", "7", "8"}, CorrectIndex: 0, TimeLimitSec: 25},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
