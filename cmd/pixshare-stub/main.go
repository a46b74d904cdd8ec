// Command pixshare-stub serves the PixShare REST API for local development
// and tests.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"pixshare/internal/config"
	"pixshare/internal/logger"
	"pixshare/internal/mongodb"
	"pixshare/internal/routing"
	"pixshare/internal/seed"
	"pixshare/internal/sqldb"
	"pixshare/internal/tracing"
	"pixshare/pkg/claims"
	"pixshare/pkg/comment"
	"pixshare/pkg/library"
	"pixshare/pkg/user"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "pixshare-stub:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadStub()
	if err != nil {
		return err
	}
	log := logger.Load(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, "pixshare-stub", cfg.Trace, os.Stderr)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	db, err := sqldb.Open(cfg.DBDriver, cfg.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	comments, closeComments, err := commentRepo(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeComments()

	sessions, err := sessionStore(cfg, db, log)
	if err != nil {
		return err
	}
	if rs, ok := sessions.(*user.RedisSessions); ok {
		defer rs.Client.Close()
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}

	deps := routing.Deps{
		Users:          user.NewSQLRepo(db),
		Sessions:       sessions,
		Library:        library.NewSQLRepo(db),
		Comments:       comments,
		Issuer:         &claims.Issuer{Secret: []byte(cfg.JWTSecret), TTL: cfg.TokenTTL},
		UploadDir:      cfg.UploadDir,
		StorageLimitGB: cfg.StorageLimitGB,
		Logger:         log,
	}

	if cfg.SeedFile != "" {
		f, err := seed.Load(cfg.SeedFile)
		if err != nil {
			return err
		}
		svc := user.NewService(deps.Users, deps.Sessions, cfg.TokenTTL)
		issued, err := seed.Apply(ctx, f, svc, deps.Library, log)
		if err != nil {
			return err
		}
		for _, s := range issued {
			log.Info("seeded share link", "owner", s.Email, "kind", s.Kind, "name", s.Name, "path", "/shared/"+string(s.Kind)+"/"+s.Token)
		}
	}

	return routing.StartServer(ctx, cfg.Addr, routing.NewRouter(deps), log)
}

func commentRepo(ctx context.Context, cfg *config.Stub, log *slog.Logger) (comment.Repository, func(), error) {
	if cfg.MongoURI == "" {
		log.Info("comments kept in memory")
		return comment.NewMemoryRepo(), func() {}, nil
	}
	client, mdb, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, nil, err
	}
	log.Info("comments stored in mongodb", "db", cfg.MongoDB)
	return comment.NewMongoRepo(mdb), func() { client.Disconnect(context.Background()) }, nil
}

func sessionStore(cfg *config.Stub, db *sql.DB, log *slog.Logger) (user.Sessions, error) {
	if cfg.RedisURL == "" {
		return user.NewSQLSessions(db), nil
	}
	sessions, err := user.NewRedisSessions(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	log.Info("sessions stored in redis")
	return sessions, nil
}
