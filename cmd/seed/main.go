package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"fieldDispatch/internal/auth"
	"fieldDispatch/internal/config"
	"fieldDispatch/internal/db"
	"fieldDispatch/internal/dispatch"
	"fieldDispatch/internal/seed"
	"fieldDispatch/models"
	"fieldDispatch/repository"
)

func main() {
	file := flag.String("file", "fixtures.yaml", "YAML fixture with users and jobs")
	tokens := flag.Bool("tokens", false, "print a signed token for every seeded ADMIN or DISPATCHER user")
	rollback := flag.Bool("rollback", false, "roll back the most recent schema migration and exit")
	flag.Parse()

	cfg, err := config.LoadWithDefaults()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stderr)

	if *rollback {
		if err := rollbackLast(cfg, logger); err != nil {
			logger.Error("rollback failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}
	if err := run(context.Background(), cfg, *file, *tokens, logger); err != nil {
		logger.Error("seed failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func rollbackLast(cfg *config.Config, logger *slog.Logger) error {
	d, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer d.Close()
	if err := db.RollbackLast(d); err != nil {
		return err
	}
	logger.Info("rolled back last migration", slog.String("driver", cfg.Database.Driver))
	return nil
}

func run(ctx context.Context, cfg *config.Config, file string, printTokens bool, logger *slog.Logger) error {
	f, err := seed.LoadFile(file)
	if err != nil {
		return err
	}
	d, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer d.Close()

	store := repository.NewStore(d)
	res, err := seed.Apply(ctx, store.Users, dispatch.New(store, dispatch.WithLogger(logger)), f, logger)
	if err != nil {
		return err
	}
	if !printTokens {
		return nil
	}
	for _, u := range res.Users {
		if u.Role != models.RoleAdmin && u.Role != models.RoleDispatcher {
			continue
		}
		tok, err := auth.IssueToken(cfg.Auth.JWTSecret, auth.Principal{ID: u.ID, Name: u.Name, Role: u.Role}, cfg.TokenTTL())
		if err != nil {
			return fmt.Errorf("issue token for %s: %w", u.Email, err)
		}
		fmt.Printf("%s\t%s\t%s\n", u.Email, u.Role, tok)
	}
	return nil
}
