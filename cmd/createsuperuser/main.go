// Command createsuperuser creates a privileged account, or promotes an
// existing one. It is the only way to obtain is_superuser=true.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"ragchat-api/internal/app"
	"ragchat-api/internal/config"
	"ragchat-api/internal/logging"
	"ragchat-api/internal/pkg/password"
	mysqlClient "ragchat-api/internal/platform/mysql"
	"ragchat-api/internal/repository"
)

func main() {
	email := flag.String("email", "", "superuser email")
	fullName := flag.String("full-name", "", "optional display name")
	flag.Parse()

	if err := run(*email, *fullName, os.Getenv("SUPERUSER_PASSWORD")); err != nil {
		fmt.Fprintln(os.Stderr, "createsuperuser:", err)
		os.Exit(1)
	}
}

func run(email, fullName, plain string) error {
	if email == "" {
		return errors.New("-email is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}
	logger := logging.New(cfg.App.Env, cfg.App.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := mysqlClient.New(ctx, mysqlClient.Options{DSN: cfg.MySQLDSN()})
	if err != nil {
		return err
	}
	defer func() {
		_ = mysqlClient.Close(db)
	}()
	if err := mysqlClient.Migrate(ctx, db); err != nil {
		return err
	}

	admin := app.NewAdminService(repository.NewUserRepository(db), password.NewBcryptHasher(cfg.Auth.BcryptCost), logger)
	user, created, err := admin.EnsureSuperuser(ctx, app.SuperuserInput{
		Email:    email,
		Password: plain,
		FullName: fullName,
	})
	if errors.Is(err, app.ErrInvalidInput) {
		return fmt.Errorf("%w: need a valid -email and, for a new account, SUPERUSER_PASSWORD of 8 to 72 bytes", err)
	}
	if err != nil {
		return err
	}

	action := "promoted"
	if created {
		action = "created"
	}
	logger.Info("superuser ready", slog.String("action", action), slog.Uint64("user_id", uint64(user.ID)), slog.String("email", user.Email))
	return nil
}
