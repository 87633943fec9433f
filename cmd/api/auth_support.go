package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gin-contrib/sessions"

	"github.com/yourusername/authgate/internal/auth"
	"github.com/yourusername/authgate/internal/config"
	"github.com/yourusername/authgate/internal/users"
)

type authComponents struct {
	store        *users.MemoryStore
	manager      *auth.Manager
	sessionStore sessions.Store
}

func setupAuth(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*authComponents, error) {
	hasher, err := users.NewBcryptHasher(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	store := users.NewMemoryStore(hasher)

	if err := seedUser(ctx, cfg, store, logger); err != nil {
		return nil, err
	}

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		// debug モードでは一時鍵で起動する（再起動でセッションは失効する）
		secret, err = auth.GenerateSecret()
		if err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		logger.Warn("SESSION_SECRET is empty; using an ephemeral secret")
	}

	sessionStore, err := auth.NewSessionStore(cfg, secret)
	if err != nil {
		return nil, err
	}

	manager, err := auth.NewManager(store, hasher, auth.Options{
		MaxLifetime:   cfg.SessionMaxLifetime,
		IdleTimeout:   cfg.SessionIdleTimeout,
		CookieOptions: auth.CookieOptions(cfg),
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	return &authComponents{
		store:        store,
		manager:      manager,
		sessionStore: sessionStore,
	}, nil
}

// seedUser は APP_USERNAME / APP_PASSWORD_HASH が設定されていれば初期ユーザーを登録します。
func seedUser(ctx context.Context, cfg *config.Config, store *users.MemoryStore, logger *slog.Logger) error {
	if cfg.AppUsername == "" {
		return nil
	}
	user, err := store.Seed(ctx, cfg.AppUsername, cfg.AppPasswordHash, cfg.AppEmail)
	if err != nil {
		if errors.Is(err, users.ErrDuplicateUser) {
			return nil
		}
		return fmt.Errorf("seed user: %w", err)
	}
	logger.Info("seeded user", "user_id", user.ID, "username", user.Username)
	return nil
}
