package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// BootstrapAccount creates the configured initial account when its email is
// not registered yet. It is idempotent: if the email exists, it does nothing.
func BootstrapAccount(ctx context.Context, users UserRepository, accounts *AccountService, cfg Config, logger *slog.Logger) error {
	if cfg.BootstrapEmail == "" {
		return nil
	}
	if logger == nil {
		logger = discardLogger()
	}

	has, err := users.EmailExists(ctx, cfg.BootstrapEmail)
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	password, err := generatePassword(32)
	if err != nil {
		return err
	}

	if _, err := accounts.Register(ctx, RegisterUser{
		Username: cfg.BootstrapUsername,
		Email:    cfg.BootstrapEmail,
		Password: password,
	}); err != nil {
		return fmt.Errorf("register bootstrap account: %w", err)
	}

	if cfg.BootstrapPasswordPath != "" {
		if err := os.WriteFile(cfg.BootstrapPasswordPath, []byte(password+"\n"), 0o600); err != nil {
			return err
		}
		logger.Info("bootstrap account created", "email", cfg.BootstrapEmail, "password_file", cfg.BootstrapPasswordPath)
	} else {
		logger.Warn("bootstrap account created", "email", cfg.BootstrapEmail, "username", cfg.BootstrapUsername, "password", password)
	}

	return nil
}

func generatePassword(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("password length must be positive")
	}
	// base64 encoding: need 3/4 overhead; ensure enough bytes
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw)[:length], nil
}
