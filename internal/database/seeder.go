package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"field-attendance-api-server/config"
	"field-attendance-api-server/internal/auth"
	"field-attendance-api-server/internal/models"
	"field-attendance-api-server/internal/store"
)

// SeedAdmin creates the configured admin account unless it already exists.
func SeedAdmin(ctx context.Context, users store.UserStore, cfg config.AdminConfig, log *slog.Logger) error {
	if cfg.Email == "" || cfg.Password == "" {
		log.Warn("admin seed account not configured, seeding skipped")
		return nil
	}

	_, err := users.FindUserByEmail(ctx, cfg.Email)
	if err == nil {
		log.Info("admin already exists, seeding skipped", "email", cfg.Email)
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("looking up admin: %w", err)
	}

	hashedPassword, err := auth.HashPassword(cfg.Password)
	if err != nil {
		return err
	}
	admin := models.User{
		Email:        cfg.Email,
		Name:         cfg.Name,
		PasswordHash: hashedPassword,
		Role:         auth.RoleAdmin,
		EmployeeRef:  "ADMIN",
		Status:       "active",
	}
	if err := users.CreateUser(ctx, admin); err != nil {
		// Another replica seeded it first.
		if errors.Is(err, store.ErrConflict) {
			return nil
		}
		return fmt.Errorf("creating admin: %w", err)
	}

	log.Info("admin seeded", "email", cfg.Email)
	return nil
}
