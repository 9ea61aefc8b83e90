package config

import (
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/chupacabra07-bot/night-campus/internal/modules/env"
)

const RootPathEnv = "ROOT_PATH"

// MatchingConfiguration holds the tunables of the matching engine. All of
// these have defaults so a bare DATABASE_URL + PORT is enough to run.
type MatchingConfiguration struct {
	PoolSize      int
	PoolValidity  time.Duration
	RequestQuota  int
	ChatTTL       time.Duration
	SweepInterval time.Duration
	SessionTTL    time.Duration
}

type Config struct {
	Logger *zap.Logger

	Port           int
	DatabaseURL    string
	MigrationsPath string

	Matching MatchingConfiguration
}

func Load() (Config, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return Config{}, fmt.Errorf("failed to create logger: %w", err)
	}

	rootPath := env.MustGetString(RootPathEnv)

	return Config{
		Logger:         logger,
		Port:           env.MustGetInt("PORT"),
		DatabaseURL:    env.MustGetString("DATABASE_URL"),
		MigrationsPath: path.Join(rootPath, "db", "migrations"),
		Matching: MatchingConfiguration{
			PoolSize:      env.GetIntOrDefault("POOL_SIZE", 20),
			PoolValidity:  env.GetDurationOrDefault("POOL_VALIDITY", 24*time.Hour),
			RequestQuota:  env.GetIntOrDefault("REQUEST_QUOTA", 5),
			ChatTTL:       env.GetDurationOrDefault("CHAT_TTL", 24*time.Hour),
			SweepInterval: env.GetDurationOrDefault("SWEEP_INTERVAL", time.Minute),
			SessionTTL:    env.GetDurationOrDefault("SESSION_TTL", 24*time.Hour),
		},
	}, nil
}
