package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything read from the environment at startup.
type Config struct {
	// BaseURL points at the guild's DKP backend.
	BaseURL string
	// LogDir is the EverQuest Logs directory to list log files from.
	LogDir string
	// OverlayAddr is the listen address for external overlay subscribers.
	// Empty disables the overlay server.
	OverlayAddr string

	AttendanceCooldown time.Duration
	LootCooldown       time.Duration
}

// LoadConfig reads .env (when present) and the environment.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[Config] no .env file found, using environment variables")
	}

	cfg := Config{
		BaseURL:     os.Getenv("RAIDTICK_BASE_URL"),
		LogDir:      os.Getenv("RAIDTICK_LOG_DIR"),
		OverlayAddr: os.Getenv("RAIDTICK_OVERLAY_ADDR"),
	}

	if cfg.BaseURL == "" {
		return Config{}, fmt.Errorf("RAIDTICK_BASE_URL is not set")
	}
	if cfg.LogDir == "" {
		cfg.LogDir = defaultLogDir()
	}

	var err error
	if cfg.AttendanceCooldown, err = durationEnv("RAIDTICK_ATTENDANCE_COOLDOWN_SECONDS"); err != nil {
		return Config{}, err
	}
	if cfg.LootCooldown, err = durationEnv("RAIDTICK_LOOT_COOLDOWN_SECONDS"); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// durationEnv reads a seconds count from the environment. Unset means zero,
// which downstream code replaces with its default.
func durationEnv(key string) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, nil
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		return 0, fmt.Errorf("%s: invalid seconds value %q", key, raw)
	}
	return time.Duration(secs) * time.Second, nil
}

func defaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "EverQuest", "Logs")
}
