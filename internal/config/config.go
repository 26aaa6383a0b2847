package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"
	_ "time/tzdata" // zone database for hosts without one

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken     string  `envconfig:"BOT_TOKEN" required:"true"`
	DataDir      string  `envconfig:"DATA_DIR" default:"./data"`         // schedules/ and stats/ JSON documents
	DBPath       string  `envconfig:"DB_PATH" default:"./data/duty.db"`  // message bindings and daily history
	Timezone     string  `envconfig:"TIMEZONE" default:"Europe/Kyiv"`
	AdminIDs     []int64 `envconfig:"ADMIN_IDS"`                         // comma separated Telegram user ids
	RolloverCron string  `envconfig:"ROLLOVER_CRON" default:"0 0 * * *"` // evaluated in Timezone
	Economy      bool    `envconfig:"ECONOMY_ENABLED" default:"true"`
	SkinsDir     string  `envconfig:"SKINS_DIR" default:"./skins"`
	LogLevel     string  `envconfig:"LOG_LEVEL" default:"info"`          // debug|info|warn|error
	LogFormat    string  `envconfig:"LOG_FORMAT" default:"json"`         // json|console
	HTTPAddr     string  `envconfig:"HTTP_ADDR" default:":8080"`         // healthz
}

// Load reads an optional .env file, then environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("read .env: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if _, err := cfg.Location(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
