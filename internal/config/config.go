// internal/config/config.go
//
// Process configuration, read from the environment (after .env is loaded in main).
// Defaults reproduce the classic board: 4x4 cards of 100px, 60 seconds.

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/robalobadob/memory/internal/game"
)

// Config holds every tunable of the server.
type Config struct {
	Port     string `env:"PORT" envDefault:"5175"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	DBPath   string `env:"DB_PATH" envDefault:"./data/memory.db"`

	JWTSecret      string `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`
	JWTExpiresDays int    `env:"JWT_EXPIRES_DAYS" envDefault:"14"`
	CookieName     string `env:"COOKIE_NAME" envDefault:"memory_token"`
	ClientOrigin   string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`

	ThemesFile string `env:"THEMES_FILE"`

	DefaultColumns    int    `env:"DEFAULT_COLUMNS" envDefault:"4"`
	DefaultRows       int    `env:"DEFAULT_ROWS" envDefault:"4"`
	DefaultTimeLimit  int    `env:"DEFAULT_TIME_LIMIT" envDefault:"60"`
	DefaultCardWidth  string `env:"DEFAULT_CARD_WIDTH" envDefault:"100px"`
	DefaultCardHeight string `env:"DEFAULT_CARD_HEIGHT" envDefault:"100px"`
	DefaultTheme      string `env:"DEFAULT_THEME" envDefault:"numbers"`

	MaxCards     int `env:"MAX_CARDS" envDefault:"144"`
	MaxTimeLimit int `env:"MAX_TIME_LIMIT" envDefault:"3600"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses Config and checks the game defaults.
func Load() (Config, error) {
	var c Config
	if err := ParseEnv(&c); err != nil {
		return c, err
	}
	d := c.GameDefaults()
	if err := d.Validate(); err != nil {
		return c, fmt.Errorf("default game: %w", err)
	}
	if (c.MaxCards > 0 && d.Total() > c.MaxCards) || (c.MaxTimeLimit > 0 && d.TimeLimitSeconds > c.MaxTimeLimit) {
		return c, fmt.Errorf("default game: %w: exceeds MAX_CARDS or MAX_TIME_LIMIT", game.ErrInvalidConfig)
	}
	return c, nil
}

// Production reports whether cookies must be Secure/SameSite=None.
func (c Config) Production() bool { return c.AppEnv == "production" }

// GameDefaults is the board used when a request leaves fields out.
func (c Config) GameDefaults() game.Config {
	return game.Config{
		Columns:          c.DefaultColumns,
		Rows:             c.DefaultRows,
		TimeLimitSeconds: c.DefaultTimeLimit,
		CardWidth:        c.DefaultCardWidth,
		CardHeight:       c.DefaultCardHeight,
		Theme:            c.DefaultTheme,
	}
}
