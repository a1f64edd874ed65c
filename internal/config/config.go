// Package config loads vocadeck settings from defaults, an optional YAML
// file, VOCADECK_* environment variables and command-line flags, in that
// order of precedence (flags win).
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable. A double underscore
// separates nesting levels: VOCADECK_DECKS__SESSION_HISTORY sets
// decks.session_history.
const EnvPrefix = "VOCADECK_"

type Config struct {
	DB       DBConfig   `koanf:"db"`
	HTTP     HTTPConfig `koanf:"http"`
	ReposDir string     `koanf:"repos_dir" validate:"required"`
	Log      LogConfig  `koanf:"log"`
	Decks    DeckConfig `koanf:"decks"`
	Watch    bool       `koanf:"watch"`
}

type DBConfig struct {
	Path string `koanf:"path" validate:"required"`
}

type HTTPConfig struct {
	Addr string `koanf:"addr" validate:"required,hostname_port"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

type DeckConfig struct {
	DefaultName         string `koanf:"default_name" validate:"required"`
	SessionHistory      int    `koanf:"session_history" validate:"gte=1"`
	MasteredRepetitions int    `koanf:"mastered_repetitions" validate:"gte=1"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DB:       DBConfig{Path: "vocadeck.db"},
		HTTP:     HTTPConfig{Addr: "localhost:8080"},
		ReposDir: "repos",
		Log:      LogConfig{Level: "info", Format: "text"},
		Decks: DeckConfig{
			DefaultName:         "My Vocabulary",
			SessionHistory:      100,
			MasteredRepetitions: 5,
		},
	}
}

// RegisterFlags adds the flags that override config keys to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "Path to a YAML config file")
	fs.String("db.path", d.DB.Path, "Path to the SQLite database file")
	fs.String("http.addr", d.HTTP.Addr, "Address the API listens on")
	fs.String("repos_dir", d.ReposDir, "Directory git sources are checked out into")
	fs.String("log.level", d.Log.Level, "Log level: debug, info, warn, error")
	fs.String("log.format", d.Log.Format, "Log format: text or json")
	fs.Bool("watch", d.Watch, "Re-import local sources when their files change (serve only)")
}

// Load builds the configuration. fs must have been set up with
// RegisterFlags and parsed.
func Load(fs *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	// Seed every key so posflag only overrides defaults with flags the
	// user actually set.
	if err := k.Load(defaultsProvider(Default()), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path, _ := fs.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// defaults feeds a Config to koanf as a nested map.
type defaults struct {
	cfg Config
}

func defaultsProvider(cfg Config) defaults {
	return defaults{cfg: cfg}
}

func (d defaults) ReadBytes() ([]byte, error) {
	return nil, errors.New("defaults provider does not support ReadBytes")
}

func (d defaults) Read() (map[string]interface{}, error) {
	c := d.cfg
	return map[string]interface{}{
		"db":        map[string]interface{}{"path": c.DB.Path},
		"http":      map[string]interface{}{"addr": c.HTTP.Addr},
		"repos_dir": c.ReposDir,
		"log": map[string]interface{}{
			"level":  c.Log.Level,
			"format": c.Log.Format,
		},
		"decks": map[string]interface{}{
			"default_name":         c.Decks.DefaultName,
			"session_history":      c.Decks.SessionHistory,
			"mastered_repetitions": c.Decks.MasteredRepetitions,
		},
		"watch": c.Watch,
	}, nil
}
