// Package config loads lexiquiz settings from defaults, an optional YAML
// file, LEXIQUIZ_* environment variables and command-line flags, in that
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/lexiquiz/internal/quiz"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "LEXIQUIZ_"

// Config holds the runtime settings.
type Config struct {
	DB           string        `koanf:"db" validate:"required"`
	Addr         string        `koanf:"addr" validate:"required"`
	LogLevel     string        `koanf:"log_level" validate:"oneof=debug info warn error"`
	ReposDir     string        `koanf:"repos_dir" validate:"required"`
	SyncInterval time.Duration `koanf:"sync_interval" validate:"gte=0"`
	Quiz         Quiz          `koanf:"quiz"`
}

// Quiz holds the quiz generator policy.
type Quiz struct {
	PageSize  int    `koanf:"page_size" validate:"gte=1,lte=500"`
	MinItems  int    `koanf:"min_items" validate:"gte=4"`
	Direction string `koanf:"direction" validate:"oneof=forward reverse mixed"`
}

// flagKeys maps flag names to config keys. Flags missing here are not
// configuration and are left to the caller.
var flagKeys = map[string]string{
	"db":             "db",
	"addr":           "addr",
	"log-level":      "log_level",
	"repos-dir":      "repos_dir",
	"sync-interval":  "sync_interval",
	"quiz-page-size": "quiz.page_size",
	"quiz-min-items": "quiz.min_items",
	"quiz-direction": "quiz.direction",
}

// RegisterFlags adds the configuration flags, with their defaults, to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	def := quiz.DefaultConfig()
	flags.String("config", "", "Path to a YAML config file")
	flags.String("db", "lexiquiz.db", "Path to the SQLite database file")
	flags.String("addr", ":8080", "HTTP listen address")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.String("repos-dir", "repos", "Directory for cloned deck repositories")
	flags.Duration("sync-interval", 0, "Interval between deck source syncs, 0 disables")
	flags.Int("quiz-page-size", def.PageSize, "Maximum questions in a standard quiz")
	flags.Int("quiz-min-items", def.MinItems, "Minimum items needed to start a quiz")
	flags.String("quiz-direction", string(def.Direction), "Quiz direction: forward, reverse or mixed")
}

// Load builds the configuration. flags must have been set up with
// RegisterFlags and already parsed. A .env file in the working directory,
// if any, is loaded into the environment first.
func Load(flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	k := koanf.New(".")

	if path, _ := flags.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	fp := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(flags, f)
	})
	if err := k.Load(fp, nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Quiz.Direction = strings.ToLower(cfg.Quiz.Direction)

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// envKey turns LEXIQUIZ_QUIZ_PAGE_SIZE into quiz.page_size.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if rest, ok := strings.CutPrefix(key, "quiz_"); ok {
		return "quiz." + rest
	}
	return key
}

// QuizConfig returns the generator policy.
func (c *Config) QuizConfig() quiz.Config {
	return quiz.Config{
		PageSize:  c.Quiz.PageSize,
		MinItems:  c.Quiz.MinItems,
		Direction: quiz.Direction(c.Quiz.Direction),
	}
}

// Level returns the slog level for LogLevel.
func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
