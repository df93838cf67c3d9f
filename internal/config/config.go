// Package config loads the service configuration. Values are layered:
// built-in defaults, an optional TOML file, a .env file, then SLD_*
// environment variables. Command-line flags are applied by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/abhisek/sldscreen/internal/assessment"
	"github.com/abhisek/sldscreen/internal/identity"
	"github.com/abhisek/sldscreen/internal/llm"
	"github.com/abhisek/sldscreen/internal/logging"
	"github.com/abhisek/sldscreen/internal/recommend"
	"github.com/abhisek/sldscreen/internal/server"
)

// Config is the full service configuration.
type Config struct {
	Server    server.Config    `toml:"server"`
	Store     StoreConfig      `toml:"store"`
	Identity  identity.Config  `toml:"identity"`
	LLM       llm.Config       `toml:"llm"`
	Recommend recommend.Config `toml:"recommend"`
	Screening ScreeningConfig  `toml:"screening"`
	Log       logging.Config   `toml:"log"`
}

// StoreConfig locates the database.
type StoreConfig struct {
	// Path is the SQLite file. Empty resolves SLD_DB or the XDG data dir.
	Path string `toml:"path"`
}

// ScreeningConfig configures scoring and background analysis.
type ScreeningConfig struct {
	// RubricFile replaces the embedded rubric when set.
	RubricFile string `toml:"rubric_file"`

	// AutoAnalyze analyses assessments as soon as both response sets are in.
	AutoAnalyze    bool          `toml:"auto_analyze"`
	QueueSize      int           `toml:"queue_size"`
	AnalyzeTimeout time.Duration `toml:"analyze_timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server:    server.DefaultConfig(),
		Identity:  identity.DefaultConfig(),
		LLM:       llm.DefaultConfig(),
		Recommend: recommend.DefaultConfig(),
		Screening: ScreeningConfig{
			QueueSize:      assessment.DefaultQueueSize,
			AnalyzeTimeout: 2 * time.Minute,
		},
	}
}

// dotenvFiles are loaded, when present, before the environment is read.
// Variables already set in the environment win.
var dotenvFiles = []string{".env"}

// Load builds the configuration. path names a TOML file; when empty,
// sldscreen.toml in the working directory is used if it exists.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = "sldscreen.toml"
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if explicit {
		return Config{}, fmt.Errorf("config file not found: %s", path)
	}

	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("SLD_ADDR"); v != "" {
		cfg.Server.Addr = v
	} else if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Addr = ":" + v
	}
	if v := os.Getenv("SLD_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}

	if v := os.Getenv("SLD_DB"); v != "" {
		cfg.Store.Path = v
	}

	if v := os.Getenv("SLD_IDENTITY_PROVIDER"); v != "" {
		cfg.Identity.Provider = v
	}
	if v := os.Getenv("SLD_FIREBASE_CREDENTIALS"); v != "" {
		cfg.Identity.CredentialsFile = v
	}
	if v := os.Getenv("SLD_FIREBASE_PROJECT_ID"); v != "" {
		cfg.Identity.ProjectID = v
	}

	cfg.LLM = llm.ApplyEnv(cfg.LLM)

	if v := os.Getenv("SLD_RUBRIC_FILE"); v != "" {
		cfg.Screening.RubricFile = v
	}
	if v := os.Getenv("SLD_AUTO_ANALYZE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SLD_AUTO_ANALYZE: %w", err)
		}
		cfg.Screening.AutoAnalyze = b
	}

	if v := os.Getenv("SLD_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SLD_LOG_DEVELOPMENT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SLD_LOG_DEVELOPMENT: %w", err)
		}
		cfg.Log.Development = b
	}
	return nil
}

// Validate checks values that would otherwise fail late at startup.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Screening.QueueSize < 0 {
		return fmt.Errorf("screening.queue_size must not be negative, got %d", c.Screening.QueueSize)
	}
	if c.Recommend.MaxTokens <= 0 {
		return fmt.Errorf("recommend.max_tokens must be positive, got %d", c.Recommend.MaxTokens)
	}
	switch c.Identity.Provider {
	case "firebase", "mock":
	default:
		return fmt.Errorf("unknown identity provider: %q", c.Identity.Provider)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
