package msgsubscriber

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrParsingConfig is returned when environment variables cannot be parsed into Config.
var ErrParsingConfig = errors.New("msgsubscriber: failed to parse environment variables into config")

// Config holds the environment driven settings for a Registry and Bus.
type Config struct {
	Collection     string        `env:"MSGSUB_COLLECTION" envDefault:"list"`
	PublishTimeout time.Duration `env:"MSGSUB_PUBLISH_TIMEOUT" envDefault:"500ms"`
	Sequential     bool          `env:"MSGSUB_SEQUENTIAL" envDefault:"false"`
	LogLevel       string        `env:"MSGSUB_LOG_LEVEL" envDefault:"info"`
	LogFormat      string        `env:"MSGSUB_LOG_FORMAT" envDefault:"json"`
}

// LoadConfig loads the given .env files (".env" when none are given) and
// parses Config from the environment. Missing files are skipped; a file that
// exists but cannot be parsed fails with ErrParsingConfig.
func LoadConfig(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, errors.Join(ErrParsingConfig, fmt.Errorf("%s: %w", f, err))
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the enumerated fields and the timeout.
func (c Config) Validate() error {
	if _, err := CollectionByName(c.Collection, nil); err != nil {
		return err
	}
	if c.PublishTimeout < 0 {
		return ArgumentError{Param: "PublishTimeout", Reason: "must not be negative"}
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return ArgumentError{Param: "LogLevel", Reason: err.Error()}
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return ArgumentError{Param: "LogFormat", Reason: fmt.Sprintf("must be %q or %q", "json", "console")}
	}
	return nil
}

// NewLogger builds a zap logger from the log settings in c: production JSON
// output or a development console encoder.
func NewLogger(c Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, ArgumentError{Param: "LogLevel", Reason: err.Error()}
	}

	var zc zap.Config
	if c.LogFormat == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// NewRegistryFromConfig creates a Registry using the collection strategy from c.
// Priority collections built this way rank every descriptor equally.
func NewRegistryFromConfig(c Config, logger *zap.Logger) (*Registry, error) {
	proto, err := CollectionByName(c.Collection, nil)
	if err != nil {
		return nil, err
	}
	return New(WithCollection(proto), WithLogger(logger)), nil
}

// NewBusFromConfig creates a Bus whose registry and delivery follow c.
func NewBusFromConfig(c Config, logger *zap.Logger) (*Bus, error) {
	reg, err := NewRegistryFromConfig(c, logger)
	if err != nil {
		return nil, err
	}
	return NewBus(
		WithRegistry(reg),
		WithBusLogger(logger),
		WithPublishTimeout(c.PublishTimeout),
		WithSequentialDelivery(c.Sequential),
	), nil
}
