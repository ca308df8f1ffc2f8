// Package config loads spendwise settings from flags, environment and config.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/spendwise/internal/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. SPENDWISE_DATABASE_PATH.
const EnvPrefix = "SPENDWISE"

// Config is the typed view of the application settings.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	PDF      PDFConfig      `mapstructure:"pdf"`
	Server   ServerConfig   `mapstructure:"server"`
	Import   ImportConfig   `mapstructure:"import"`
	SMS      SMSConfig      `mapstructure:"sms"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// PDFConfig selects the text extraction backend.
type PDFConfig struct {
	Backend string `mapstructure:"backend"`
}

// ImportConfig controls statement imports.
type ImportConfig struct {
	BankName           string `mapstructure:"bank_name"`
	DebitsOnly         bool   `mapstructure:"debits_only"`
	DeselectDuplicates bool   `mapstructure:"deselect_duplicates"`
}

// SMSConfig controls SMS ingestion.
type SMSConfig struct {
	DedupWindow   time.Duration `mapstructure:"dedup_window"`
	DedupCapacity int           `mapstructure:"dedup_capacity"`
	SkipCredits   bool          `mapstructure:"skip_credits"`
}

// ServerConfig controls the HTTP ingestion endpoint.
type ServerConfig struct {
	Listen   string   `mapstructure:"listen"`
	CertDir  string   `mapstructure:"cert_dir"`
	TLSHosts []string `mapstructure:"tls_hosts"`
	TLS      bool     `mapstructure:"tls"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("database.path", filepath.Join(DataDir(), "spendwise.db"))
	v.SetDefault("pdf.backend", "native")
	v.SetDefault("import.bank_name", "HDFC")
	v.SetDefault("import.debits_only", false)
	v.SetDefault("import.deselect_duplicates", true)
	v.SetDefault("sms.skip_credits", true)
	v.SetDefault("sms.dedup_window", 60*time.Second)
	v.SetDefault("sms.dedup_capacity", 1024)
	v.SetDefault("server.listen", "127.0.0.1:8080")
	v.SetDefault("server.tls", false)
	v.SetDefault("server.cert_dir", filepath.Join(ConfigDir(), "certs"))
	v.SetDefault("server.tls_hosts", []string{})
}

// BindEnv makes SPENDWISE_SECTION_KEY variables override section.key.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; existing variables win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.resolvePaths(); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later and less clearly.
func (c Config) Validate() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: invalid log format %q", common.ErrInvalidConfig, c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: invalid log level %q", common.ErrInvalidConfig, c.Logging.Level)
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("%w: database.path is empty", common.ErrInvalidConfig)
	}
	if c.SMS.DedupWindow <= 0 {
		return fmt.Errorf("%w: sms.dedup_window must be positive", common.ErrInvalidConfig)
	}
	if c.SMS.DedupCapacity <= 0 {
		return fmt.Errorf("%w: sms.dedup_capacity must be positive", common.ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Import.BankName) == "" {
		return fmt.Errorf("%w: import.bank_name is empty", common.ErrInvalidConfig)
	}
	return nil
}
