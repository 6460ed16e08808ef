// Package config loads clinic settings from clinic.toml, CLINIC_* environment
// variables, an optional .env file and command-line flags, in increasing
// order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// FileName is the config file looked up in the search path.
	FileName = "clinic.toml"
	// EnvPrefix prefixes every environment override, e.g. CLINIC_DATABASE_PATH.
	EnvPrefix = "CLINIC"
	// HomeEnv names a directory searched first for FileName.
	HomeEnv = "CLINIC_HOME"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the merged application configuration.
type Config struct {
	Database DatabaseConfig `toml:"database" mapstructure:"database" json:"database" yaml:"database"`
	Logging  LoggingConfig  `toml:"logging" mapstructure:"logging" json:"logging" yaml:"logging"`
	Auth     AuthConfig     `toml:"auth" mapstructure:"auth" json:"auth" yaml:"auth"`
	Backup   BackupConfig   `toml:"backup" mapstructure:"backup" json:"backup" yaml:"backup"`
}

// DatabaseConfig selects the database file and driver.
type DatabaseConfig struct {
	Path   string `toml:"path" mapstructure:"path" json:"path" yaml:"path"`
	Driver string `toml:"driver" mapstructure:"driver" json:"driver" yaml:"driver"`
}

// LoggingConfig controls log level, format and file rotation.
type LoggingConfig struct {
	Level     string `toml:"level" mapstructure:"level" json:"level" yaml:"level"`
	Format    string `toml:"format" mapstructure:"format" json:"format" yaml:"format"`
	File      string `toml:"file" mapstructure:"file" json:"file" yaml:"file"`
	MaxSizeMB int    `toml:"max_size_mb" mapstructure:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`
	MaxFiles  int    `toml:"max_files" mapstructure:"max_files" json:"max_files" yaml:"max_files"`
}

// AuthConfig holds login defaults and the password hash scheme.
type AuthConfig struct {
	// Username is used by commands that authenticate without --user.
	Username string `toml:"username" mapstructure:"username" json:"username" yaml:"username"`
	// LegacyHash keeps writing unsalted SHA-256 password hashes.
	LegacyHash bool `toml:"legacy_hash" mapstructure:"legacy_hash" json:"legacy_hash" yaml:"legacy_hash"`
}

// BackupConfig controls where snapshots go and how many are kept.
type BackupConfig struct {
	Dir      string        `toml:"dir" mapstructure:"dir" json:"dir" yaml:"dir"`
	Keep     int           `toml:"keep" mapstructure:"keep" json:"keep" yaml:"keep"`
	Debounce time.Duration `toml:"debounce" mapstructure:"debounce" json:"debounce" yaml:"debounce"`
}

// DefaultConfig returns the values used when no file or env overrides them.
func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{
			Path:   "clinica.db",
			Driver: "sqlite3",
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
		Backup: BackupConfig{
			Dir:      "backups",
			Keep:     10,
			Debounce: 30 * time.Second,
		},
	}
}

// LoadOptions controls where Load looks.
type LoadOptions struct {
	// ConfigPath is an explicit config file; it must exist when set.
	ConfigPath string
	// EnvFile is loaded into the environment when present. Defaults to ".env".
	EnvFile string
	// SearchPaths replaces the default search path when non-nil.
	SearchPaths []string
}

// Loader owns the viper instance behind a loaded Config.
type Loader struct {
	v *viper.Viper
}

// NewLoader returns a Loader with defaults and CLINIC_* env binding in place.
func NewLoader() *Loader {
	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// Viper exposes the underlying instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load reads the .env file and the config file, then decodes and validates
// the merged settings. A missing config file is not an error unless
// opts.ConfigPath names it explicitly.
func (l *Loader) Load(opts LoadOptions) (Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	l.v.SetConfigType("toml")
	if opts.ConfigPath != "" {
		l.v.SetConfigFile(opts.ConfigPath)
	} else {
		l.v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		paths := opts.SearchPaths
		if paths == nil {
			paths = DefaultSearchPaths()
		}
		for _, p := range paths {
			l.v.AddConfigPath(p)
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("%w: read config: %v", ErrInvalidConfig, err)
		}
	}

	return l.Current()
}

// Current decodes the settings as they are now.
func (l *Loader) Current() (Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: decode: %v", ErrInvalidConfig, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// File returns the config file in use, or "" when none was found.
func (l *Loader) File() string {
	return l.v.ConfigFileUsed()
}

// Watch calls onChange with the re-read settings each time the config file
// is written. Invalid edits are passed to onError and otherwise ignored.
func (l *Loader) Watch(onChange func(Config), onError func(error)) {
	if l.File() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.Current()
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	l.v.WatchConfig()
}

// DefaultSearchPaths lists $CLINIC_HOME, the user config dir and the
// working directory.
func DefaultSearchPaths() []string {
	var paths []string
	if home := os.Getenv(HomeEnv); home != "" {
		paths = append(paths, home)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "clinic"))
	}
	return append(paths, ".")
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Database.Path) == "" {
		return fmt.Errorf("%w: database.path must not be empty", ErrInvalidConfig)
	}
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: logging.level %q", ErrInvalidConfig, cfg.Logging.Level)
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: logging.format %q", ErrInvalidConfig, cfg.Logging.Format)
	}
	if cfg.Logging.MaxSizeMB < 0 || cfg.Logging.MaxFiles < 0 {
		return fmt.Errorf("%w: logging rotation limits must not be negative", ErrInvalidConfig)
	}
	if cfg.Backup.Keep < 0 {
		return fmt.Errorf("%w: backup.keep must not be negative", ErrInvalidConfig)
	}
	if cfg.Backup.Debounce < 0 {
		return fmt.Errorf("%w: backup.debounce must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Encode renders cfg as TOML.
func Encode(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(tomlFile{
		Database: cfg.Database,
		Logging:  cfg.Logging,
		Auth:     cfg.Auth,
		Backup: tomlBackup{
			Dir:      cfg.Backup.Dir,
			Keep:     cfg.Backup.Keep,
			Debounce: cfg.Backup.Debounce.String(),
		},
	}); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes cfg to path as TOML. An existing file is only replaced
// when force is set.
func WriteFile(path string, cfg Config, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file %s already exists", path)
	}
	data, err := Encode(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// tomlFile mirrors Config with durations as strings, which is what viper
// decodes back into time.Duration.
type tomlFile struct {
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Auth     AuthConfig     `toml:"auth"`
	Backup   tomlBackup     `toml:"backup"`
}

type tomlBackup struct {
	Dir      string `toml:"dir"`
	Keep     int    `toml:"keep"`
	Debounce string `toml:"debounce"`
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("database.driver", cfg.Database.Driver)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.max_size_mb", cfg.Logging.MaxSizeMB)
	v.SetDefault("logging.max_files", cfg.Logging.MaxFiles)
	v.SetDefault("auth.username", cfg.Auth.Username)
	v.SetDefault("auth.legacy_hash", cfg.Auth.LegacyHash)
	v.SetDefault("backup.dir", cfg.Backup.Dir)
	v.SetDefault("backup.keep", cfg.Backup.Keep)
	v.SetDefault("backup.debounce", cfg.Backup.Debounce)
}
