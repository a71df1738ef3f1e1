package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Conf holds the application configuration, making it accessible globally.
var Conf *Config

// Config struct is the top-level configuration structure.
type Config struct {
	Aim         string            `mapstructure:"aim"`
	Paths       PathsConfig       `mapstructure:"paths"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	Corrections CorrectionsConfig `mapstructure:"corrections"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// PathsConfig locates raw input and derived output. Relative paths are
// resolved against the project root.
type PathsConfig struct {
	RawGlob      string `mapstructure:"raw_glob"`
	ProcessedDir string `mapstructure:"processed_dir"`
	EventsDir    string `mapstructure:"events_dir"`
}

// PipelineConfig holds batch driver settings.
type PipelineConfig struct {
	Workers  int           `mapstructure:"workers"`
	Interval time.Duration `mapstructure:"interval"`
	// DurationOverrideMS replaces stim_duration as the event duration when
	// positive.
	DurationOverrideMS float64 `mapstructure:"duration_override_ms"`
}

// CorrectionsConfig points at a corrections table; empty uses the built-in one.
type CorrectionsConfig struct {
	File string `mapstructure:"file"`
}

// ServerConfig holds server-related settings.
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	// Path is the database file for the sqlite driver.
	Path string `mapstructure:"path"`
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Directory  string `mapstructure:"directory"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("aim", "aim1")

	// Paths defaults
	v.SetDefault("paths.raw_glob", "behavioral_data/raw/*/*.csv")
	v.SetDefault("paths.processed_dir", "behavioral_data/processed")
	v.SetDefault("paths.events_dir", "behavioral_data/event_files")

	// Pipeline defaults
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.interval", "1h")
	v.SetDefault("pipeline.duration_override_ms", 0)
	v.SetDefault("corrections.file", "")

	// Server defaults
	v.SetDefault("server.port", "5050")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "db")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "user")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.dbname", "behavior")
	v.SetDefault("database.path", "behavior.db")

	// Logging defaults
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.max_size", 10)   // 10 MB
	v.SetDefault("logging.max_backups", 3) // Keep 3 backups
	v.SetDefault("logging.max_age", 7)     // 7 days
	v.SetDefault("logging.compress", true) // Compress old logs
}

// Init initializes the configuration with Viper.
func Init(projectRoot string, log *zap.Logger) error {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// --- File Configuration ---
	v.AddConfigPath(filepath.Join(projectRoot, "config"))
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// --- Environment Variable Binding ---
	v.SetEnvPrefix("BEHAV") // e.g., BEHAV_PIPELINE_WORKERS
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// It's okay if the file doesn't exist; defaults and env vars will be used.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(&Conf); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}
	Conf.resolve(projectRoot)

	// Set up a watch for configuration changes for hot-reloading
	if v.ConfigFileUsed() != "" {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			log.Info("Configuration file changed, reloading.", zap.String("file", e.Name))
			if err := v.Unmarshal(&Conf); err != nil {
				log.Error("Error reloading configuration", zap.Error(err))
				return
			}
			Conf.resolve(projectRoot)
		})
	}

	log.Info("Configuration loaded successfully", zap.String("aim", Conf.Aim))
	return nil
}

// resolve makes relative paths absolute under root.
func (c *Config) resolve(root string) {
	for _, p := range []*string{
		&c.Paths.RawGlob, &c.Paths.ProcessedDir, &c.Paths.EventsDir,
		&c.Corrections.File, &c.Database.Path, &c.Logging.Directory,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(root, *p)
		}
	}
}

// DurationOverride returns the configured event duration override, or nil.
func (c *Config) DurationOverride() *float64 {
	if c.Pipeline.DurationOverrideMS <= 0 {
		return nil
	}
	d := c.Pipeline.DurationOverrideMS
	return &d
}
