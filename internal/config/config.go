// Package config loads application settings from defaults, an optional YAML
// file, environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is prepended to every environment variable, e.g. LINEAR_IDE_LOG_LEVEL.
	EnvPrefix = "LINEAR_IDE"

	// DirName is the directory under the user config dir holding config and credentials.
	DirName = "linear-ide"

	DefaultEndpoint = "https://api.linear.app/graphql"
	DefaultPageSize = 50
	DefaultTimeout  = 30 * time.Second
)

// Viper keys.
const (
	KeyAPIEndpoint         = "api_endpoint"
	KeyTimeout             = "timeout"
	KeyPageSize            = "page_size"
	KeyLogFile             = "log_file"
	KeyLogLevel            = "log_level"
	KeyAutoRefreshInterval = "auto_refresh_interval"
	KeyDefaultTeam         = "default_team"
	KeyRepository          = "repository"
	KeyCredentialsFile     = "credentials_file"
)

// Config holds all runtime settings.
type Config struct {
	APIEndpoint string
	Timeout     time.Duration
	PageSize    int
	LogFile     string
	LogLevel    string
	// AutoRefreshInterval is in whole seconds; zero or negative disables the timer.
	AutoRefreshInterval int
	// DefaultTeam seeds the team id of the issue filter at startup.
	DefaultTeam     string
	RepositoryPath  string
	CredentialsFile string
}

// Dir returns the per-user configuration directory.
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, DirName)
}

// New returns a viper instance with defaults and environment binding applied.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyAPIEndpoint, DefaultEndpoint)
	v.SetDefault(KeyTimeout, DefaultTimeout)
	v.SetDefault(KeyPageSize, DefaultPageSize)
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyLogLevel, "warning")
	v.SetDefault(KeyAutoRefreshInterval, 0)
	v.SetDefault(KeyDefaultTeam, "")
	v.SetDefault(KeyRepository, ".")
	v.SetDefault(KeyCredentialsFile, filepath.Join(Dir(), "credentials.yaml"))
	return v
}

// Load reads the config file (explicit path, or config.yaml in Dir when
// path is empty) and returns the resolved Config. A missing default file is
// not an error; a missing explicit file is.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(Dir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	return fromViper(v)
}

// Watch re-reads the config file whenever it changes and hands the new
// Config to onChange. Invalid intermediate edits are reported to onError.
func Watch(v *viper.Viper, onChange func(Config), onError func(error)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := fromViper(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		APIEndpoint:         strings.TrimSpace(v.GetString(KeyAPIEndpoint)),
		Timeout:             v.GetDuration(KeyTimeout),
		PageSize:            v.GetInt(KeyPageSize),
		LogFile:             v.GetString(KeyLogFile),
		LogLevel:            v.GetString(KeyLogLevel),
		AutoRefreshInterval: v.GetInt(KeyAutoRefreshInterval),
		DefaultTeam:         strings.TrimSpace(v.GetString(KeyDefaultTeam)),
		RepositoryPath:      v.GetString(KeyRepository),
		CredentialsFile:     v.GetString(KeyCredentialsFile),
	}
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	var problems []string
	if cfg.APIEndpoint == "" {
		problems = append(problems, "api_endpoint must not be empty")
	}
	if cfg.Timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}
	if cfg.PageSize <= 0 || cfg.PageSize > 250 {
		problems = append(problems, "page_size must be between 1 and 250")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
