package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/itsrobel/qs/internal/apperr"
	"github.com/itsrobel/qs/internal/branding"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Setting keys.
const (
	KeyGitOwner       = "git_owner"
	KeyCommandTimeout = "command_timeout"
	KeyInstallWorkers = "install_workers"
	KeyLogLevel       = "log_level"
	KeyLogFormat      = "log_format"
)

// Settings is the validated view of the configuration.
type Settings struct {
	GitOwner       string        `mapstructure:"git_owner" validate:"required,excludesall=/\\"`
	CommandTimeout time.Duration `mapstructure:"command_timeout" validate:"gt=0"`
	InstallWorkers int           `mapstructure:"install_workers" validate:"min=1,max=64"`
	LogLevel       string        `mapstructure:"log_level" validate:"oneof=trace debug info warn error"`
	LogFormat      string        `mapstructure:"log_format" validate:"oneof=console json"`
}

var validate = validator.New()

// Keys returns every setting key in display order.
func Keys() []string {
	return []string{KeyGitOwner, KeyCommandTimeout, KeyInstallWorkers, KeyLogLevel, KeyLogFormat}
}

// Dir returns the path to the config directory (~/.qs/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.qs/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault(KeyGitOwner, branding.GitOwner())
	viper.SetDefault(KeyCommandTimeout, "10m")
	viper.SetDefault(KeyInstallWorkers, 4)
	viper.SetDefault(KeyLogLevel, "info")
	viper.SetDefault(KeyLogFormat, "console")
}

// Load initializes Viper to read from the config file and environment.
// A missing config file is not an error; a malformed one is.
func Load() error {
	setDefaults()
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return apperr.New(apperr.InvalidArgument, FilePath(), err)
	}
	return nil
}

// Current decodes and validates the effective settings.
func Current() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, apperr.New(apperr.InvalidArgument, "config", fmt.Errorf("decoding settings: %w", err))
	}
	if err := validate.Struct(&s); err != nil {
		return nil, apperr.New(apperr.InvalidArgument, "config", fmt.Errorf("validation failed: %w", err))
	}
	return &s, nil
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

func checkKey(key string) error {
	if !slices.Contains(Keys(), key) {
		return apperr.Newf(apperr.InvalidArgument, key, "unknown setting; valid keys are %s", strings.Join(Keys(), ", "))
	}
	return nil
}

// Override sets a value for this process only, the way a command-line
// flag does. It is validated by the next call to Current.
func Override(key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	viper.Set(key, value)
	return nil
}

// Set validates a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	previous := viper.Get(key)
	viper.Set(key, value)
	if _, err := Current(); err != nil {
		viper.Set(key, previous)
		return err
	}

	if err := EnsureDir(); err != nil {
		return apperr.New(apperr.FileSystem, Dir(), err)
	}

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return apperr.New(apperr.FileSystem, configFile, fmt.Errorf("creating config file: %w", err))
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return apperr.New(apperr.FileSystem, configFile, fmt.Errorf("writing config file: %w", err))
	}

	return nil
}
