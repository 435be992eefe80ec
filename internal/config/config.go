// Package config loads runtime settings from defaults, an optional
// elevadorpro.yaml file, ELEVADORPRO_* environment variables and command
// line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"elevadorpro/internal/core"
	"elevadorpro/internal/infra/seedstore/s3"
	"elevadorpro/internal/overlay"
	"elevadorpro/internal/seedstore"
)

const (
	fileName  = "elevadorpro"
	envPrefix = "elevadorpro"
)

// Config is the full application configuration.
type Config struct {
	HTTP    HTTP    `mapstructure:"http" yaml:"http"`
	Seed    Seed    `mapstructure:"seed" yaml:"seed"`
	Overlay Overlay `mapstructure:"overlay" yaml:"overlay"`
	Log     Log     `mapstructure:"log" yaml:"log"`
	Session Session `mapstructure:"session" yaml:"session"`
	Locale  string  `mapstructure:"locale" yaml:"locale"`
}

type HTTP struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

type Seed struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	FSRoot string `mapstructure:"fs_root" yaml:"fs_root"`
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
	S3     S3     `mapstructure:"s3" yaml:"s3"`
}

type S3 struct {
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`
	Region          string `mapstructure:"region" yaml:"region"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint"`
	PathStyle       bool   `mapstructure:"path_style" yaml:"path_style"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`
}

type Overlay struct {
	Driver      string `mapstructure:"driver" yaml:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
	KeyPrefix   string `mapstructure:"key_prefix" yaml:"key_prefix"`
}

type Log struct {
	Debug     bool   `mapstructure:"debug" yaml:"debug"`
	TraceFile string `mapstructure:"trace_file" yaml:"trace_file,omitempty"`
}

type Session struct {
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// Defaults returns the built-in settings keyed by their dotted names.
func Defaults() map[string]any {
	return map[string]any{
		"http.addr":                 ":8080",
		"seed.driver":               string(seedstore.DriverFilesystem),
		"seed.fs_root":              "./data",
		"seed.prefix":               "",
		"seed.s3.bucket":            "",
		"seed.s3.region":            "us-east-1",
		"seed.s3.endpoint":          "",
		"seed.s3.path_style":        false,
		"seed.s3.access_key_id":     "",
		"seed.s3.secret_access_key": "",
		"overlay.driver":            string(overlay.DriverSQLite),
		"overlay.sqlite_path":       "elevadorpro.db",
		"overlay.postgres_dsn":      "",
		"overlay.key_prefix":        overlay.KeyPrefix,
		"log.debug":                 false,
		"log.trace_file":            "",
		"session.ttl":               "12h",
		"locale":                    "pt-BR",
	}
}

// Flags maps flag names to configuration keys. Commands register the flags
// they accept; Load binds whichever are present.
var Flags = map[string]string{
	"config":       "",
	"addr":         "http.addr",
	"seed-driver":  "seed.driver",
	"data":         "seed.fs_root",
	"seed-prefix":  "seed.prefix",
	"s3-bucket":    "seed.s3.bucket",
	"s3-endpoint":  "seed.s3.endpoint",
	"store":        "overlay.driver",
	"sqlite-path":  "overlay.sqlite_path",
	"postgres-dsn": "overlay.postgres_dsn",
	"debug":        "log.debug",
	"trace-file":   "log.trace_file",
	"locale":       "locale",
}

// UserConfigPath is where `config init` writes the file.
func UserConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not get user config directory: %w", err)
	}
	return filepath.Join(dir, fileName, fileName+".yaml"), nil
}

// Load resolves the configuration for cmd. An explicit --config file must
// exist; the default search locations are optional.
func Load(cmd *cobra.Command) (Config, error) {
	var c Config
	v := viper.New()
	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigName(fileName)
	v.SetConfigType("yaml")
	explicit := ""
	if cmd != nil {
		if f := cmd.Flags().Lookup("config"); f != nil {
			explicit = f.Value.String()
		}
	}
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		if p, err := UserConfigPath(); err == nil {
			v.AddConfigPath(filepath.Dir(p))
		}
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return c, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		if err := bindFlags(v, cmd.Flags()); err != nil {
			return c, err
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	return c, c.Validate()
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range Flags {
		if key == "" {
			continue
		}
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}
	return nil
}

// Validate rejects unknown drivers and incomplete backend settings.
func (c Config) Validate() error {
	switch seedstore.Driver(c.Seed.Driver) {
	case seedstore.DriverFilesystem, seedstore.DriverMemory:
	case seedstore.DriverS3:
		if c.Seed.S3.Bucket == "" {
			return errors.New("seed.s3.bucket is required for the s3 seed driver")
		}
	default:
		return fmt.Errorf("unknown seed.driver %q", c.Seed.Driver)
	}
	switch overlay.Driver(c.Overlay.Driver) {
	case overlay.DriverSQLite, overlay.DriverMemory, overlay.DriverPostgres:
	default:
		return fmt.Errorf("unknown overlay.driver %q", c.Overlay.Driver)
	}
	return nil
}

// SeedConfig converts the seed section for core.OpenSeedSource.
func (c Config) SeedConfig() core.SeedConfig {
	return core.SeedConfig{
		Driver: seedstore.Driver(c.Seed.Driver),
		FSRoot: c.Seed.FSRoot,
		S3: s3.Config{
			Region:          c.Seed.S3.Region,
			Bucket:          c.Seed.S3.Bucket,
			Endpoint:        c.Seed.S3.Endpoint,
			AccessKeyID:     c.Seed.S3.AccessKeyID,
			SecretAccessKey: c.Seed.S3.SecretAccessKey,
			PathStyle:       c.Seed.S3.PathStyle,
		},
	}
}

// OverlayConfig converts the overlay section for core.OpenOverlayBackend.
func (c Config) OverlayConfig() core.OverlayConfig {
	return core.OverlayConfig{
		Driver:      overlay.Driver(c.Overlay.Driver),
		SQLitePath:  c.Overlay.SQLitePath,
		PostgresDSN: c.Overlay.PostgresDSN,
	}
}

// Write stores c as YAML at path, creating parent directories. Existing
// files are only replaced when overwrite is set.
func Write(c Config, path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
