// Package config loads symlog settings from defaults, an optional config file, a .env file and
// SYMLOG_* environment variables, in increasing order of precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/duynguyendang/symlog/pkg/common/errors"
	"github.com/duynguyendang/symlog/pkg/typeanalysis"
)

// FileName is the config file looked up in the working directory and then in the home directory.
const FileName = ".symlog.yaml"

// Config is the process configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	// DataDir holds one sub-directory per project.
	DataDir string `mapstructure:"data_dir"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type CacheConfig struct {
	// Projects is the number of loaded projects kept open.
	Projects int `mapstructure:"projects"`
	// Reports is the number of analysis reports kept per process.
	Reports int `mapstructure:"reports"`
}

type AnalysisConfig struct {
	SeedPolicy string `mapstructure:"seed_policy"`
	// Solve runs the SAT check on every derived formula.
	Solve bool `mapstructure:"solve"`
	// MaxRounds bounds saturation of rule-defined relations.
	MaxRounds int `mapstructure:"max_rounds"`
}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("cache.projects", 8)
	v.SetDefault("cache.reports", 128)
	v.SetDefault("analysis.seed_policy", string(typeanalysis.SeedMerge))
	v.SetDefault("analysis.solve", false)
	v.SetDefault("analysis.max_rounds", 256)
	v.SetDefault("data_dir", "./data")
}

// New returns a viper instance with defaults and environment binding, without reading any file.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("SYMLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads the configuration. An explicit path must exist; otherwise FileName is looked up
// in the working directory and the home directory, and its absence is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	} else if found := findConfig(); found != "" {
		v.SetConfigFile(found)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", found)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func findConfig() string {
	var dirs []string
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}
	for _, dir := range dirs {
		p := filepath.Join(dir, FileName)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	if _, ok := typeanalysis.ParseSeedPolicy(c.Analysis.SeedPolicy); !ok {
		return errors.WithHint(
			errors.Wrapf(errors.ErrInvalidInput, "unknown seed policy %q", c.Analysis.SeedPolicy),
			"valid policies: merge, last-write-wins")
	}
	if c.Cache.Projects < 1 {
		return errors.Wrapf(errors.ErrInvalidInput, "cache.projects must be positive, got %d", c.Cache.Projects)
	}
	if c.Cache.Reports < 1 {
		return errors.Wrapf(errors.ErrInvalidInput, "cache.reports must be positive, got %d", c.Cache.Reports)
	}
	if c.Analysis.MaxRounds < 0 {
		return errors.Wrapf(errors.ErrInvalidInput, "analysis.max_rounds must not be negative, got %d", c.Analysis.MaxRounds)
	}
	if c.DataDir == "" {
		return errors.Wrap(errors.ErrInvalidInput, "data_dir must be set")
	}
	return nil
}

// SeedPolicy returns the validated seed policy.
func (c *Config) SeedPolicy() typeanalysis.SeedPolicy {
	p, _ := typeanalysis.ParseSeedPolicy(c.Analysis.SeedPolicy)
	return p
}
