package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	ServerAddress string        `mapstructure:"server_address"`
	DBSource      string        `mapstructure:"db_source"`
	LogLevel      string        `mapstructure:"log_level"`
	Dataset       DatasetConfig `mapstructure:"dataset"`
	Spawn         SpawnConfig   `mapstructure:"spawn"`
	Links         LinksConfig   `mapstructure:"links"`
	Elements      ElementIDs    `mapstructure:"elements"`
}

// DatasetConfig selects where city records are loaded from.
type DatasetConfig struct {
	Source     string        `mapstructure:"source"` // csv or postgres
	Host       string        `mapstructure:"host"`
	Path       string        `mapstructure:"path"`
	SkipHeader bool          `mapstructure:"skip_header"`
	MaxRetries uint          `mapstructure:"max_retries"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// URL returns the full CSV resource location.
func (d DatasetConfig) URL() string {
	return strings.TrimRight(d.Host, "/") + "/" + strings.TrimLeft(d.Path, "/")
}

// SpawnConfig holds the timing constants of the floating labels.
type SpawnConfig struct {
	WarmUp          time.Duration `mapstructure:"warm_up"`
	Interval        time.Duration `mapstructure:"interval"`
	Lifetime        time.Duration `mapstructure:"lifetime"`
	BurstFactor     int           `mapstructure:"burst_factor"`
	ReferenceHeight int           `mapstructure:"reference_height"`
	BaseClass       string        `mapstructure:"base_class"`
}

type LinksConfig struct {
	MapBase  string `mapstructure:"map_base"`
	WikiBase string `mapstructure:"wiki_base"`
}

// ElementIDs names the host page elements the display writes into.
type ElementIDs struct {
	Container  string `mapstructure:"container"`
	City       string `mapstructure:"city"`
	Prefecture string `mapstructure:"prefecture"`
	CityKana   string `mapstructure:"city_kana"`
	Map        string `mapstructure:"map"`
	Wiki       string `mapstructure:"wiki"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_address", "0.0.0.0:8080")
	v.SetDefault("log_level", "info")

	v.SetDefault("dataset.source", "csv")
	v.SetDefault("dataset.host", "https://ddhr36ot0te3x.cloudfront.net")
	v.SetDefault("dataset.path", "/city_names.csv")
	v.SetDefault("dataset.skip_header", false)
	v.SetDefault("dataset.max_retries", 5)
	v.SetDefault("dataset.timeout", 10*time.Second)

	v.SetDefault("spawn.warm_up", 3*time.Second)
	v.SetDefault("spawn.interval", time.Second)
	v.SetDefault("spawn.lifetime", 20*time.Second)
	v.SetDefault("spawn.burst_factor", 10)
	v.SetDefault("spawn.reference_height", 800)
	v.SetDefault("spawn.base_class", "citiescrowl_text")

	v.SetDefault("links.map_base", "https://www.google.com/maps")
	v.SetDefault("links.wiki_base", "https://ja.wikipedia.org/wiki")

	v.SetDefault("elements.container", "citiescrowl_contents")
	v.SetDefault("elements.city", "popup_content_city")
	v.SetDefault("elements.prefecture", "popup_content_prefecture")
	v.SetDefault("elements.city_kana", "popup_content_city_kana")
	v.SetDefault("elements.map", "popup_content_google_map")
	v.SetDefault("elements.wiki", "popup_content_wikipedia")
}

// LoadConfig reads configuration from app.yaml in path, falling back to
// defaults when the file is missing. Environment variables prefixed with
// CITIESCROWL_ override file values (dots become underscores).
func LoadConfig(path string) (Config, error) {
	var config Config

	v := viper.New()
	setDefaults(v)
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("citiescrowl")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("config: failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("config: failed to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return config, err
	}

	return config, nil
}

// Validate rejects settings the spawn loop cannot run with.
func (c Config) Validate() error {
	switch c.Dataset.Source {
	case "csv", "postgres":
	default:
		return fmt.Errorf("config: unknown dataset source %q", c.Dataset.Source)
	}
	if c.Dataset.Source == "postgres" && c.DBSource == "" {
		return fmt.Errorf("config: db_source is required for the postgres dataset source")
	}
	if c.Spawn.Interval <= 0 {
		return fmt.Errorf("config: spawn.interval must be positive")
	}
	if c.Spawn.Lifetime <= 0 {
		return fmt.Errorf("config: spawn.lifetime must be positive")
	}
	if c.Spawn.ReferenceHeight <= 0 {
		return fmt.Errorf("config: spawn.reference_height must be positive")
	}
	if c.Spawn.BurstFactor < 0 {
		return fmt.Errorf("config: spawn.burst_factor must not be negative")
	}
	return nil
}
