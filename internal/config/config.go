package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/newthinker/stratsim/internal/core"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, e.g. STRATSIM_SERVER_PORT.
const EnvPrefix = "STRATSIM"

type Config struct {
	Simulation SimulationConfig          `mapstructure:"simulation"`
	Data       DataConfig                `mapstructure:"data"`
	Strategies map[string]StrategyConfig `mapstructure:"strategies"`
	Storage    StorageConfig             `mapstructure:"storage"`
	Journal    JournalConfig             `mapstructure:"journal"`
	Notifiers  map[string]NotifierConfig `mapstructure:"notifiers"`
	Server     ServerConfig              `mapstructure:"server"`
	Metrics    MetricsConfig             `mapstructure:"metrics"`
	Log        LogConfig                 `mapstructure:"log"`
}

// SimulationConfig holds the default engine parameters.
type SimulationConfig struct {
	InitialAccount    float64 `mapstructure:"initial_account"`
	RiskPerTrade      float64 `mapstructure:"risk_per_trade"`
	TotalAcceptedRisk float64 `mapstructure:"total_accepted_risk"`
	ForceClose        bool    `mapstructure:"force_close"`
}

// DataConfig selects the price history source.
type DataConfig struct {
	Source   string `mapstructure:"source"` // "csv", "yahoo" or "binance"
	CSVPath  string `mapstructure:"csv_path"`
	Interval string `mapstructure:"interval"`
	BaseURL  string `mapstructure:"base_url"` // remote API endpoint override
}

// StrategyConfig enables a strategy and optionally overrides the
// simulation risk limits for it. Zero limits fall back to the simulation
// defaults.
type StrategyConfig struct {
	Enabled           bool           `mapstructure:"enabled"`
	Params            map[string]any `mapstructure:"params"`
	RiskPerTrade      float64        `mapstructure:"risk_per_trade"`
	TotalAcceptedRisk float64        `mapstructure:"total_accepted_risk"`
}

// Limits returns the strategy's risk limits with simulation defaults applied.
func (s StrategyConfig) Limits(sim SimulationConfig) (riskPerTrade, totalAcceptedRisk float64) {
	riskPerTrade, totalAcceptedRisk = s.RiskPerTrade, s.TotalAcceptedRisk
	if riskPerTrade == 0 {
		riskPerTrade = sim.RiskPerTrade
	}
	if totalAcceptedRisk == 0 {
		totalAcceptedRisk = sim.TotalAcceptedRisk
	}
	return riskPerTrade, totalAcceptedRisk
}

// StorageConfig configures the report archive.
type StorageConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// JournalConfig configures the SQLite run journal.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// NotifierConfig configures a channel that receives run summaries. The
// map key selects the channel: "telegram" or "webhook".
type NotifierConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	BotToken string            `mapstructure:"bot_token"`
	ChatID   string            `mapstructure:"chat_id"`
	URL      string            `mapstructure:"url"`
	Headers  map[string]string `mapstructure:"headers"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	APIKey      string `mapstructure:"api_key"`
	JobTTLHours int    `mapstructure:"job_ttl_hours"`
	MaxJobs     int    `mapstructure:"max_jobs"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load reads configuration from file. An empty path loads the defaults,
// still subject to environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	// Support environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("simulation.initial_account", d.Simulation.InitialAccount)
	v.SetDefault("simulation.risk_per_trade", d.Simulation.RiskPerTrade)
	v.SetDefault("simulation.total_accepted_risk", d.Simulation.TotalAcceptedRisk)
	v.SetDefault("simulation.force_close", d.Simulation.ForceClose)
	v.SetDefault("data.source", d.Data.Source)
	v.SetDefault("data.csv_path", d.Data.CSVPath)
	v.SetDefault("data.interval", d.Data.Interval)
	v.SetDefault("data.base_url", d.Data.BaseURL)
	v.SetDefault("storage.type", d.Storage.Type)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.region", "")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")
	v.SetDefault("storage.s3.prefix", "")
	v.SetDefault("journal.enabled", d.Journal.Enabled)
	v.SetDefault("journal.dsn", d.Journal.DSN)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.api_key", d.Server.APIKey)
	v.SetDefault("server.job_ttl_hours", d.Server.JobTTLHours)
	v.SetDefault("server.max_jobs", d.Server.MaxJobs)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
	v.SetDefault("log.development", d.Log.Development)
	v.SetDefault("log.level", d.Log.Level)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Simulation: SimulationConfig{
			InitialAccount:    10000,
			RiskPerTrade:      0.1,
			TotalAcceptedRisk: 0.5,
			ForceClose:        true,
		},
		Data: DataConfig{
			Source:   "yahoo",
			Interval: "1d",
		},
		Storage: StorageConfig{
			Type: "localfs",
			Path: "data/reports",
		},
		Journal: JournalConfig{
			DSN: "data/stratsim.db",
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			JobTTLHours: 1,
			MaxJobs:     100,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func inUnitInterval(v float64) bool {
	return v > 0 && v <= 1
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Simulation validation
	if !(c.Simulation.InitialAccount > 0) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial_account must be positive, got %v", c.Simulation.InitialAccount))
	}
	if !inUnitInterval(c.Simulation.RiskPerTrade) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("risk_per_trade must be in (0, 1], got %v", c.Simulation.RiskPerTrade))
	}
	if !inUnitInterval(c.Simulation.TotalAcceptedRisk) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("total_accepted_risk must be in (0, 1], got %v", c.Simulation.TotalAcceptedRisk))
	}

	for name, s := range c.Strategies {
		rpt, tar := s.Limits(c.Simulation)
		if !inUnitInterval(rpt) || !inUnitInterval(tar) {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("strategy %s: risk limits must be in (0, 1], got %v/%v", name, rpt, tar))
		}
	}

	// Data source validation
	switch c.Data.Source {
	case "yahoo", "binance":
	case "csv":
		if c.Data.CSVPath == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("data.csv_path required when source is csv"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown data source %q", c.Data.Source))
	}

	for name, n := range c.Notifiers {
		if !n.Enabled {
			continue
		}
		switch name {
		case "telegram":
			if n.BotToken == "" || n.ChatID == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("notifiers.telegram requires bot_token and chat_id"))
			}
		case "webhook":
			if n.URL == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("notifiers.webhook requires url"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown notifier %q", name))
		}
	}

	// Storage validation
	switch c.Storage.Type {
	case "", "localfs":
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("storage.s3.bucket required when type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown storage type %q", c.Storage.Type))
	}

	if c.Journal.Enabled && c.Journal.DSN == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("journal.dsn required when the journal is enabled"))
	}

	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.MaxJobs < 0 || c.Server.JobTTLHours < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("job limits cannot be negative"))
	}

	return nil
}
