package main

import (
	"fmt"

	"github.com/newthinker/stratsim/internal/backtest"
	"github.com/newthinker/stratsim/internal/collector"
	"github.com/newthinker/stratsim/internal/collector/binance"
	"github.com/newthinker/stratsim/internal/collector/csvfile"
	"github.com/newthinker/stratsim/internal/collector/yahoo"
	"github.com/newthinker/stratsim/internal/config"
	"github.com/newthinker/stratsim/internal/core"
	"github.com/newthinker/stratsim/internal/journal"
	"github.com/newthinker/stratsim/internal/logger"
	"github.com/newthinker/stratsim/internal/metrics"
	"github.com/newthinker/stratsim/internal/notifier"
	"github.com/newthinker/stratsim/internal/notifier/telegram"
	"github.com/newthinker/stratsim/internal/notifier/webhook"
	"github.com/newthinker/stratsim/internal/storage/archive"
	"github.com/newthinker/stratsim/internal/strategy"
	"github.com/newthinker/stratsim/internal/strategy/bollinger"
	"github.com/newthinker/stratsim/internal/strategy/golden_cross"
	"go.uber.org/zap"
)

// components holds everything a command needs, built from one config.
type components struct {
	cfg        *config.Config
	log        *zap.Logger
	metrics    *metrics.Registry
	strategies *strategy.Registry
	backtester *backtest.Backtester
	reports    *archive.Reports
	journal    *journal.Journal
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	if debug {
		level = "debug"
	}
	return logger.New(debug || cfg.Log.Development, level)
}

// build wires the collector, strategies, sinks and backtester. persist
// controls whether finished reports go to the archive and journal.
func build(persist bool) (*components, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	if cfgFile == "" {
		log.Debug("no config file specified, using defaults")
	}

	c := &components{cfg: cfg, log: log}

	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}

	c.strategies, err = newStrategies(cfg, log)
	if err != nil {
		return nil, err
	}

	opts := []backtest.Option{backtest.WithLogger(log)}
	if cfg.Metrics.Enabled {
		c.metrics = metrics.NewRegistry()
		opts = append(opts, backtest.WithRecorder(c.metrics))
	}

	if persist {
		var sinks []backtest.ReportSink

		store, err := archive.New(archive.Config{
			Type: cfg.Storage.Type,
			Path: cfg.Storage.Path,
			S3: archive.S3Config{
				Bucket:    cfg.Storage.S3.Bucket,
				Endpoint:  cfg.Storage.S3.Endpoint,
				Region:    cfg.Storage.S3.Region,
				AccessKey: cfg.Storage.S3.AccessKey,
				SecretKey: cfg.Storage.S3.SecretKey,
				Prefix:    cfg.Storage.S3.Prefix,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("creating report archive: %w", err)
		}
		c.reports = archive.NewReports(store, log)
		sinks = append(sinks, c.reports)

		if cfg.Journal.Enabled {
			c.journal, err = journal.Open(cfg.Journal.DSN, log)
			if err != nil {
				return nil, fmt.Errorf("opening journal: %w", err)
			}
			sinks = append(sinks, c.journal)
		}
		notifiers, err := newNotifiers(cfg, log)
		if err != nil {
			return nil, err
		}
		if notifiers.Len() > 0 {
			sinks = append(sinks, notifiers)
		}

		opts = append(opts, backtest.WithSinks(sinks...))
	}

	c.backtester = backtest.New(provider, c.strategies, opts...)
	return c, nil
}

func (c *components) Close() {
	if c.journal != nil {
		if err := c.journal.Close(); err != nil {
			c.log.Warn("closing journal", zap.Error(err))
		}
	}
	c.log.Sync()
}

func (c *components) defaults() backtest.Params {
	return backtest.Params{
		InitialAccount:    c.cfg.Simulation.InitialAccount,
		RiskPerTrade:      c.cfg.Simulation.RiskPerTrade,
		TotalAcceptedRisk: c.cfg.Simulation.TotalAcceptedRisk,
		ForceCloseAtEnd:   c.cfg.Simulation.ForceClose,
	}
}

// limits returns the configured risk limits of a strategy.
func (c *components) limits(name string) backtest.RiskLimits {
	rpt, tar := c.cfg.Strategies[name].Limits(c.cfg.Simulation)
	return backtest.RiskLimits{RiskPerTrade: rpt, TotalAcceptedRisk: tar}
}

// newNotifiers builds the enabled run summary channels.
func newNotifiers(cfg *config.Config, log *zap.Logger) (*notifier.Registry, error) {
	reg := notifier.NewRegistry(log)
	for name, nc := range cfg.Notifiers {
		if !nc.Enabled {
			continue
		}
		var n notifier.Notifier
		switch name {
		case "telegram":
			n = telegram.New(nc.BotToken, nc.ChatID)
		case "webhook":
			n = webhook.New(nc.URL, nc.Headers)
		default:
			return nil, fmt.Errorf("unknown notifier %q", name)
		}
		if err := n.Init(notifier.Config{Type: name}); err != nil {
			return nil, fmt.Errorf("initializing notifier %s: %w", name, err)
		}
		if err := reg.Register(n); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func newProvider(cfg *config.Config) (collector.Collector, error) {
	reg := collector.NewRegistry(yahoo.New(), binance.New(), csvfile.New(""))
	return reg.Open(cfg.Data.Source, collector.Config{
		Enabled:  true,
		Interval: cfg.Data.Interval,
		Path:     cfg.Data.CSVPath,
		Extra:    map[string]any{"base_url": cfg.Data.BaseURL},
	})
}

// newStrategies registers the built-in strategies. A strategy listed in the
// config with enabled=false is left out; params override the defaults.
func newStrategies(cfg *config.Config, log *zap.Logger) (*strategy.Registry, error) {
	reg := strategy.NewRegistry(log)
	builtin := []strategy.Strategy{
		golden_cross.New(50, 200),
		bollinger.New(50, 2),
	}

	for _, s := range builtin {
		sc, listed := cfg.Strategies[s.Name()]
		if listed && !sc.Enabled {
			log.Debug("strategy disabled", zap.String("strategy", s.Name()))
			continue
		}
		if err := s.Init(strategy.Config{Enabled: true, Params: sc.Params}); err != nil {
			return nil, fmt.Errorf("initializing strategy %s: %w", s.Name(), err)
		}
		reg.Register(s)
	}

	for name := range cfg.Strategies {
		if _, ok := reg.Get(name); !ok && cfg.Strategies[name].Enabled {
			return nil, core.WrapError(core.ErrStrategyNotFound, fmt.Errorf("configured strategy %q", name))
		}
	}
	return reg, nil
}
