package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/liangmanlin/gopost/httpc"
	"github.com/liangmanlin/gopost/kernel"
	"gopkg.in/yaml.v3"
)

const (
	DialerNbio = "nbio"
	DialerNet  = "net"
)

// Config is the gshell configuration file.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Client  ClientConfig  `yaml:"client"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type LogConfig struct {
	Path   string `yaml:"path"`   // directory for hourly log files, empty for none
	Stdout bool   `yaml:"stdout"` // also print to stdout
	Level  int    `yaml:"level"`  // 1 debug, 2 error
}

type ClientConfig struct {
	Dialer       string            `yaml:"dialer"` // nbio or net
	PumpInterval time.Duration     `yaml:"pump_interval"`
	IdleTimeout  time.Duration     `yaml:"idle_timeout"`
	DialTimeout  time.Duration     `yaml:"dial_timeout"`
	WriteTimeout time.Duration     `yaml:"write_timeout"`
	Headers      map[string]string `yaml:"headers"` // sent with every post
}

type MetricsConfig struct {
	URL string `yaml:"url"` // default destination of the metric command
}

// Load reads path. A missing file gives the defaults, a malformed one is an
// error. GOPOST_* environment variables override the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Stdout: true,
			Level:  int(kernel.LogLevelError),
		},
		Client: ClientConfig{
			Dialer:       DialerNbio,
			PumpInterval: httpc.DefaultPumpInterval,
			IdleTimeout:  httpc.DefaultIdleTimeout,
			DialTimeout:  httpc.DefaultDialTimeout,
			WriteTimeout: httpc.DefaultWriteTimeout,
			Headers:      make(map[string]string),
		},
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GOPOST_LOG_PATH"); v != "" {
		c.Log.Path = v
	}
	if v := os.Getenv("GOPOST_LOG_STDOUT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Log.Stdout = b
		}
	}
	if v := os.Getenv("GOPOST_LOG_LEVEL"); v != "" {
		if level, err := strconv.Atoi(v); err == nil {
			c.Log.Level = level
		}
	}
	if v := os.Getenv("GOPOST_DIALER"); v != "" {
		c.Client.Dialer = v
	}
	if v := os.Getenv("GOPOST_PUMP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Client.PumpInterval = d
		}
	}
	if v := os.Getenv("GOPOST_IDLE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Client.IdleTimeout = d
		}
	}
	if v := os.Getenv("GOPOST_DIAL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Client.DialTimeout = d
		}
	}
	if v := os.Getenv("GOPOST_METRICS_URL"); v != "" {
		c.Metrics.URL = v
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Log.Level == 0 {
		c.Log.Level = int(kernel.LogLevelError)
	}
	if c.Client.Dialer == "" {
		c.Client.Dialer = DialerNbio
	}
	if c.Client.PumpInterval <= 0 {
		c.Client.PumpInterval = httpc.DefaultPumpInterval
	}
	if c.Client.DialTimeout <= 0 {
		c.Client.DialTimeout = httpc.DefaultDialTimeout
	}
	if c.Client.Headers == nil {
		c.Client.Headers = make(map[string]string)
	}
}

func (c *Config) Validate() error {
	if c.Client.Dialer != DialerNbio && c.Client.Dialer != DialerNet {
		return fmt.Errorf("client.dialer must be %q or %q, got %q", DialerNbio, DialerNet, c.Client.Dialer)
	}
	if c.Log.Level != int(kernel.LogLevelDebug) && c.Log.Level != int(kernel.LogLevelError) {
		return fmt.Errorf("log.level must be 1 or 2, got %d", c.Log.Level)
	}
	if c.Client.IdleTimeout < 0 {
		return fmt.Errorf("client.idle_timeout must not be negative")
	}
	return nil
}

// ApplyLog points the kernel logger at the configured destination.
func (c *Config) ApplyLog() {
	kernel.Env.LogPath = c.Log.Path
	kernel.Env.WriteLogStd = c.Log.Stdout
	kernel.SetLogLevel(kernel.LogLevel(c.Log.Level))
}

// DispatcherOptions turns the client section into httpc options. Extra
// headers are added in name order.
func (c *Config) DispatcherOptions() []httpc.Option {
	opts := []httpc.Option{
		httpc.WithPumpInterval(c.Client.PumpInterval),
		httpc.WithIdleTimeout(c.Client.IdleTimeout),
		httpc.WithDialTimeout(c.Client.DialTimeout),
		httpc.WithWriteTimeout(c.Client.WriteTimeout),
	}
	if c.Client.Dialer == DialerNet {
		opts = append(opts, httpc.WithNetDialer())
	}
	keys := make([]string, 0, len(c.Client.Headers))
	for k := range c.Client.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		opts = append(opts, httpc.WithHeader(k, c.Client.Headers[k]))
	}
	return opts
}
