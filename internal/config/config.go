package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/haeun/pagewatch/internal/logger"
	"github.com/haeun/pagewatch/internal/store"
)

// Config represents the top-level TOML structure.
//
//	session_idle_timeout = "30m"
//
//	[store]
//	type = "sqlite"
//	path = "/var/lib/pagewatch/sessions.db"
//
//	[log]
//	dir = "/var/log/pagewatch"
//	level = "warn"
//
//	[report]
//	sinks = ["sqlite:///var/lib/pagewatch/visits.db", "opensearch://localhost:9200/page-visits"]
//
//	[server]
//	listen = ":8087"
//	base_path = "/pagewatch"
//	metrics_listen = ":9090"
type Config struct {
	SessionIdleTimeout time.Duration `toml:"session_idle_timeout" mapstructure:"session_idle_timeout"`
	Store              store.Config  `toml:"store" mapstructure:"store"`
	Log                logger.Config `toml:"log" mapstructure:"log"`
	Report             ReportConfig  `toml:"report" mapstructure:"report"`
	Server             ServerConfig  `toml:"server" mapstructure:"server"`
}

// ReportConfig lists downstream sink DSNs. An empty list disables emission.
type ReportConfig struct {
	Sinks       []string      `toml:"sinks" mapstructure:"sinks"`
	SendTimeout time.Duration `toml:"send_timeout" mapstructure:"send_timeout"`
}

// ServerConfig configures the embeddable HTTP surface.
type ServerConfig struct {
	Listen        string `toml:"listen" mapstructure:"listen"`
	BasePath      string `toml:"base_path" mapstructure:"base_path"`
	MetricsListen string `toml:"metrics_listen" mapstructure:"metrics_listen"`
}

// LoadConfig reads and validates a TOML config file.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyDefaults(&c)
	if err := validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func applyDefaults(c *Config) {
	if c.Store.Type == "" {
		c.Store.Type = "memory"
	}
	if c.SessionIdleTimeout <= 0 {
		c.SessionIdleTimeout = 30 * time.Minute
	}
	if c.Report.SendTimeout <= 0 {
		c.Report.SendTimeout = 5 * time.Second
	}
}

func validate(c *Config) error {
	supported := map[string]bool{}
	for _, t := range store.SupportedTypes() {
		supported[t] = true
	}
	if !supported[c.Store.Type] {
		return fmt.Errorf("unsupported store type %q (supported: %v)", c.Store.Type, store.SupportedTypes())
	}
	if c.Store.Type == "sqlite" && c.Store.Path == "" {
		return fmt.Errorf("store type sqlite requires a path")
	}
	for _, dsn := range c.Report.Sinks {
		if dsn == "" {
			return fmt.Errorf("report sinks must not contain empty DSNs")
		}
	}
	return nil
}
