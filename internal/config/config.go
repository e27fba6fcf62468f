package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type Config struct {
	App          AppConfig           `mapstructure:"app"`
	Queue        QueueConfig         `mapstructure:"queue"`
	Keystore     KeystoreConfig      `mapstructure:"keystore"`
	Store        StoreConfig         `mapstructure:"store"`
	Sources      []SourceConfig      `mapstructure:"sources"`
	Destinations []DestinationConfig `mapstructure:"destinations"`
	Channels     []ChannelConfig     `mapstructure:"channels"`
	Jobs         []JobConfig         `mapstructure:"jobs"`

	v *viper.Viper
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
	TempDir  string `mapstructure:"temp_dir"`
}

type QueueConfig struct {
	MaxConcurrentJobs int    `mapstructure:"max_concurrent_jobs"`
	SweepInterval     string `mapstructure:"sweep_interval"`
}

type KeystoreConfig struct {
	// RootKeyHex is the system key that wraps profile master keys,
	// hex-encoded, 32 bytes decoded.
	RootKeyHex string `mapstructure:"root_key"`
}

type StoreConfig struct {
	// Driver is "memory" or "postgres".
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type SourceConfig struct {
	ID       string `mapstructure:"id"`
	Name     string `mapstructure:"name"`
	Type     string `mapstructure:"type"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`

	// PostgreSQL specific
	SSLMode string `mapstructure:"ssl_mode"`

	// MongoDB specific
	AuthDatabase string `mapstructure:"auth_database"`
}

type DestinationConfig struct {
	ID   string `mapstructure:"id"`
	Type string `mapstructure:"type"`

	// Local
	Path string `mapstructure:"path"`

	// AWS S3
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`

	// Google Drive
	CredentialsFile string `mapstructure:"credentials_file"`
	FolderID        string `mapstructure:"folder_id"`
}

type ChannelConfig struct {
	ID   string `mapstructure:"id"`
	Type string `mapstructure:"type"`

	// Telegram
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`

	// Webhook
	URL string `mapstructure:"url"`
}

type JobConfig struct {
	ID                string          `mapstructure:"id"`
	Name              string          `mapstructure:"name"`
	Source            string          `mapstructure:"source"`
	Destination       string          `mapstructure:"destination"`
	EncryptionProfile string          `mapstructure:"encryption_profile"`
	Schedule          string          `mapstructure:"schedule"`
	Enabled           bool            `mapstructure:"enabled"`
	NotifyCondition   string          `mapstructure:"notify_condition"`
	Channels          []string        `mapstructure:"channels"`
	Retention         RetentionConfig `mapstructure:"retention"`
}

type RetentionConfig struct {
	Mode        string `mapstructure:"mode"`
	KeepCount   int    `mapstructure:"keep_count"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
	KeepDaily   int    `mapstructure:"keep_daily"`
	KeepWeekly  int    `mapstructure:"keep_weekly"`
	KeepMonthly int    `mapstructure:"keep_monthly"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("app.name", "custos")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("queue.max_concurrent_jobs", 1)
	v.SetDefault("queue.sweep_interval", "30s")
	v.SetDefault("store.driver", "memory")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.v = v

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	sources := map[string]bool{}
	for i, s := range c.Sources {
		if s.ID == "" {
			return fmt.Errorf("sources[%d]: id is required", i)
		}
		if s.Type == "" {
			return fmt.Errorf("sources[%d]: type is required", i)
		}
		if s.Host == "" {
			return fmt.Errorf("sources[%d]: host is required", i)
		}
		sources[s.ID] = true
	}

	destinations := map[string]bool{}
	for i, d := range c.Destinations {
		if d.ID == "" {
			return fmt.Errorf("destinations[%d]: id is required", i)
		}
		if d.Type == "" {
			return fmt.Errorf("destinations[%d]: type is required", i)
		}
		destinations[d.ID] = true
	}

	for i, j := range c.Jobs {
		if j.ID == "" {
			return fmt.Errorf("jobs[%d]: id is required", i)
		}
		if !sources[j.Source] {
			return fmt.Errorf("jobs[%d]: unknown source %q", i, j.Source)
		}
		if !destinations[j.Destination] {
			return fmt.Errorf("jobs[%d]: unknown destination %q", i, j.Destination)
		}
		if j.Enabled && j.Schedule == "" {
			return fmt.Errorf("jobs[%d]: schedule is required when enabled", i)
		}
	}

	if c.Queue.MaxConcurrentJobs < 1 {
		return fmt.Errorf("queue.max_concurrent_jobs must be positive")
	}

	return nil
}

func (c *Config) GetEnabledJobs() []JobConfig {
	var enabled []JobConfig
	for _, j := range c.Jobs {
		if j.Enabled {
			enabled = append(enabled, j)
		}
	}
	return enabled
}

// Watch re-reads the config file on change and forwards the new values
// to fn. Used to hot-reload queue.max_concurrent_jobs without restart.
func (c *Config) Watch(fn func(*Config)) {
	c.v.OnConfigChange(func(fsnotify.Event) {
		var next Config
		if err := c.v.Unmarshal(&next); err != nil {
			return
		}
		if next.Validate() != nil {
			return
		}
		fn(&next)
	})
	c.v.WatchConfig()
}
