package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Thresholds struct {
	CPU  int `yaml:"cpu" validate:"gte=0,lte=100"`
	RAM  int `yaml:"ram" validate:"gte=0,lte=100"`
	Disk int `yaml:"disk" validate:"gte=0,lte=100"`
}

type Config struct {
	// Server settings
	ListenAddr string `yaml:"listen_addr" validate:"required"`

	// Sampling
	Interval        time.Duration `yaml:"interval" validate:"gte=100ms"`
	CPUSampleWindow time.Duration `yaml:"cpu_sample_window" validate:"gte=0"`
	Cooldown        time.Duration `yaml:"cooldown" validate:"gte=0"`
	TopN            int           `yaml:"top_n" validate:"gte=1"`
	DiskPath        string        `yaml:"disk_path" validate:"required"`

	// Initial alert thresholds (percent). Runtime changes are not written back.
	Thresholds Thresholds `yaml:"thresholds"`

	// Paths
	LogFile string `yaml:"log_file" validate:"required"`
	DataDir string `yaml:"data_dir" validate:"required"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format" validate:"omitempty,oneof=text json"`

	// Dev mode (local paths, debug logging)
	DevMode bool `yaml:"-"`
}

func Default() *Config {
	return &Config{
		ListenAddr:      "127.0.0.1:8787",
		Interval:        time.Second,
		CPUSampleWindow: time.Second,
		Cooldown:        10 * time.Second,
		TopN:            5,
		DiskPath:        "/",
		Thresholds:      Thresholds{CPU: 80, RAM: 80, Disk: 80},
		LogFile:         "/var/lib/resmon/usage_log.txt",
		DataDir:         "/var/lib/resmon",
		LogLevel:        "info",
		LogFormat:       "text",
		DevMode:         false,
	}
}

func DefaultDev() *Config {
	cfg := Default()
	cfg.DevMode = true
	cfg.DataDir = "./data"
	cfg.LogFile = "./data/usage_log.txt"
	cfg.LogLevel = "debug"
	return cfg
}

func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overrides settings from RESMON_* and LOG_* environment variables.
// Unparseable numeric values are ignored.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("RESMON_LISTEN"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("RESMON_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("RESMON_LOG_FILE"); v != "" {
		c.LogFile = v
	}
	if v := os.Getenv("RESMON_DISK_PATH"); v != "" {
		c.DiskPath = v
	}
	if v := os.Getenv("RESMON_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Interval = d
		}
	}
	if v := os.Getenv("RESMON_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.TopN = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "resmon.db")
}

func (c *Config) EnsureDirs() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	if dir := filepath.Dir(c.LogFile); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
