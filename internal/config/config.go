package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Redis     RedisConfig     `yaml:"redis"`
	Mail      MailConfig      `yaml:"mail"`
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Gantt     GanttConfig     `yaml:"gantt"`
	App       AppConfig       `yaml:"app"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
	// AllowedOrigins lists CORS origins; empty allows any origin.
	AllowedOrigins []string `yaml:"allowed_origins"`
	// AuthRateLimit throttles the public auth endpoints per client IP.
	AuthRateLimit float64 `yaml:"auth_rate_limit"`
	AuthRateBurst int     `yaml:"auth_rate_burst"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

type JWTConfig struct {
	Secret            string `yaml:"secret"`
	ExpireHour        int    `yaml:"expire_hour"`
	RefreshExpireHour int    `yaml:"refresh_expire_hour"`
}

// RedisConfig enables the asynq delivery queue when Enabled is set.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// Concurrency is the number of delivery tasks a worker runs at once.
	Concurrency int `yaml:"concurrency"`
}

// MailConfig enables SMTP delivery of email notifications. When disabled,
// deliveries are only logged.
type MailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	UseTLS   bool   `yaml:"use_tls"`
}

type LogConfig struct {
	Level              string `yaml:"level"`
	AuditRetentionDays int    `yaml:"audit_retention_days"`
}

// SchedulerConfig drives the cron jobs. DigestCron should fire hourly; each
// run serves users whose digest_time falls in the current hour.
type SchedulerConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DueDateCron  string `yaml:"due_date_cron"`
	DigestCron   string `yaml:"digest_cron"`
	CleanupCron  string `yaml:"cleanup_cron"`
	ReminderDays []int  `yaml:"reminder_days"`
}

type GanttConfig struct {
	RenderWidth    int    `yaml:"render_width"`
	HolidayCountry string `yaml:"holiday_country"`
}

type AppConfig struct {
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
	BaseURL  string `yaml:"base_url"`
}

// Location resolves the configured timezone, falling back to UTC.
func (a AppConfig) Location() *time.Location {
	if a.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	cfg.overrideFromEnv()
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",

			AuthRateLimit: 5,
			AuthRateBurst: 10,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "campy.db",
		},
		JWT: JWTConfig{
			Secret:            "campy-secret-key-change-in-production",
			ExpireHour:        24,
			RefreshExpireHour: 720,
		},
		Redis: RedisConfig{
			Enabled:     false,
			Addr:        "localhost:6379",
			Concurrency: 10,
		},
		Mail: MailConfig{
			Enabled: false,
			Port:    587,
		},
		Log: LogConfig{Level: "info", AuditRetentionDays: 90},
		Scheduler: SchedulerConfig{
			Enabled:      true,
			DueDateCron:  "0 8 * * *",
			DigestCron:   "0 * * * *",
			CleanupCron:  "30 3 * * *",
			ReminderDays: []int{1, 3, 7},
		},
		Gantt: GanttConfig{
			RenderWidth: 1200,
		},
		App: AppConfig{
			Name:     "Campy",
			Timezone: "UTC",
			BaseURL:  "http://localhost:8080",
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.Server.AllowedOrigins = append(c.Server.AllowedOrigins, o)
			}
		}
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if width := os.Getenv("GANTT_RENDER_WIDTH"); width != "" {
		if px, err := strconv.Atoi(width); err == nil && px > 0 {
			c.Gantt.RenderWidth = px
		}
	}
	if country := os.Getenv("HOLIDAY_COUNTRY"); country != "" {
		c.Gantt.HolidayCountry = strings.ToUpper(country)
	}
	if tz := os.Getenv("APP_TIMEZONE"); tz != "" {
		c.App.Timezone = tz
	}
	if base := os.Getenv("APP_BASE_URL"); base != "" {
		c.App.BaseURL = strings.TrimSuffix(base, "/")
	}
	// redis://:password@host:port/db
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
}

func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	c.Redis.Addr = url
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0644)
}
