package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

func getEnv(key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	return value
}

func loadEnvString(key string, result *string) {
	s, ok := os.LookupEnv(key)

	if !ok {
		return
	}
	*result = s
}

func loadEnvUint(key string, result *uint) {
	s, ok := os.LookupEnv(key)

	if !ok {
		return
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return
	}
	*result = uint(n)
}

func loadEnvInt(key string, result *int) {
	s, ok := os.LookupEnv(key)

	if !ok {
		return
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return
	}
	*result = n
}

func loadEnvDuration(key string, result *time.Duration) {
	s, ok := os.LookupEnv(key)

	if !ok {
		return
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return
	}
	*result = d
}

/* Configuration */

/* PgSQL Configuration */
type pgSqlConfig struct {
	Host     string `json:"host"`
	Port     uint   `json:"port"`
	Database string `json:"database"`
	SslMode  string `json:"ssl_mode"`
	User     string `json:"user"`
	Password string `json:"password"`
}

func (p pgSqlConfig) ConnStr() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s", p.Host, p.Port, p.User, p.Password, p.Database, p.SslMode)
}

func defaultPgSql() pgSqlConfig {
	return pgSqlConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "job_alerts",
		User:     "",
		Password: "",
		SslMode:  "disable",
	}
}

func (p *pgSqlConfig) loadFromEnv() {
	loadEnvString("POSTGRES_HOST", &p.Host)
	loadEnvUint("POSTGRES_PORT", &p.Port)
	loadEnvString("POSTGRES_DB_NAME", &p.Database)
	loadEnvString("POSTGRES_SSLMODE", &p.SslMode)
	loadEnvString("POSTGRES_USERNAME", &p.User)
	loadEnvString("POSTGRES_PASSWORD", &p.Password)
}

/* Listen Configuration */

type listenConfig struct {
	Host string `json:"host"`
	Port uint   `json:"port"`
}

func (l listenConfig) Addr() string {
	return fmt.Sprintf("%s:%d", l.Host, l.Port)
}

func defaultListenConfig() listenConfig {
	return listenConfig{
		Host: "127.0.0.1",
		Port: 8080,
	}
}

func (l *listenConfig) loadFromEnv() {
	loadEnvString("LISTEN_HOST", &l.Host)
	loadEnvUint("LISTEN_PORT", &l.Port)
}

type natsConfig struct {
	Host     string
	Port     uint
	Username string
	Password string
}

func (c *natsConfig) loadFromEnv() {
	c.Host = getEnv("NATS_HOST", "localhost")

	if portStr := getEnv("NATS_PORT", "4222"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			c.Port = uint(port)
		} else {
			c.Port = 4222
		}
	} else {
		c.Port = 4222
	}

	c.Username = getEnv("NATS_USER", "")
	c.Password = getEnv("NATS_PASSWORD", "")
}

func (c *natsConfig) URL() string {
	return fmt.Sprintf("nats://%s:%d", c.Host, c.Port)
}

func defaultNatsConfig() natsConfig {
	return natsConfig{
		Host: "localhost",
		Port: 4222,
	}
}

type redisConfig struct {
	Host     string `json:"host"`
	Port     uint   `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

func (r *redisConfig) loadFromEnv() {
	loadEnvString("REDIS_HOST", &r.Host)
	loadEnvUint("REDIS_PORT", &r.Port)
	loadEnvString("REDIS_PASSWORD", &r.Password)
	loadEnvInt("REDIS_DB", &r.DB)
}

func defaultRedisConfig() redisConfig {
	return redisConfig{
		Host:     "localhost",
		Port:     6379,
		Password: "",
		DB:       0,
	}
}

type GCSConfig struct {
	ProjectID       string
	CredentialsFile string
	Bucket          string
}

func (g *GCSConfig) loadFromEnv() {
	g.ProjectID = getEnv("GCS_PROJECT_ID", "")
	g.CredentialsFile = getEnv("GCS_CREDENTIALS_FILE", "")
	g.Bucket = getEnv("GCS_SNAPSHOT_BUCKET", "")
}

func defaultGcsConfig() GCSConfig {
	return GCSConfig{}
}

// ScrapeConfig bounds a scrape run and the notification pacing.
type ScrapeConfig struct {
	// NotifyBatchSize is the number of jobs per webhook message.
	NotifyBatchSize int
	// NotifyBatchDelay is the pause between webhook messages.
	NotifyBatchDelay time.Duration
	// NavigationTimeout bounds a single page navigation.
	NavigationTimeout time.Duration
	// RequestTimeout bounds a single company API request.
	RequestTimeout time.Duration
	// RunDeadline bounds a whole tenant run.
	RunDeadline time.Duration
	// LockTTL is the expiry on the per-tenant run lock.
	LockTTL time.Duration
	// CronSchedule, when set, fires a scrape for every tenant on the given
	// cron expression. Empty disables the built-in scheduler.
	CronSchedule string
	UserAgent    string
}

func defaultScrapeConfig() ScrapeConfig {
	return ScrapeConfig{
		NotifyBatchSize:   10,
		NotifyBatchDelay:  2 * time.Second,
		NavigationTimeout: 45 * time.Second,
		RequestTimeout:    30 * time.Second,
		RunDeadline:       15 * time.Minute,
		LockTTL:           20 * time.Minute,
		UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

func (s *ScrapeConfig) loadFromEnv() {
	loadEnvInt("SCRAPE_NOTIFY_BATCH_SIZE", &s.NotifyBatchSize)
	loadEnvDuration("SCRAPE_NOTIFY_BATCH_DELAY", &s.NotifyBatchDelay)
	loadEnvDuration("SCRAPE_NAVIGATION_TIMEOUT", &s.NavigationTimeout)
	loadEnvDuration("SCRAPE_REQUEST_TIMEOUT", &s.RequestTimeout)
	loadEnvDuration("SCRAPE_RUN_DEADLINE", &s.RunDeadline)
	loadEnvDuration("SCRAPE_LOCK_TTL", &s.LockTTL)
	loadEnvString("SCRAPE_CRON_SCHEDULE", &s.CronSchedule)
	loadEnvString("SCRAPE_USER_AGENT", &s.UserAgent)
}

type Config struct {
	Listen listenConfig
	PgSql  pgSqlConfig
	Nats   natsConfig
	Redis  redisConfig
	GCS    GCSConfig
	Scrape ScrapeConfig
}

func (c *Config) LoadFromEnv() {
	c.Listen.loadFromEnv()
	c.PgSql.loadFromEnv()
	c.Nats.loadFromEnv()
	c.Redis.loadFromEnv()
	c.GCS.loadFromEnv()
	c.Scrape.loadFromEnv()
}

func DefaultConfig() Config {
	return Config{
		Listen: defaultListenConfig(),
		PgSql:  defaultPgSql(),
		Nats:   defaultNatsConfig(),
		Redis:  defaultRedisConfig(),
		GCS:    defaultGcsConfig(),
		Scrape: defaultScrapeConfig(),
	}
}
