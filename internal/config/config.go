package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"leave-expiry/internal/expiration"
	"leave-expiry/internal/reconcile"
	"leave-expiry/internal/shared/connection"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv string
	Port   string

	LeaveStoreURL      string
	CheckInterval      time.Duration
	RefreshInterval    time.Duration
	EmergencyWindow    time.Duration
	CutoffHour         int
	FullDayRuleList    expiration.FullDayRule
	FullDayRuleSummary expiration.FullDayRule
	Location           *time.Location

	SessionOwnerID    string
	SessionRole       string
	ReconcileOwnerIDs []string

	RedisAddr    string
	InflightTTL  time.Duration
	KafkaBroker  string
	KafkaGroupID string

	DB connection.DBConfig

	StoreRateLimit float64
	StoreRateBurst int
	APIRateLimit   float64
	APIRateBurst   int
}

// Load reads .env when present and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) (Config, error) {
	p := parser{getenv: getenv}

	cfg := Config{
		AppEnv:        p.str("APP_ENV", "development"),
		Port:          p.str("PORT", "3000"),
		LeaveStoreURL: p.str("LEAVE_STORE_URL", "http://localhost:3000"),

		CheckInterval:   p.duration("CHECK_INTERVAL", reconcile.DefaultCheckInterval),
		RefreshInterval: p.duration("REFRESH_INTERVAL", reconcile.DefaultRefreshInterval),
		EmergencyWindow: p.duration("EMERGENCY_WINDOW", expiration.DefaultEmergencyWindow),
		CutoffHour:      p.integer("FULLDAY_CUTOFF_HOUR", expiration.DefaultCutoffHour),

		FullDayRuleList:    p.rule("FULLDAY_RULE_LIST", expiration.FullDayDatePassed),
		FullDayRuleSummary: p.rule("FULLDAY_RULE_SUMMARY", expiration.FullDayMorningCutoff),
		Location:           p.location("TIMEZONE"),

		SessionOwnerID:    p.str("SESSION_OWNER_ID", ""),
		SessionRole:       p.str("SESSION_ROLE", "admin"),
		ReconcileOwnerIDs: p.list("RECONCILE_OWNER_IDS"),

		RedisAddr:    p.str("REDIS_ADDR", ""),
		InflightTTL:  p.duration("INFLIGHT_TTL", 30*time.Second),
		KafkaBroker:  p.str("KAFKA_BROKER", ""),
		KafkaGroupID: p.str("KAFKA_GROUP_ID", "leave-expiry-worker"),

		DB: connection.DBConfig{
			Driver:    p.str("DB_DRIVER", "postgres"),
			Host:      p.str("DB_HOST", "localhost"),
			User:      p.str("DB_USER", ""),
			Password:  p.str("DB_PASSWORD", ""),
			Name:      p.str("DB_NAME", ""),
			Port:      p.str("DB_PORT", "5432"),
			SSLMode:   p.str("DB_SSLMODE", "disable"),
			SQLiteDSN: p.str("SQLITE_DSN", "leave.db"),
		},

		StoreRateLimit: p.float("STORE_RATE_LIMIT", 20),
		StoreRateBurst: p.integer("STORE_RATE_BURST", 40),
		APIRateLimit:   p.float("API_RATE_LIMIT", 50),
		APIRateBurst:   p.integer("API_RATE_BURST", 100),
	}

	if p.err != nil {
		return Config{}, p.err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.CutoffHour < 0 || c.CutoffHour > 23 {
		return fmt.Errorf("FULLDAY_CUTOFF_HOUR must be between 0 and 23, got %d", c.CutoffHour)
	}
	if c.CheckInterval <= 0 || c.RefreshInterval <= 0 {
		return fmt.Errorf("CHECK_INTERVAL and REFRESH_INTERVAL must be positive")
	}
	if c.DB.Driver != "postgres" && c.DB.Driver != "sqlite" {
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DB.Driver)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Policy builds the expiration policy for one consumer context.
func (c Config) Policy(rule expiration.FullDayRule) expiration.Policy {
	return expiration.Policy{
		Location:        c.Location,
		EmergencyWindow: c.EmergencyWindow,
		CutoffHour:      c.CutoffHour,
		FullDayRule:     rule,
	}
}

// parser records the first malformed variable and keeps the default for it.
type parser struct {
	getenv func(string) string
	err    error
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s=%q: %w", key, value, err)
	}
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}

func (p *parser) integer(key string, def int) int {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return f
}

func (p *parser) rule(key string, def expiration.FullDayRule) expiration.FullDayRule {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	r, err := expiration.ParseFullDayRule(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return r
}

func (p *parser) location(key string) *time.Location {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(v)
	if err != nil {
		p.fail(key, v, err)
		return time.Local
	}
	return loc
}

func (p *parser) list(key string) []string {
	var out []string
	for _, part := range strings.Split(p.getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
