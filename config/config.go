package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Schedule ScheduleConfig
	Security SecurityConfig
	Chat     ChatConfig
	Metrics  MetricsConfig
}

type AppConfig struct {
	Port        string
	Env         string
	LogLevel    string
	CORSOrigins []string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	TimeZone string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// ScheduleConfig describes the bookable day and how creation requests are planned.
type ScheduleConfig struct {
	OpenTime       string
	CloseTime      string
	StepMinutes    int
	Durations      []int
	StrictDuration bool
	IDRetries      int
	LockTTL        time.Duration
}

type SecurityConfig struct {
	EncryptionKey string // hex encoded, 32 bytes
}

type ChatConfig struct {
	MessageTTL          time.Duration
	SessionTTL          time.Duration
	BreakerMaxFailures  uint32
	BreakerOpenTimeout  time.Duration
	BreakerHalfOpenReqs uint32
}

type MetricsConfig struct {
	Namespace string
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	setDefaults()

	if _, err := os.Stat(".env"); err == nil {
		if err := viper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	accessExpiry, err := time.ParseDuration(viper.GetString("JWT_ACCESS_EXPIRY"))
	if err != nil {
		accessExpiry = 15 * time.Minute
	}

	refreshExpiry, err := time.ParseDuration(viper.GetString("JWT_REFRESH_EXPIRY"))
	if err != nil {
		refreshExpiry = 7 * 24 * time.Hour
	}

	durations, err := parseDurations(viper.GetString("SCHEDULE_DURATIONS"))
	if err != nil {
		return nil, err
	}

	config := &Config{
		App: AppConfig{
			Port:        viper.GetString("APP_PORT"),
			Env:         viper.GetString("APP_ENV"),
			LogLevel:    viper.GetString("LOG_LEVEL"),
			CORSOrigins: strings.Split(viper.GetString("CORS_ALLOWED_ORIGINS"), ","),
		},
		DB: DBConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
			TimeZone: viper.GetString("DB_TIMEZONE"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			AccessExpiry:  accessExpiry,
			RefreshExpiry: refreshExpiry,
		},
		Schedule: ScheduleConfig{
			OpenTime:       viper.GetString("SCHEDULE_OPEN"),
			CloseTime:      viper.GetString("SCHEDULE_CLOSE"),
			StepMinutes:    viper.GetInt("SCHEDULE_STEP_MINUTES"),
			Durations:      durations,
			StrictDuration: viper.GetBool("SCHEDULE_STRICT_DURATION"),
			IDRetries:      viper.GetInt("APPOINTMENT_ID_RETRIES"),
			LockTTL:        viper.GetDuration("APPOINTMENT_LOCK_TTL"),
		},
		Security: SecurityConfig{
			EncryptionKey: viper.GetString("ENCRYPTION_KEY"),
		},
		Chat: ChatConfig{
			MessageTTL:          viper.GetDuration("CHAT_MESSAGE_TTL"),
			SessionTTL:          viper.GetDuration("CHAT_SESSION_TTL"),
			BreakerMaxFailures:  viper.GetUint32("CHAT_BREAKER_MAX_FAILURES"),
			BreakerOpenTimeout:  viper.GetDuration("CHAT_BREAKER_OPEN_TIMEOUT"),
			BreakerHalfOpenReqs: viper.GetUint32("CHAT_BREAKER_HALF_OPEN_REQUESTS"),
		},
		Metrics: MetricsConfig{
			Namespace: viper.GetString("METRICS_NAMESPACE"),
		},
	}

	return config, nil
}

func setDefaults() {
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	viper.SetDefault("DB_TIMEZONE", "Europe/Bucharest")
	viper.SetDefault("SCHEDULE_OPEN", "09:00")
	viper.SetDefault("SCHEDULE_CLOSE", "17:00")
	viper.SetDefault("SCHEDULE_STEP_MINUTES", 30)
	viper.SetDefault("SCHEDULE_DURATIONS", "30,60,90,120")
	viper.SetDefault("SCHEDULE_STRICT_DURATION", false)
	viper.SetDefault("APPOINTMENT_ID_RETRIES", 5)
	viper.SetDefault("APPOINTMENT_LOCK_TTL", "5s")
	viper.SetDefault("CHAT_MESSAGE_TTL", "720h")
	viper.SetDefault("CHAT_SESSION_TTL", "24h")
	viper.SetDefault("CHAT_BREAKER_MAX_FAILURES", 5)
	viper.SetDefault("CHAT_BREAKER_OPEN_TIMEOUT", "30s")
	viper.SetDefault("CHAT_BREAKER_HALF_OPEN_REQUESTS", 1)
	viper.SetDefault("METRICS_NAMESPACE", "clinic_scheduler")
}

// parseDurations reads a comma separated list of minutes, e.g. "30,60,90,120".
func parseDurations(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	durations := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid SCHEDULE_DURATIONS entry %q", p)
		}
		durations = append(durations, n)
	}
	if len(durations) == 0 {
		return nil, fmt.Errorf("SCHEDULE_DURATIONS must list at least one duration")
	}
	return durations, nil
}
