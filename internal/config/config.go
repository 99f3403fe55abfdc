package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port                      string
	AllowedOrigin             string
	DatabaseURL               string
	RedisAddr                 string
	RedisPassword             string
	RedisDB                   int
	AuthSecret                string
	AccessTokenTTLMinutes     int
	ManagerPIN                string
	DefaultCreditLimitLaari   int64
	LoyaltyEnabled            bool
	LoyaltyPointsPerRufiyaa   int
	ForecastLookbackDays      int
	ForecastThresholdDays     float64
	ForecastTTLSeconds        int
	StatementOverdueGraceDays int
	StatementDueDay           int
}

// Load reads configuration from the environment, loading a .env file first
// when one is present. Malformed numeric values fall back to defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("[config] could not load .env file")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL := intEnv("ACCESS_TOKEN_TTL_MINUTES", 480, 1)
	creditLimit := int64(intEnv("DEFAULT_CREDIT_LIMIT_LAARI", 0, 0))
	pointsPerRufiyaa := intEnv("LOYALTY_POINTS_PER_RUFIYAA", 1, 1)
	lookback := intEnv("FORECAST_LOOKBACK_DAYS", 14, 1)
	forecastTTL := intEnv("FORECAST_TTL_SECONDS", 60, 1)
	graceDays := intEnv("STATEMENT_OVERDUE_GRACE_DAYS", 7, 1)
	dueDay := intEnv("STATEMENT_DUE_DAY", 10, 1)
	if dueDay > 28 {
		dueDay = 28
	}

	threshold, err := strconv.ParseFloat(getEnv("FORECAST_THRESHOLD_DAYS", "7"), 64)
	if err != nil || threshold <= 0 {
		threshold = 7
	}

	cfg := Config{
		Port:                      getEnv("PORT", "8080"),
		AllowedOrigin:             getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:               os.Getenv("DATABASE_URL"),
		RedisAddr:                 os.Getenv("REDIS_ADDR"),
		RedisPassword:             os.Getenv("REDIS_PASSWORD"),
		RedisDB:                   redisDB,
		AuthSecret:                strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes:     tokenTTL,
		ManagerPIN:                strings.TrimSpace(os.Getenv("MANAGER_PIN")),
		DefaultCreditLimitLaari:   creditLimit,
		LoyaltyEnabled:            boolEnv("LOYALTY_ENABLED", true),
		LoyaltyPointsPerRufiyaa:   pointsPerRufiyaa,
		ForecastLookbackDays:      lookback,
		ForecastThresholdDays:     threshold,
		ForecastTTLSeconds:        forecastTTL,
		StatementOverdueGraceDays: graceDays,
		StatementDueDay:           dueDay,
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func intEnv(key string, fallback int, minVal int) int {
	val, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || val < minVal {
		return fallback
	}
	return val
}

func boolEnv(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
