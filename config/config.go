package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Observ    ObservabilityConfig
	Generator GeneratorConfig
}

type ServerConfig struct {
	Env string
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Database     string
	User         string
	Password     string
	Schema       string
	SSLMode      string
	SalesTable   string
	ReturnsTable string
}

// URL renders the connection settings as a lib/pq connection URL
func (d DatabaseConfig) URL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%s", d.Host, d.Port),
		Path:   "/" + d.Database,
	}
	q := url.Values{}
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// RedisConfig is optional; an empty Addr disables table leases
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	LockTTLSeconds int
}

// LockTTL returns the lease TTL
func (r RedisConfig) LockTTL() time.Duration {
	return time.Duration(r.LockTTLSeconds) * time.Second
}

// ObservabilityConfig leaves an exporter off when its setting is empty
type ObservabilityConfig struct {
	JaegerEndpoint string
	MetricsPort    string
}

type GeneratorConfig struct {
	BatchSize             int
	IntervalSeconds       float64
	TotalBatches          int
	UpdateDeleteFrequency int
	SeedLimit             int
}

// Interval returns the pause between batches
func (g GeneratorConfig) Interval() time.Duration {
	return time.Duration(g.IntervalSeconds * float64(time.Second))
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	lockTTL, _ := strconv.Atoi(getEnv("LOCK_TTL_SECONDS", "30"))
	batchSize, _ := strconv.Atoi(getEnv("DATA_GENERATOR_BATCH_SIZE", "200"))
	interval, _ := strconv.ParseFloat(getEnv("DATA_GENERATOR_INTERVAL", "2.0"), 64)
	totalBatches, _ := strconv.Atoi(getEnv("DATA_GENERATOR_TOTAL_BATCHES", "50"))
	frequency, _ := strconv.Atoi(getEnv("DATA_GENERATOR_UPDATE_DELETE_FREQUENCY", "800"))
	seedLimit, _ := strconv.Atoi(getEnv("DATA_GENERATOR_SEED_LIMIT", "10000"))

	cfg := &Config{
		Server: ServerConfig{
			Env: getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:         getEnv("CLOUDBERRY_HOST", "127.0.0.1"),
			Port:         getEnv("CLOUDBERRY_PORT", "15432"),
			Database:     getEnv("CLOUDBERRY_DATABASE", "gpadmin"),
			User:         getEnv("CLOUDBERRY_USER", "gpadmin"),
			Password:     getEnv("CLOUDBERRY_PASSWORD", ""),
			Schema:       getEnv("CLOUDBERRY_SCHEMA", "tpcds"),
			SSLMode:      getEnv("CLOUDBERRY_SSLMODE", "disable"),
			SalesTable:   getEnv("SALES_TABLE", "store_sales_heap"),
			ReturnsTable: getEnv("RETURNS_TABLE", "store_returns_heap"),
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", ""),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             redisDB,
			LockTTLSeconds: lockTTL,
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", ""),
			MetricsPort:    getEnv("METRICS_PORT", ""),
		},
		Generator: GeneratorConfig{
			BatchSize:             batchSize,
			IntervalSeconds:       interval,
			TotalBatches:          totalBatches,
			UpdateDeleteFrequency: frequency,
			SeedLimit:             seedLimit,
		},
	}

	log.Printf("Config loaded: env=%s, host=%s:%s, database=%s, schema=%s",
		cfg.Server.Env, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database, cfg.Database.Schema)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
