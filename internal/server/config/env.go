package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/humanist/internal/flagx"
	"github.com/joho/godotenv"
)

// defaultEnvFile is picked up from the working directory when present.
const defaultEnvFile = ".env"

// envConfig lists the recognised environment variables. Unset variables
// leave the prefilled value alone.
type envConfig struct {
	HTTPAddr    string `env:"HTTP_ADDR"`
	GRPCAddr    string `env:"GRPC_ADDR"`
	DatabaseURL string `env:"DATABASE_URL"`
	DBSSL       string `env:"DB_SSL"`
	DBSSLMode   string `env:"DB_SSLMODE"`

	SecretKey          string `env:"SECRET_KEY"`
	Algorithm          string `env:"ALGORITHM"`
	AccessTokenMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES"`
	AuthorEmail        string `env:"AUTHOR_EMAIL"`

	DBPoolSize             int           `env:"DB_POOL_SIZE"`
	DBMaxOverflow          int           `env:"DB_MAX_OVERFLOW"`
	DBPoolTimeout          time.Duration `env:"DB_POOL_TIMEOUT"`
	DBConnectMaxAttempts   int           `env:"DB_CONNECT_MAX_ATTEMPTS"`
	DBConnectBaseDelay     time.Duration `env:"DB_CONNECT_BASE_DELAY"`
	DBConnectBackoffFactor float64       `env:"DB_CONNECT_BACKOFF_FACTOR"`

	BcryptCost  int `env:"BCRYPT_COST"`
	HashWorkers int `env:"HASH_WORKERS"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`
	LogLevel    string   `env:"LOG_LEVEL"`
}

// parseEnv overlays environment variables onto config. A .env file (or the
// one named by -env-file) is loaded first; variables already present in the
// process environment win over the file. Parse failures panic.
func parseEnv(config *Config) {
	loadEnvFile()

	e := envConfig{
		HTTPAddr:               config.HTTPAddr,
		GRPCAddr:               config.GRPCAddr,
		DatabaseURL:            config.DatabaseURL,
		DBSSL:                  config.DBSSL,
		SecretKey:              config.SecretKey,
		Algorithm:              config.Algorithm,
		AccessTokenMinutes:     int(config.AccessTokenTTL / time.Minute),
		AuthorEmail:            config.AuthorEmail,
		DBPoolSize:             config.DBPoolSize,
		DBMaxOverflow:          config.DBMaxOverflow,
		DBPoolTimeout:          config.DBPoolTimeout,
		DBConnectMaxAttempts:   config.DBConnectMaxAttempts,
		DBConnectBaseDelay:     config.DBConnectBaseDelay,
		DBConnectBackoffFactor: config.DBConnectBackoffFactor,
		BcryptCost:             config.BcryptCost,
		HashWorkers:            config.HashWorkers,
		CORSOrigins:            config.CORSOrigins,
		LogLevel:               config.LogLevel,
	}

	if err := env.Parse(&e); err != nil {
		panic(err)
	}

	config.HTTPAddr = e.HTTPAddr
	config.GRPCAddr = e.GRPCAddr
	config.DatabaseURL = e.DatabaseURL
	config.DBSSL = e.DBSSL
	if _, ok := os.LookupEnv("DB_SSL"); !ok && e.DBSSLMode != "" {
		config.DBSSL = e.DBSSLMode
	}
	config.SecretKey = e.SecretKey
	config.Algorithm = e.Algorithm
	if _, ok := os.LookupEnv("ACCESS_TOKEN_EXPIRE_MINUTES"); ok {
		config.AccessTokenTTL = time.Duration(e.AccessTokenMinutes) * time.Minute
	}
	config.AuthorEmail = e.AuthorEmail
	config.DBPoolSize = e.DBPoolSize
	config.DBMaxOverflow = e.DBMaxOverflow
	config.DBPoolTimeout = e.DBPoolTimeout
	config.DBConnectMaxAttempts = e.DBConnectMaxAttempts
	config.DBConnectBaseDelay = e.DBConnectBaseDelay
	config.DBConnectBackoffFactor = e.DBConnectBackoffFactor
	config.BcryptCost = e.BcryptCost
	config.HashWorkers = e.HashWorkers
	config.CORSOrigins = e.CORSOrigins
	config.LogLevel = e.LogLevel
}

func loadEnvFile() {
	path := flagx.EnvFileFlags()
	if path == "" {
		if _, err := os.Stat(defaultEnvFile); errors.Is(err, fs.ErrNotExist) {
			return
		}
		path = defaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		panic(err)
	}
}
