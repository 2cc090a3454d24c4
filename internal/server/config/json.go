package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/humanist/internal/flagx"
	"github.com/dmitrijs2005/humanist/internal/timex"
)

// JsonConfig is the on-disk shape of the optional JSON config file. Fields
// left out of the file keep their current value. Durations accept "30s" or
// integer nanoseconds.
type JsonConfig struct {
	HTTPAddr               *string         `json:"http_addr"`
	GRPCAddr               *string         `json:"grpc_addr"`
	DatabaseURL            *string         `json:"database_url"`
	DBSSL                  *string         `json:"db_ssl"`
	SecretKey              *string         `json:"secret_key"`
	Algorithm              *string         `json:"algorithm"`
	AccessTokenTTL         *timex.Duration `json:"access_token_ttl"`
	AuthorEmail            *string         `json:"author_email"`
	DBPoolSize             *int            `json:"db_pool_size"`
	DBMaxOverflow          *int            `json:"db_max_overflow"`
	DBPoolTimeout          *timex.Duration `json:"db_pool_timeout"`
	DBConnectMaxAttempts   *int            `json:"db_connect_max_attempts"`
	DBConnectBaseDelay     *timex.Duration `json:"db_connect_base_delay"`
	DBConnectBackoffFactor *float64        `json:"db_connect_backoff_factor"`
	BcryptCost             *int            `json:"bcrypt_cost"`
	HashWorkers            *int            `json:"hash_workers"`
	CORSOrigins            []string        `json:"cors_origins"`
	LogLevel               *string         `json:"log_level"`
}

// parseJson loads configuration values from the JSON file named by -c or
// -config. Without the flag nothing is loaded. An unreadable file or
// invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.DatabaseURL, c.DatabaseURL)
	setString(&config.DBSSL, c.DBSSL)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.Algorithm, c.Algorithm)
	setString(&config.AuthorEmail, c.AuthorEmail)
	setString(&config.LogLevel, c.LogLevel)

	if c.AccessTokenTTL != nil {
		config.AccessTokenTTL = c.AccessTokenTTL.Duration
	}
	if c.DBPoolTimeout != nil {
		config.DBPoolTimeout = c.DBPoolTimeout.Duration
	}
	if c.DBConnectBaseDelay != nil {
		config.DBConnectBaseDelay = c.DBConnectBaseDelay.Duration
	}

	setInt(&config.DBPoolSize, c.DBPoolSize)
	setInt(&config.DBMaxOverflow, c.DBMaxOverflow)
	setInt(&config.DBConnectMaxAttempts, c.DBConnectMaxAttempts)
	setInt(&config.BcryptCost, c.BcryptCost)
	setInt(&config.HashWorkers, c.HashWorkers)

	if c.DBConnectBackoffFactor != nil {
		config.DBConnectBackoffFactor = *c.DBConnectBackoffFactor
	}
	if c.CORSOrigins != nil {
		config.CORSOrigins = c.CORSOrigins
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
