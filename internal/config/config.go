/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/The-x-35/vibegame-sub000/internal/models"
)

// WrappedSolMint is the quote side of buys and sells unless overridden.
const WrappedSolMint = "So11111111111111111111111111111111111111112"

func Load() (*models.Config, error) {
	readTimeout, err := getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	// Confirmation waits happen inside the request.
	writeTimeout, err := getEnvDuration("SERVER_WRITE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	confirmInterval, err := getEnvDuration("LEDGER_CONFIRM_INTERVAL", 2*time.Second)
	if err != nil {
		return nil, err
	}

	confirmTimeout, err := getEnvDuration("LEDGER_CONFIRM_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}

	requestTimeout, err := getEnvDuration("UPSTREAM_REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	leeway, err := getEnvDuration("AUTH_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, err
	}

	reconcilerInterval, err := getEnvDuration("RECONCILER_POLLING_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}

	reconcilerMaxAge, err := getEnvDuration("RECONCILER_MAX_AGE", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	rateLimit, err := getEnvFloat("SERVER_RATE_LIMIT", 2)
	if err != nil {
		return nil, err
	}

	defaultLamports, err := getEnvUint64("TREASURY_DEFAULT_LAMPORTS", 0)
	if err != nil {
		return nil, err
	}

	cfg := &models.Config{
		Server: models.ServerConfig{
			Addr:            getEnvString("SERVER_ADDR", ":8080"),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			AllowedOrigins:  getEnvList("SERVER_ALLOWED_ORIGINS", []string{"*"}),
			RateLimit:       rateLimit,
			RateBurst:       getEnvInt("SERVER_RATE_BURST", 5),
		},
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "pipeline.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Ledger: models.LedgerConfig{
			RPCURL:              getEnvString("SOLANA_RPC_URL", ""),
			ConfirmInterval:     confirmInterval,
			ConfirmTimeout:      confirmTimeout,
			MintsFile:           getEnvString("MINTS_FILE", "mints.yaml"),
			SearchHistoryOnPoll: getEnvBool("LEDGER_SEARCH_HISTORY", true),
		},
		Signer: models.SignerConfig{
			SignURL: getEnvString("SIGNER_URL", ""),
		},
		Aggregator: models.AggregatorConfig{
			OrderURL:   getEnvString("AGGREGATOR_ORDER_URL", "https://lite-api.jup.ag/ultra/v1/order"),
			ExecuteURL: getEnvString("AGGREGATOR_EXECUTE_URL", "https://lite-api.jup.ag/ultra/v1/execute"),
			APIKey:     getEnvString("AGGREGATOR_API_KEY", ""),
			QuoteMint:  getEnvString("AGGREGATOR_QUOTE_MINT", WrappedSolMint),
		},
		Minter: models.MinterConfig{
			BaseURL: getEnvString("MINTER_URL", ""),
			APIKey:  getEnvString("MINTER_API_KEY", ""),
		},
		Treasury: models.TreasuryConfig{
			Address:         getEnvString("TREASURY_ADDRESS", ""),
			DefaultLamports: defaultLamports,
		},
		Auth: models.AuthConfig{
			JWTSecret:    getEnvString("JWT_SECRET", ""),
			Issuer:       getEnvString("JWT_ISSUER", ""),
			Audience:     getEnvString("JWT_AUDIENCE", ""),
			AddressClaim: getEnvString("JWT_ADDRESS_CLAIM", "walletAddress"),
			Leeway:       leeway,
		},
		Upstream: models.UpstreamConfig{
			RequestTimeout: requestTimeout,
			MaxBodyBytes:   int64(getEnvInt("UPSTREAM_MAX_BODY_BYTES", 1<<20)),
		},
		Reconciler: models.ReconcilerConfig{
			Enabled:         getEnvBool("RECONCILER_ENABLED", true),
			PollingInterval: reconcilerInterval,
			MaxAge:          reconcilerMaxAge,
			BatchSize:       getEnvInt("RECONCILER_BATCH_SIZE", 50),
		},
	}

	return cfg, nil
}

// Validate checks the settings the pipeline cannot run without. CLI tools
// that only read local state skip it.
func Validate(cfg *models.Config) error {
	var missing []string
	if cfg.Ledger.RPCURL == "" {
		missing = append(missing, "SOLANA_RPC_URL")
	}
	if cfg.Signer.SignURL == "" {
		missing = append(missing, "SIGNER_URL")
	}
	if cfg.Minter.BaseURL == "" {
		missing = append(missing, "MINTER_URL")
	}
	if cfg.Treasury.Address == "" {
		missing = append(missing, "TREASURY_ADDRESS")
	}
	if cfg.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if cfg.Ledger.ConfirmInterval <= 0 || cfg.Ledger.ConfirmTimeout < cfg.Ledger.ConfirmInterval {
		return fmt.Errorf("confirm timeout %v must be at least the confirm interval %v", cfg.Ledger.ConfirmTimeout, cfg.Ledger.ConfirmInterval)
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number for %s: %q (%w)", key, value, err)
		}
		return f, nil
	}
	return defaultValue, nil
}

func getEnvUint64(key string, defaultValue uint64) (uint64, error) {
	if value := os.Getenv(key); value != "" {
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %q (%w)", key, value, err)
		}
		return n, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
