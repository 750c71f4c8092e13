package models

import "time"

// Config represents the application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Ledger     LedgerConfig
	Signer     SignerConfig
	Aggregator AggregatorConfig
	Minter     MinterConfig
	Treasury   TreasuryConfig
	Auth       AuthConfig
	Upstream   UpstreamConfig
	Reconciler ReconcilerConfig
}

// ServerConfig holds the HTTP boundary settings
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	RateLimit       float64
	RateBurst       int
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// LedgerConfig holds the chain RPC endpoint and confirmation policy
type LedgerConfig struct {
	RPCURL              string
	ConfirmInterval     time.Duration
	ConfirmTimeout      time.Duration
	MintsFile           string
	SearchHistoryOnPoll bool
}

// SignerConfig holds the custodial signer endpoint
type SignerConfig struct {
	SignURL string
}

// AggregatorConfig holds the swap order API endpoints
type AggregatorConfig struct {
	OrderURL   string
	ExecuteURL string
	APIKey     string
	QuoteMint  string
}

// MinterConfig holds the token minter service settings
type MinterConfig struct {
	BaseURL string
	APIKey  string
}

// TreasuryConfig holds the direct-transfer destination
type TreasuryConfig struct {
	Address         string
	DefaultLamports uint64
}

// AuthConfig holds credential verification settings
type AuthConfig struct {
	JWTSecret    string
	Issuer       string
	Audience     string
	AddressClaim string
	Leeway       time.Duration
}

// UpstreamConfig holds shared HTTP client settings for all upstream calls
type UpstreamConfig struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// ReconcilerConfig holds the checkpoint reconciler settings
type ReconcilerConfig struct {
	Enabled         bool
	PollingInterval time.Duration
	MaxAge          time.Duration
	BatchSize       int
}
