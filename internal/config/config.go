// Package config loads and validates anticycled's process configuration
// from environment variables and the cache-budget CLI argument, in the
// fail-fast style the rest of the engine expects at startup.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
)

// Config is the fully resolved process configuration for cmd/anticycled.
type Config struct {
	RPCUser string
	RPCPass string
	RPCHost string

	ZMQEndpoint string

	FeeOracle string // "rpc" or "http"

	DatabaseURL string // optional; empty disables internal/audit

	Port string

	AllowPackages bool

	CacheByteBudget uint64
}

// Load resolves Config from the environment plus the single positional
// cache_byte_budget argument (megabytes). It exits the process via
// log.Fatalf on any missing required variable or missing or malformed argument,
// matching the teacher's requireEnv fail-fast convention.
func Load(args []string) Config {
	cfg := Config{
		RPCUser:       requireEnv("RPCUSER"),
		RPCPass:       requireEnv("RPCPASS"),
		RPCHost:       getEnvOrDefault("BTC_RPC_HOST", "127.0.0.1:8332"),
		ZMQEndpoint:   getEnvOrDefault("ZMQ_ENDPOINT", "tcp://localhost:28332"),
		FeeOracle:     getEnvOrDefault("FEE_ORACLE", "rpc"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Port:          getEnvOrDefault("PORT", "8089"),
		AllowPackages: getEnvOrDefault("ALLOW_PACKAGES", "false") == "true",
	}

	if len(args) == 0 {
		log.Fatalf("FATAL: missing required cache_byte_budget argument (megabytes)")
	}
	budgetMB, err := strconv.Atoi(args[0])
	if err != nil {
		log.Fatalf("FATAL: cache_byte_budget argument %q is not an integer number of megabytes", args[0])
	}
	if budgetMB <= 0 {
		log.Fatalf("FATAL: cache_byte_budget must be positive, got %d", budgetMB)
	}
	cfg.CacheByteBudget = uint64(budgetMB) * 1_000_000

	// "mempoolspace" is accepted as an alias of "http" for the HTTP-backed
	// oracle, since mempool.space is the only HTTP fee source this engine
	// currently speaks.
	if cfg.FeeOracle == "mempoolspace" {
		cfg.FeeOracle = "http"
	}
	if cfg.FeeOracle != "rpc" && cfg.FeeOracle != "http" {
		log.Fatalf("FATAL: FEE_ORACLE must be \"rpc\" or \"http\", got %q", cfg.FeeOracle)
	}

	return cfg
}

// String renders the config for the startup banner, redacting credentials.
func (c Config) String() string {
	return fmt.Sprintf(
		"rpc_host=%s fee_oracle=%s allow_packages=%v cache_budget=%d bytes audit=%v port=%s",
		c.RPCHost, c.FeeOracle, c.AllowPackages, c.CacheByteBudget, c.DatabaseURL != "", c.Port,
	)
}

// requireEnv reads a required environment variable and exits if unset, per
// the project's "no fallback defaults for security-sensitive values" rule.
func requireEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("FATAL: Required environment variable %s is not set. "+
			"Copy .env.example to .env and fill in your values: cp .env.example .env", key)
	}
	return val
}

// getEnvOrDefault returns the env var value or a safe default for
// non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
