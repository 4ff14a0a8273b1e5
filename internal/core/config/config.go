package config

import (
	"time"

	redisclient "github.com/fairside/validator/internal/infra/redis"
	"github.com/fairside/validator/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig       `yaml:"server"`
	Validator ValidatorConfig    `yaml:"validator"`
	Chains    []ChainConfig      `yaml:"chains"`
	Redis     redisclient.Config `yaml:"redis"`
	Logging   LoggingConfig      `yaml:"logging"`
	Database  postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ValidatorConfig holds oracle-side settings shared across chains.
type ValidatorConfig struct {
	// SigningKey is the hex-encoded validator key, usually ${VALIDATOR_KEY}
	SigningKey string `yaml:"signing_key"`

	// SecretTTL bounds how long an issued secret may stay unconsumed
	SecretTTL time.Duration `yaml:"secret_ttl"`

	// RecoverFromBlock rescans order events from this block before
	// going live, closing any downtime gap. 0 = contract deploy block.
	RecoverFromBlock uint64 `yaml:"recover_from_block"`
}

// ChainConfig holds settings for a specific blockchain.
type ChainConfig struct {
	ChainID         uint64        `yaml:"id"`
	RPCURL          string        `yaml:"rpc_url"`
	ContractAddress string        `yaml:"contract_address"`
	DeployBlock     uint64        `yaml:"deploy_block"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	MaxRangeSize    uint64        `yaml:"max_range_size"`   // provider log-span limit
	RetentionPeriod time.Duration `yaml:"retention_period"` // 0 = infinite
	RescanRanges    bool          `yaml:"rescan_ranges"`    // enable rescan worker
	Games           []string      `yaml:"games"`            // watchers to run on this chain
}
