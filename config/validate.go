package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/bitfsorg/matchfund-go/quadratic"
)

// MinCustodySeedLen is the minimum decoded custody seed length in bytes.
const MinCustodySeedLen = 16

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if cfg.Network != "mainnet" && cfg.Network != "testnet" {
		return ErrInvalidNetwork
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	switch cfg.Store {
	case StoreMemory, StoreBolt, StoreSQLite:
	default:
		return ErrInvalidStore
	}

	switch cfg.AuthMode {
	case AuthTrusted, AuthSignature:
	case AuthJWT:
		if cfg.JWTSecret == "" {
			return ErrMissingJWTSecret
		}
	default:
		return ErrInvalidAuthMode
	}

	if cfg.ReleaseSchedule != "" {
		if _, err := cron.ParseStandard(cfg.ReleaseSchedule); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSchedule, err)
		}
	}

	if _, err := quadratic.ParsePolicy(cfg.AllocationPolicy); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPolicy, err)
	}

	if _, err := CustodySeed(cfg); err != nil {
		return err
	}
	if cfg.CustodySeed == "" && cfg.Store != StoreMemory {
		return ErrMissingCustodySeed
	}

	return nil
}

// CustodySeed decodes the custody seed. It returns nil for an empty seed.
func CustodySeed(cfg Config) ([]byte, error) {
	if cfg.CustodySeed == "" {
		return nil, nil
	}
	seed, err := hex.DecodeString(cfg.CustodySeed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCustodySeed, err)
	}
	if len(seed) < MinCustodySeedLen {
		return nil, fmt.Errorf("%w: %d bytes, need %d", ErrInvalidCustodySeed, len(seed), MinCustodySeedLen)
	}
	return seed, nil
}
