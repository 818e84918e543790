package config

import "errors"

var (
	// ErrInvalidNetwork indicates the network name is not recognized.
	ErrInvalidNetwork = errors.New("config: invalid network (must be \"mainnet\" or \"testnet\")")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrInvalidStore indicates the store backend is not recognized.
	ErrInvalidStore = errors.New("config: invalid store (must be \"memory\", \"bolt\", or \"sqlite\")")

	// ErrInvalidAuthMode indicates the authorization mode is not recognized.
	ErrInvalidAuthMode = errors.New("config: invalid auth mode (must be \"trusted\", \"signature\", or \"jwt\")")

	// ErrMissingJWTSecret indicates jwt auth mode without a secret.
	ErrMissingJWTSecret = errors.New("config: jwt auth mode requires a jwt secret")

	// ErrInvalidSchedule indicates the release schedule is not a cron spec.
	ErrInvalidSchedule = errors.New("config: invalid release schedule")

	// ErrInvalidPolicy indicates the allocation policy is not recognized.
	ErrInvalidPolicy = errors.New("config: invalid allocation policy")

	// ErrInvalidCustodySeed indicates the custody seed is not valid hex or too short.
	ErrInvalidCustodySeed = errors.New("config: invalid custody seed")

	// ErrMissingCustodySeed indicates a durable store without a custody seed.
	ErrMissingCustodySeed = errors.New("config: durable store requires a custody seed")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")
)
