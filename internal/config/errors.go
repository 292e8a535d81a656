package config

import (
	"errors"
)

// Error kinds returned by Load. Validation failures wrap ErrInvalidConfig;
// unreadable files, bad YAML and type mismatches wrap ErrLoadConfig.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
