// Package config handles loading and validating edge bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// A missing config file is not an error: the bridge runs on defaults, and
// Config.Path is left empty so the caller can say so.
//
// Security Considerations:
//   - The bearer token should be set via EDGEBRIDGE_BEARER_TOKEN
//   - A token that is not exactly 36 characters is discarded with a warning
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, w := range cfg.Warnings {
//	    log.Warn(w)
//	}
package config
