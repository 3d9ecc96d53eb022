// Package config provides configuration loading and validation for the
// lip-sync engine. It handles YAML-based configuration with per-section
// struct validation and ships defaults that work without a config file.
package config
