// Package config loads, normalizes, and validates stemdeck configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads a .env file when present, and honours
// environment fallbacks such as STEMDECK_TOKEN and STEMDECK_API_URL. The Config
// type centralizes every knob the CLI, player and job controller need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
