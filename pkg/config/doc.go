// Package config loads the agent configuration from defaults,
// an optional YAML, JSON or TOML file, and the environment.
package config
