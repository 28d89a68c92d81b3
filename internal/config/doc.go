// Package config loads harness configuration from multiple sources (YAML
// files, environment variables, CLI flags) with precedence: CLI flags > YAML
// config > Environment variables > Defaults. It exposes strongly typed
// settings to the rest of the application, including the build-output root
// every suite configuration is derived from.
package config
