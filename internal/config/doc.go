// Package config loads runtime configuration from multiple sources (YAML files,
// environment variables, CLI flags) with precedence: CLI flags > Environment variables >
// YAML config > Defaults. It exposes the physical keg model, solver settings and server
// settings as strongly typed values to the rest of the application.
package config
