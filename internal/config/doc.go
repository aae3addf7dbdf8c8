// Package config defines the application configuration structures and the
// viper-based loader that populates them from environment variables and an
// optional YAML file.
package config
