// Package config loads broker configuration from environment variables.
package config
