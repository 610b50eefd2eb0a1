// Package config handles configuration loading, parsing, and validation
// from environment variables (MINDMAP_ prefix) and an optional config file.
package config
