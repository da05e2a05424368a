// Package config handles application configuration loading and validation.
//
// Configuration is read from a YAML file and validated using struct tags.
// Trip data comes either from a trips CSV plus a stations JSON file, or
// from a single SQLite database.
package config
