// Package config handles application configuration loading and validation.
//
// Configuration is loaded from config.yml and validated using struct tags.
// Defaults are applied for any field the file leaves unset.
package config
