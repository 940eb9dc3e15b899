// Package config defines the uploader settings and helpers to load, validate,
// merge and save them in YAML format.
//
// Values from the settings file are defaults; command-line flags override them.
package config
