// Package config defines the packaging settings and provides helpers to
// load, validate and save them in YAML format.
//
// Every field has a default, so the configuration file is optional. Command
// line flags override the corresponding values for a single run.
package config
