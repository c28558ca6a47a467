// Package config provides configuration structures and utilities for pageaudit.
// It defines run options built from CLI flags, the YAML suite file format,
// and the built-in AU and CA suites.
package config
