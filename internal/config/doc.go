// Package config provides configuration structures and utilities for
// urlsentry. It defines the scan options, API credentials, cache
// locations, and report generation preferences.
package config
