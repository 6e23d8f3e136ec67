// Package config loads, normalizes, and validates the adpn configuration
// file.
package config
