// Package config loads the parley configuration.
//
// Values are merged from four sources: environment variables (caarlos0/env
// struct tags), command-line flags, an optional JSON file, and built-in
// defaults. Sources are merged in that order with mergo; the first non-zero
// value for a field wins.
//
// The merged [StructuredConfig] is never consumed directly by the binaries.
// cmd/parley uses the [ClientConfig] view and cmd/parleyd uses the
// [ServerConfig] view; each view copies only the fields its runtime needs
// and validates them.
package config
