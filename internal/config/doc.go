// Package config loads, normalizes, and validates the TOML configuration
// that drives batch runs. Loading is a three step process: decode over
// defaults, normalize (path expansion, bundle application, env fallbacks),
// then validate. A Config that survives Load is safe to hand to every
// other package without further checking.
package config
