// Package config loads, normalizes, and validates imp CLI configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts),
// reads TOML files, and honours the IMP_API_KEY environment override.
// Commands obtain API credentials, log stream defaults and the checkpoint
// directory through this package only.
package config
