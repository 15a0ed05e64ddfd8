// Package config loads, normalizes, and validates the sceneflow TOML
// configuration describing the storage roots, archive backends, ownership
// identities, and logging behavior shared by every subcommand.
package config
