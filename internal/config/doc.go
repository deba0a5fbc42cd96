// Package config loads, normalizes, and validates coinenrich configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// NUMISTA_API_KEY and FIREBASE_PROJECT_ID. The Config type centralizes every
// knob the enrichment pipeline and CLI need so credentials, store addressing,
// and scoring overrides are discovered in one pass.
package config
