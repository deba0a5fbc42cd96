// Package main hosts the coinenrich CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration (TOML file, .env files,
// environment, then flags), opens the configured document store and Numista
// client, and hands off to the enrichment runner. Store backends are chosen
// here so the internal packages stay independent of one another.
//
// Keep this package thin: new behavior belongs in the internal packages and
// is surfaced here through commands or flags.
package main
