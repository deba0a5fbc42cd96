// Package logging builds the slog loggers used by the enrichment pipeline and
// the CLI.
//
// Each output gets its own handler: single-line console output (colored on a
// terminal) or JSON. Helpers tag records with components, run ids and document
// ids, and keep warning and decision records uniform.
package logging
