// Package sqlite implements docstore.Store on a local SQLite database.
//
// Each document is a JSON object stored in the documents table keyed by
// collection and id. Patches merge top-level keys into the stored object and
// create the document when it is missing. Schema changes ship as numbered,
// embedded SQL files tracked through PRAGMA user_version. The same database
// keeps the run history written by the enrich command.
package sqlite
