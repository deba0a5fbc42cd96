// Package postgres implements docstore.Store on a PostgreSQL database through
// a pgx connection pool.
//
// Documents live in one table keyed by collection and id with a JSONB body.
// Patches merge top-level keys with the JSONB || operator, so concurrent
// writers touching different fields do not overwrite each other.
package postgres
