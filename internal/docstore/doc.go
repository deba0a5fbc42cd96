// Package docstore defines the document store contract used by enrichment.
//
// Documents are attribute bags addressed by collection and id. Two backends
// implement Store: a local SQLite store (package sqlite) and the Firestore
// REST API (package firestore).
package docstore
