// Package enrichment runs the batch pipeline that links stored coin records
// to Numista catalog types and merges catalog attributes back into them.
//
// A Runner lists the documents of a collection and, for each record the gate
// admits, resolves a type id from stored fields or a scored search, fetches
// the type detail, re-checks search matches for consistency, and builds a
// merge update. Updates are queued and flushed in batches through the
// docstore. Detail and search responses are cached for the lifetime of one
// run, and every outcome is tallied in Stats.
package enrichment
