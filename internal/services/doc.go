// Package services defines shared utilities consumed by the enrichment
// pipeline and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, document IDs, and stage names for
//     logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (retryable transport errors vs malformed responses vs
//     configuration problems) with errors.Is.
package services
