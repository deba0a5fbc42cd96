// Package numista provides the Numista catalog API client used during coin
// enrichment.
//
// It authenticates with the Numista-API-Key header and exposes type detail
// lookups and type search. Requests are paced and retried through httpretry;
// error bodies carrying error_message surface as *APIError and invalid JSON
// is reported with the services.ErrDecode marker without a retry. Options
// allow tests to supply custom HTTP clients and sleepers.
package numista
