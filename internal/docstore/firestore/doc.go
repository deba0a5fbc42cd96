// Package firestore implements docstore.Store on the Firestore REST API.
//
// Documents are listed page by page, patched with an explicit update mask,
// and written in batches through documents:commit. Field values travel in
// Firestore's typed JSON representation; codec.go converts between that form
// and plain Go values. Requests share the paced retry policy of httpretry and
// carry an optional OAuth bearer token.
package firestore
