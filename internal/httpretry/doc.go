// Package httpretry executes paced HTTP requests with bounded retries.
//
// A Policy waits on a shared rate limiter before every attempt, retries
// transport failures and 429/5xx responses while the attempt budget lasts,
// and honors a positive Retry-After header in seconds. Otherwise the delay
// before the next attempt doubles from the base delay. Responses are read
// fully so callers can decode or report them after the connection closes.
package httpretry
