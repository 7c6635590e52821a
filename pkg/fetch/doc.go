// Package fetch retrieves a URL into a file, an in-memory value or a live
// stream, with bounded retries, byte-range resumption and integrity checks.
//
// The second argument of Fetch selects the destination:
//
//	fetch.Fetch(ctx, url, fetch.Path("./downloads/"), opts)        // file
//	fetch.Fetch(ctx, url, fetch.Sink(fetch.SinkStructured), opts) // parsed JSON or YAML
//	fetch.Fetch(ctx, url, fetch.Options(o), fetch.RequestOptions{}) // o replaces opts
//
// Failures are *TransferError values; errors.Is matches the Err* sentinels.
package fetch
