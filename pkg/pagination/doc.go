// Package pagination collects every page of a "next"-linked listing endpoint.
//
// The listing API returns {results, next} envelopes; a null next marks the
// last page. Pages are requested strictly one after another, so at most one
// request is in flight for a collection. Load time grows linearly with the
// page count, which is acceptable for a corpus built once per session.
//
// Example usage:
//
//	collector := pagination.NewCollector[memoire.Memoire](pagination.DefaultConfig())
//	result := collector.Collect(ctx, svc.Listing("-created_at"))
//	if !result.Complete {
//		// result.Items holds whatever arrived before the failure
//	}
//
// The collector:
//   - Starts at page 1 and increments until the server reports no next page
//   - Stops at the first failed page and returns the partial items
//   - Never retries a failed page itself (the HTTP client may)
//   - Caps the walk at Config.MaxPages
package pagination
