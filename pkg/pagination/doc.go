// Package pagination turns unbounded Marketo reads into bounded request
// sequences.
//
// Marketo caps ID-list filters at 30 IDs per request and pages results with
// an opaque nextPageToken. FetchBatched splits an ID set into batches of at
// most MaxBatchSize, walks each batch's pages sequentially with at most
// MaxFollowUpPages follow-up requests, and concatenates every record in
// batch and page order:
//
//	result := pagination.FetchBatched(ctx, pagination.IDs(leadIDs...), "1,6", fetchPage)
//	if !result.Success {
//		// result.Result still holds everything fetched before result.Err
//	}
//
// The follow-up ceiling resets for every batch. It bounds request volume per
// batch at 11 calls (about 3000 records at 300 per page); larger result sets
// are truncated and a warning is logged.
//
// Asset endpoints page by offset instead. FanOut fetches a fixed set of
// offsets concurrently, keeps whatever branches succeed, and sorts the
// merged records so the output does not depend on response arrival order.
package pagination
