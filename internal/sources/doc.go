// Package sources reads a user's fitness data from the upstream API and turns
// it into timestamp-keyed table rows ready to be written to the calendar.
//
// Architecture:
//   - Window: the date range a sync run covers, derived from the user's cursor
//   - StatisticsMerger: fetches the fixed daily resources concurrently,
//     outer-joins them on date and keeps only rows at or after the cursor
//   - ActivityFetcher: walks the paginated activity log and flattens every
//     entry into scalar columns
//
// A failing resource is skipped so long as at least one other resource
// succeeds. A malformed activity is logged with its payload and skipped.
package sources
