// Package eventlog implements the Event Log Store: the only component that assigns sequence numbers
// and writes to the storage medium.
//
// Every successful Append runs these steps in order:
//
//  1. persist the event durably (Storage.Persist)
//  2. add it to the indexes
//  3. invalidate the cache entries it affects
//  4. notify subscribers
//  5. signal pending work to the replication manager
//
// Step 1 completes before any of the others become observable, so readers never see unpersisted
// events. A failed persist leaves the log, the indexes and the cache untouched.
//
// Reads go through the indexes and fail with eventstore.ErrAggregateNotIndexed until Open has
// replayed the log.
package eventlog
