// Package httpremote carries the sync protocol over HTTP.
//
// Routes, relative to the endpoint of the hub:
//
//	POST {base}/v1/{namespace}/events                      push a JSON array of events
//	GET  {base}/v1/{namespace}/events?after={rev}&limit={n} pull a page of events
//	GET  {base}/v1/{namespace}/watch                        websocket announcing new revisions
//
// Client implements replication.Remote and replication.Watcher, Handler serves any replication.Remote.
package httpremote
