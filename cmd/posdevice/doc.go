// Command posdevice runs the local data layer of one POS terminal.
//
// It keeps the event log in SQLite, answers read-model queries over a small JSON API for the
// terminal UI, replicates with the sync hub and exposes Prometheus metrics.
//
//	posdevice -config /etc/pos/device.yml
//
// Routes:
//
//	POST /v1/events                       append an event
//	GET  /v1/events?after=                events after a seq
//	GET  /v1/loyalty/{customerID}         loyalty account
//	GET  /v1/payments/{ticketID}          payment status of a ticket
//	GET  /v1/payments?from=&until=        payment summary
//	GET  /v1/sales?from=&until=           sales summary
//	GET  /v1/sales/top?from=&until=&limit= top items
//	GET  /v1/sales/hourly/{date}          hourly sales of a business date
//	GET  /v1/reports/{date}               report preview
//	POST /v1/reports/{date}               generate the numbered report
//	GET  /v1/sync                         sync status
//	POST /v1/sync                         run a sync cycle now
//	PUT  /v1/sync/network?online=         report network changes
package main
