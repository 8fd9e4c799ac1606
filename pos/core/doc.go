// Package core contains the domain events of the point-of-sale:
// sales, payments, loyalty points and end-of-day reports.
//
// Every event implements DomainEvent. The set of events is closed: KnownEventTypes lists
// every type tag, and decoding in package shell switches over exactly that list.
//
// Events carry no sequence numbers or ids, those belong to the event log envelope.
package core
