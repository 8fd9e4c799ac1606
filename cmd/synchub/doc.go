// Command synchub runs the central store the POS terminals of a site replicate with.
//
// It serves the sync protocol under /v1/ backed either by an in-memory hub, for a single site
// without a database, or by PostgreSQL.
//
//	synchub -config /etc/pos/hub.yml
package main
