// Package payments answers payment questions: the payment status of a ticket and
// payment totals over a time range.
//
// The status of a ticket is decided by which payment event types exist for it, in priority
// order paid > failed > pending > none. A success therefore wins over a failure even if the
// failure happened later. Timestamps are not consulted.
package payments
