// Package loyalty answers loyalty point questions for customers.
//
// The balance of a customer is the fold of its loyalty.accrued and loyalty.redeemed events,
// read through the aggregate index and memoized per customer in the query cache.
// Unknown customers have a balance of zero.
package loyalty
