// Package sales answers revenue questions over sale.recorded events: summaries and top items
// for a time range and an hourly breakdown of a business date.
//
// A ticket counts once. If a ticket was recorded more than once, for example on two devices,
// the recording with the latest timestamp wins.
package sales
