// Package reporting builds the end-of-day report of a business date by composing the sales and
// payments engines.
//
// Report numbers are consecutive over the whole log: the next number is the highest number of all
// report.generated events plus one. BusinessDateReport previews a report under that number,
// GenerateReport assigns it by appending report.generated.
//
// There is no tax or discount ledger yet; those sections are zero and marked as estimated.
package reporting
