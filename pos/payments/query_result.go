package payments

import (
	"github.com/AntonStoeckl/pos-eventstore-go/pos/core"
)

// Status is the payment state of a ticket.
type Status string

const (
	StatusNone    Status = "none"
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
)

// TicketPayments is the projected payment state of one ticket.
type TicketPayments struct {
	TicketID core.TicketIDString
	Status   Status
	// Collected sums the amounts of succeeded payments.
	Collected core.Money
	Attempts  int
}

// Summary aggregates the payment events of a time range.
type Summary struct {
	Tickets   int
	Paid      int
	Failed    int
	Pending   int
	Collected core.Money
	// ByMethod splits Collected by the method of the initiating event; succeeded payments
	// whose initiation is outside the range are counted under "unknown".
	ByMethod map[core.PaymentMethod]core.Money
}

// MethodUnknown buckets succeeded payments whose method is not known within the range.
const MethodUnknown core.PaymentMethod = "unknown"
