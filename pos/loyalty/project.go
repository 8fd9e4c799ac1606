package loyalty

import (
	"github.com/AntonStoeckl/pos-eventstore-go/pos/core"
)

// ProjectAccount folds the loyalty events of a customer into its Account.
// This is a pure function; events of other customers or other types are ignored.
func ProjectAccount(history core.DomainEvents, query Query) Account {
	account := Account{CustomerID: query.CustomerID}

	for _, event := range history {
		switch e := event.(type) {
		case core.LoyaltyAccrued:
			if e.CustomerID != query.CustomerID {
				continue
			}
			account.Accrued += e.Points
			account.Transactions++
			account.LastActivity = latest(account.LastActivity, e.OccurredAt)

		case core.LoyaltyRedeemed:
			if e.CustomerID != query.CustomerID {
				continue
			}
			account.Redeemed += e.Points
			account.Transactions++
			account.LastActivity = latest(account.LastActivity, e.OccurredAt)
		}
	}

	account.Balance = account.Accrued - account.Redeemed

	return account
}

func latest(a, b core.OccurredAt) core.OccurredAt {
	if b.After(a) {
		return b
	}

	return a
}
