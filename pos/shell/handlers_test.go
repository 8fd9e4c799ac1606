package shell_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/pos-eventstore-go/pos/core"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/loyalty"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/payments"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/reporting"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/sales"
)

// A new event type must be folded by some engine, otherwise it would be ignored silently.
func Test_EveryKnownEventTypeIsHandledByAnEngine(t *testing.T) {
	handled := make(map[string]bool)
	for _, handledTypes := range [][]string{
		loyalty.HandledEventTypes(),
		payments.HandledEventTypes(),
		sales.HandledEventTypes(),
		reporting.HandledEventTypes(),
	} {
		for _, eventType := range handledTypes {
			handled[eventType] = true
		}
	}

	for _, eventType := range core.KnownEventTypes() {
		assert.True(t, handled[eventType], "no engine handles %s", eventType)
	}

	assert.Len(t, handled, len(core.KnownEventTypes()))
}
