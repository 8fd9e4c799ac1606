package eventstore

import (
	"errors"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var ErrInvalidEventJSON = errors.New("event json is not valid")

// eventJSON is the wire shape of an Event: timestamps travel as epoch milliseconds.
type eventJSON struct {
	ID        string              `json:"id"`
	Type      string              `json:"type"`
	At        int64               `json:"at"`
	Aggregate Aggregate           `json:"aggregate"`
	Payload   jsoniter.RawMessage `json:"payload"`
	Seq       SequenceNumber      `json:"seq,omitempty"`
	Origin    string              `json:"origin,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e Event) MarshalJSON() ([]byte, error) {
	return jsoniter.ConfigFastest.Marshal(eventJSON{
		ID:        e.ID.String(),
		Type:      e.Type,
		At:        e.AtMillis(),
		Aggregate: e.Aggregate,
		Payload:   e.PayloadJSON,
		Seq:       e.Seq,
		Origin:    e.Origin,
	})
}

// UnmarshalJSON implements json.Unmarshaler. The decoded event is validated like any other rebuilt event.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw eventJSON
	if err := jsoniter.ConfigFastest.Unmarshal(data, &raw); err != nil {
		return errors.Join(ErrInvalidEventJSON, err)
	}

	id, err := uuid.Parse(raw.ID)
	if err != nil {
		return errors.Join(ErrValidation, ErrNilEventID, err)
	}

	event, err := RebuildEvent(id, raw.Type, raw.Aggregate, TimeFromMillis(raw.At), raw.Payload, raw.Seq, raw.Origin)
	if err != nil {
		return err
	}

	*e = event

	return nil
}
