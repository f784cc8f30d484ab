package event

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/murichu/rent-sub002/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serializerTestEvent carries the payload fields a payment event would
type serializerTestEvent struct {
	shared.BaseDomainEvent
	Reference   string `json:"reference"`
	AmountCents int    `json:"amount_cents"`
}

func newSerializerTestEvent() *serializerTestEvent {
	return &serializerTestEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("billing.payment.received", "Payment", uuid.New(), uuid.New()),
		Reference:       "SBC1234XYZ",
		AmountCents:     4500000,
	}
}

func TestEventSerializer_Register(t *testing.T) {
	serializer := NewEventSerializer()

	serializer.Register("billing.payment.received", &serializerTestEvent{})

	assert.True(t, serializer.IsRegistered("billing.payment.received"))
	assert.False(t, serializer.IsRegistered("billing.invoice.issued"))
}

func TestEventSerializer_RegisteredTypes(t *testing.T) {
	serializer := NewEventSerializer()

	serializer.Register("billing.payment.received", &serializerTestEvent{})
	serializer.Register("billing.penalty.assessed", &serializerTestEvent{})

	types := serializer.RegisteredTypes()
	assert.Len(t, types, 2)
	assert.Contains(t, types, "billing.payment.received")
	assert.Contains(t, types, "billing.penalty.assessed")
}

func TestEventSerializer_Serialize(t *testing.T) {
	serializer := NewEventSerializer()
	event := newSerializerTestEvent()

	data, err := serializer.Serialize(event)

	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Contains(t, string(data), `"reference":"SBC1234XYZ"`)
	assert.Contains(t, string(data), `"amount_cents":4500000`)
}

func TestEventSerializer_Deserialize(t *testing.T) {
	serializer := NewEventSerializer()
	serializer.Register("billing.payment.received", &serializerTestEvent{})

	original := newSerializerTestEvent()
	data, err := serializer.Serialize(original)
	require.NoError(t, err)

	deserialized, err := serializer.Deserialize("billing.payment.received", data)
	require.NoError(t, err)

	event, ok := deserialized.(*serializerTestEvent)
	require.True(t, ok)
	assert.Equal(t, original.EventType(), event.EventType())
	assert.Equal(t, original.Reference, event.Reference)
	assert.Equal(t, original.AmountCents, event.AmountCents)
}

func TestEventSerializer_Deserialize_UnknownType(t *testing.T) {
	serializer := NewEventSerializer()

	_, err := serializer.Deserialize("billing.invoice.issued", []byte(`{}`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")
}

func TestEventSerializer_Deserialize_InvalidJSON(t *testing.T) {
	serializer := NewEventSerializer()
	serializer.Register("billing.payment.received", &serializerTestEvent{})

	_, err := serializer.Deserialize("billing.payment.received", []byte(`invalid json`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal")
}

func TestEventSerializer_RoundTrip_PreservesAllFields(t *testing.T) {
	serializer := NewEventSerializer()
	serializer.Register("billing.payment.received", &serializerTestEvent{})

	agencyID := uuid.New()
	aggregateID := uuid.New()
	original := &serializerTestEvent{
		BaseDomainEvent: shared.BaseDomainEvent{
			ID:            uuid.New(),
			Type:          "billing.payment.received",
			Timestamp:     time.Now().Truncate(time.Second),
			AggID:         aggregateID,
			AggType:       "Payment",
			AgencyIDValue: agencyID,
		},
		Reference:   "RCT9Q8W7E6",
		AmountCents: 1200000,
	}

	data, err := serializer.Serialize(original)
	require.NoError(t, err)

	deserialized, err := serializer.Deserialize("billing.payment.received", data)
	require.NoError(t, err)

	event := deserialized.(*serializerTestEvent)
	assert.Equal(t, original.EventID(), event.EventID())
	assert.Equal(t, original.EventType(), event.EventType())
	assert.Equal(t, original.AggregateID(), event.AggregateID())
	assert.Equal(t, original.AggregateType(), event.AggregateType())
	assert.Equal(t, original.AgencyID(), event.AgencyID())
	assert.Equal(t, original.Reference, event.Reference)
	assert.Equal(t, original.AmountCents, event.AmountCents)
}
