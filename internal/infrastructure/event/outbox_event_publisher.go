package event

import (
	"context"

	"github.com/murichu/rent-sub002/internal/domain/shared"
)

// OutboxEventPublisher implements shared.EventPublisher by writing events
// to the outbox table. The OutboxProcessor later relays them to the event
// bus, so publishes survive process restarts.
type OutboxEventPublisher struct {
	repo       shared.OutboxRepository
	serializer *EventSerializer
}

// NewOutboxEventPublisher creates a new outbox-backed event publisher
func NewOutboxEventPublisher(repo shared.OutboxRepository, serializer *EventSerializer) *OutboxEventPublisher {
	return &OutboxEventPublisher{
		repo:       repo,
		serializer: serializer,
	}
}

// Publish serializes the events and persists them as pending outbox entries
func (p *OutboxEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, event := range events {
		payload, err := p.serializer.Serialize(event)
		if err != nil {
			return err
		}
		entries = append(entries, shared.NewOutboxEntry(event.AgencyID(), event, payload))
	}

	return p.repo.Save(ctx, entries...)
}

// Ensure OutboxEventPublisher implements EventPublisher
var _ shared.EventPublisher = (*OutboxEventPublisher)(nil)
