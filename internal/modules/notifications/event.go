package notifications

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventMutualMatch       = "event_mutual_match"
	EventAgreementRecorded = "event_agreement_recorded"
	EventChatActivated     = "event_chat_activated"
	EventChatExpired       = "event_chat_expired"
)

// Event is the contract for every lifecycle event published to the fan-out.
type Event interface {
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

type matchEvent struct {
	eventType  string
	matchID    uuid.UUID
	recipients []uuid.UUID
	occurredAt time.Time
}

func (e matchEvent) EventType() string {
	return e.eventType
}

func (e matchEvent) Payload() map[string]interface{} {
	recipients := make([]string, 0, len(e.recipients))
	for _, r := range e.recipients {
		recipients = append(recipients, r.String())
	}

	return map[string]interface{}{
		"match_id":   e.matchID.String(),
		"recipients": recipients,
	}
}

func (e matchEvent) Timestamp() time.Time {
	return e.occurredAt
}

func newMatchEvent(eventType string, matchID uuid.UUID, recipients ...uuid.UUID) Event {
	return matchEvent{
		eventType:  eventType,
		matchID:    matchID,
		recipients: recipients,
		occurredAt: time.Now().UTC(),
	}
}

func MutualMatch(matchID uuid.UUID, recipients ...uuid.UUID) Event {
	return newMatchEvent(EventMutualMatch, matchID, recipients...)
}

func AgreementRecorded(matchID uuid.UUID, recipients ...uuid.UUID) Event {
	return newMatchEvent(EventAgreementRecorded, matchID, recipients...)
}

func ChatActivated(matchID uuid.UUID, recipients ...uuid.UUID) Event {
	return newMatchEvent(EventChatActivated, matchID, recipients...)
}

func ChatExpired(matchID uuid.UUID, recipients ...uuid.UUID) Event {
	return newMatchEvent(EventChatExpired, matchID, recipients...)
}
