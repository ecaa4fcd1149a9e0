// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"
)

// EventType enumerates the supported match event kinds.
type EventType string

const (
	EventKill        EventType = "kill"
	EventObjective   EventType = "objective"
	EventEconomy     EventType = "economy"
	EventUtility     EventType = "utility"
	EventRoundStart  EventType = "round_start"
	EventRoundEnd    EventType = "round_end"
	EventScoreUpdate EventType = "score_update"
)

// Quality scoring constants. An event scoring below MinQuality is dropped at
// the ingestion boundary and never reaches the causal engine.
const (
	MinQuality = 0.7
	// missingFieldWeight scales the proportional penalty for absent
	// required fields: quality -= weight * missing/required.
	missingFieldWeight = 0.5
	// badTimestampPenalty is the fixed penalty for an unparseable or
	// zero timestamp.
	badTimestampPenalty = 0.35
)

// Payload is the typed variant of an event's data, keyed by event type.
// Each variant carries only its required fields and validates itself.
type Payload interface {
	Kind() EventType
	// MissingFields reports which required fields are absent.
	MissingFields() []string
}

// KillPayload carries the required fields of a kill event.
type KillPayload struct {
	Attacker string
	Victim   string
	Weapon   string
	Headshot bool
}

func (p KillPayload) Kind() EventType { return EventKill }

func (p KillPayload) MissingFields() []string {
	var missing []string
	if p.Attacker == "" {
		missing = append(missing, "attacker")
	}
	if p.Victim == "" {
		missing = append(missing, "victim")
	}
	if p.Weapon == "" {
		missing = append(missing, "weapon")
	}
	return missing
}

// ObjectivePayload carries the required fields of an objective event.
// Action is one of "captured", "lost", "contested".
type ObjectivePayload struct {
	Location string
	Action   string
}

func (p ObjectivePayload) Kind() EventType { return EventObjective }

func (p ObjectivePayload) MissingFields() []string {
	var missing []string
	if p.Location == "" {
		missing = append(missing, "location")
	}
	if p.Action == "" {
		missing = append(missing, "action")
	}
	return missing
}

// EconomyPayload carries the required fields of an economy event.
// Action is one of "spent", "earned", "saved".
type EconomyPayload struct {
	Amount float64
	Action string
	TeamID string
}

func (p EconomyPayload) Kind() EventType { return EventEconomy }

func (p EconomyPayload) MissingFields() []string {
	var missing []string
	if p.Amount == 0 {
		missing = append(missing, "amount")
	}
	if p.Action == "" {
		missing = append(missing, "action")
	}
	return missing
}

// UtilityPayload carries the required fields of a utility usage event.
type UtilityPayload struct {
	UtilityType string
	PlayerID    string
}

func (p UtilityPayload) Kind() EventType { return EventUtility }

func (p UtilityPayload) MissingFields() []string {
	var missing []string
	if p.UtilityType == "" {
		missing = append(missing, "type")
	}
	if p.PlayerID == "" {
		missing = append(missing, "playerId")
	}
	return missing
}

// RoundPayload marks round boundaries. Ended distinguishes a round_end
// from the zero-value round_start.
type RoundPayload struct {
	Round int
	Ended bool
}

func (p RoundPayload) Kind() EventType {
	if p.Ended {
		return EventRoundEnd
	}
	return EventRoundStart
}

func (p RoundPayload) MissingFields() []string { return nil }

// ScorePayload carries a score update.
type ScorePayload struct {
	Home int
	Away int
}

func (p ScorePayload) Kind() EventType { return EventScoreUpdate }

func (p ScorePayload) MissingFields() []string { return nil }

// Event is a single timestamped match event. Immutable once ingested.
type Event struct {
	ID             string
	Type           EventType
	Timestamp      time.Time
	SequenceNumber int64
	RoundNumber    int
	Payload        Payload

	// timestampValid records whether the wire timestamp parsed cleanly.
	// Decoded events with a synthesized timestamp score lower quality.
	TimestampValid bool
}

// Quality returns the completeness score of the event in [0,1]. Missing
// required fields subtract a proportional penalty; an invalid timestamp
// subtracts a fixed one.
func (e Event) Quality() float64 {
	score := 1.0
	if e.Payload != nil {
		required := requiredFieldCount(e.Type)
		if required > 0 {
			missing := len(e.Payload.MissingFields())
			score -= missingFieldWeight * float64(missing) / float64(required)
		}
	}
	if !e.TimestampValid || e.Timestamp.IsZero() {
		score -= badTimestampPenalty
	}
	if score < 0 {
		return 0
	}
	return score
}

// Age returns how long ago the event occurred relative to now.
func (e Event) Age(now time.Time) time.Duration {
	return now.Sub(e.Timestamp)
}

func requiredFieldCount(t EventType) int {
	switch t {
	case EventKill:
		return 3
	case EventObjective, EventEconomy, EventUtility:
		return 2
	default:
		return 0
	}
}

// DecodeEvent converts a wire-format event into a typed Event. Unknown event
// types fail; field-level omissions do not (they lower Quality instead, so
// the ingestion gate can make a uniform drop decision).
func DecodeEvent(typ string, timestamp string, data map[string]any, seq int64) (Event, error) {
	ev := Event{
		Type:           EventType(typ),
		SequenceNumber: seq,
	}

	ts, err := time.Parse(time.RFC3339, timestamp)
	if err == nil && !ts.IsZero() {
		ev.Timestamp = ts
		ev.TimestampValid = true
	} else {
		ev.Timestamp = time.Now()
	}

	switch ev.Type {
	case EventKill:
		ev.Payload = KillPayload{
			Attacker: stringField(data, "attacker"),
			Victim:   stringField(data, "victim"),
			Weapon:   stringField(data, "weapon"),
			Headshot: boolField(data, "headshot"),
		}
	case EventObjective:
		ev.Payload = ObjectivePayload{
			Location: stringField(data, "location"),
			Action:   stringField(data, "action"),
		}
	case EventEconomy:
		ev.Payload = EconomyPayload{
			Amount: floatField(data, "amount"),
			Action: stringField(data, "action"),
			TeamID: stringField(data, "teamId"),
		}
	case EventUtility:
		ev.Payload = UtilityPayload{
			UtilityType: stringField(data, "type"),
			PlayerID:    stringField(data, "playerId"),
		}
	case EventRoundStart, EventRoundEnd:
		ev.Payload = RoundPayload{
			Round: int(floatField(data, "round")),
			Ended: ev.Type == EventRoundEnd,
		}
		ev.RoundNumber = int(floatField(data, "round"))
	case EventScoreUpdate:
		ev.Payload = ScorePayload{
			Home: int(floatField(data, "home")),
			Away: int(floatField(data, "away")),
		}
	default:
		return Event{}, fmt.Errorf("unknown event type: %q", typ)
	}

	return ev, nil
}

func stringField(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func floatField(data map[string]any, key string) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func boolField(data map[string]any, key string) bool {
	if v, ok := data[key].(bool); ok {
		return v
	}
	return false
}
