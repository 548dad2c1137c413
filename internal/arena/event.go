package arena

import (
	"encoding/json"
	"time"
)

// EventType classifies an audit-log entry. These are distinct from
// wire protocol event names (§6); they exist for the replay/audit log
// only, not for client consumption.
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeShipJoin
	EventTypeShipLeave
	EventTypeDamage
	EventTypeKill
	EventTypeRespawn
	EventTypeMineExplode
	EventTypePickupCollect
	EventTypeAdminCommand
)

// EventVersion allows the on-disk log format to evolve.
const EventVersion uint8 = 1

// Event is one audit-log entry.
type Event struct {
	Version   uint8     `json:"version"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"` // Unix nano
	Sequence  uint64    `json:"sequence"`  // Monotonic sequence, assigned on emit
	TickNum   uint64    `json:"tickNum"`
	ShipID    string    `json:"shipId"` // source ship, for per-ship rate limiting
	Payload   []byte    `json:"payload"`
}

// String returns a human-readable event type name.
func (t EventType) String() string {
	switch t {
	case EventTypeShipJoin:
		return "ship_join"
	case EventTypeShipLeave:
		return "ship_leave"
	case EventTypeDamage:
		return "damage"
	case EventTypeKill:
		return "kill"
	case EventTypeRespawn:
		return "respawn"
	case EventTypeMineExplode:
		return "mine_explode"
	case EventTypePickupCollect:
		return "pickup_collect"
	case EventTypeAdminCommand:
		return "admin_command"
	default:
		return "unknown"
	}
}

// DamagePayload records a damage application.
type DamagePayload struct {
	AttackerID string `json:"attackerId"`
	VictimID   string `json:"victimId"`
	Damage     int    `json:"damage"`
	VictimHP   int    `json:"victimHp"`
	Cause      string `json:"cause"` // "bullet", "rocket", "mine", "laser"
}

// KillPayload records a kill credit.
type KillPayload struct {
	AttackerID   string `json:"attackerId"`
	VictimID     string `json:"victimId"`
	AttackerKills int   `json:"attackerKills"`
	VictimDeaths int    `json:"victimDeaths"`
}

// ShipJoinPayload records a ship admit.
type ShipJoinPayload struct {
	ShipID string  `json:"shipId"`
	Label  string  `json:"label"`
	SpawnX float64 `json:"spawnX"`
	SpawnY float64 `json:"spawnY"`
}

// RespawnPayload records a respawn.
type RespawnPayload struct {
	ShipID string  `json:"shipId"`
	SpawnX float64 `json:"spawnX"`
	SpawnY float64 `json:"spawnY"`
}

// AdminCommandPayload records an authenticated admin command.
type AdminCommandPayload struct {
	Command string `json:"command"`
	TargetID string `json:"targetId,omitempty"`
}

// EncodePayload marshals a payload to JSON bytes, returning nil on
// failure (the event is still emitted, just with an empty payload).
func EncodePayload(payload interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates an event stamped with the current time.
func NewEvent(eventType EventType, tickNum uint64, shipID string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		ShipID:    shipID,
		Payload:   EncodePayload(payload),
	}
}
