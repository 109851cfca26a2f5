// Package queue defines the message payloads exchanged over the broker
// plus the publisher and the background consumer.
package queue

// Queue names on the default exchange.
const (
	SlotReservedQueue = "slot.reserved"
	SlotExpiredQueue  = "slot.expired"
)

// SlotReservedEvent is published when an admin confirms a slot. It
// carries enough for downstream consumers to log or notify players
// without querying the database.
type SlotReservedEvent struct {
	MessageID     string   `json:"message_id"`
	ReservationID uint64   `json:"reservation_id"`
	SlotID        uint64   `json:"slot_id"`
	SlotName      string   `json:"slot_name"`
	ClubID        uint64   `json:"club_id"`
	Date          string   `json:"date"`
	Hour          string   `json:"hour"`
	Price         string   `json:"price"`
	ReservedBy    uint64   `json:"reserved_by"`
	Players       []string `json:"players"`
	ReservedAt    string   `json:"reserved_at"`
}

// SlotExpiredEvent is published when a slot reaches its terminal
// state, either explicitly or during the weekly roll-forward.
type SlotExpiredEvent struct {
	MessageID string `json:"message_id"`
	SlotID    uint64 `json:"slot_id"`
	SlotName  string `json:"slot_name"`
	ClubID    uint64 `json:"club_id"`
	Date      string `json:"date"`
	Hour      string `json:"hour"`
	ExpiredAt string `json:"expired_at"`
}
