package models

import (
	"time"

	"gorm.io/datatypes"
)

type EventType string

const (
	EventActivityCompleted     EventType = "ActivityCompleted"
	EventDuelComplete          EventType = "DuelComplete"
	EventDuelCancelled         EventType = "DuelCancelled"
	EventItemRedeemed          EventType = "ItemRedeemed"
	EventItemPurchased         EventType = "ItemPurchased"
	EventRedemptionPoints      EventType = "RedemptionPoints"
	EventPlayerClaimed         EventType = "PlayerClaimed"
	EventQueenCrowned          EventType = "QueenCrowned"
	EventQueenTitleTransferred EventType = "QueenTitleTransferred"
)

// Event is append-only. Rows are never updated or deleted.
type Event struct {
	ID          string         `gorm:"primaryKey;type:uuid" json:"uuid"`
	ProjectID   string         `gorm:"type:uuid;not null;index:idx_event_lookup" json:"projectUuid"`
	Type        EventType      `gorm:"type:varchar(64);not null;index:idx_event_lookup" json:"type"`
	Payload     datatypes.JSON `json:"payload"`
	PrimaryID   string         `gorm:"type:uuid;index:idx_event_lookup" json:"primaryUuid"`
	SecondaryID *string        `gorm:"type:uuid;index:idx_event_lookup" json:"secondaryUuid"`
	Timestamp   time.Time      `gorm:"autoCreateTime;index" json:"timestamp"`
}

func (Event) TableName() string { return "project_events" }

// Transaction is a signed posting against a player's balance. Every row points at an Event.
type Transaction struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"uuid"`
	ProjectID string    `gorm:"type:uuid;not null;index:idx_tx_player" json:"projectUuid"`
	PlayerID  string    `gorm:"type:uuid;not null;index:idx_tx_player" json:"playerUuid"`
	EventID   string    `gorm:"type:uuid;not null;index" json:"eventUuid"`
	Amount    int64     `gorm:"not null" json:"amount"`
	Timestamp time.Time `gorm:"autoCreateTime;index" json:"timestamp"`
}

func (Transaction) TableName() string { return "project_transactions" }
