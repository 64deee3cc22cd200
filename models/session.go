package models

// Session holds the hash of a player's live token. One row per (project, player).
type Session struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"-"`
	ProjectID string `gorm:"type:uuid;not null;uniqueIndex:idx_session_player" json:"projectUuid"`
	PlayerID  string `gorm:"type:uuid;not null;uniqueIndex:idx_session_player" json:"playerUuid"`
	TokenHash string `gorm:"size:64;not null;uniqueIndex" json:"-"`

	Timestamps
}

func (Session) TableName() string { return "project_sessions" }
