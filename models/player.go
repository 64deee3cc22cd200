package models

// Player starts life as an unclaimed placeholder printed on a physical code.
// Name, RealName and Claimed are only ever written by the claim action.
type Player struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"uuid"`
	ProjectID string `gorm:"type:uuid;not null;uniqueIndex:idx_player_word" json:"projectUuid"`
	WordID    string `gorm:"not null;uniqueIndex:idx_player_word" json:"wordId"`
	Claimed   bool   `gorm:"default:false" json:"claimed"`
	Name      string `json:"name"`
	RealName  string `json:"-"`

	Timestamps
}

func (Player) TableName() string { return "project_players" }

// PlayerTag attaches plugin metadata to a player, e.g. a held title. A title
// (tag "queen") has at most one holder per project.
type PlayerTag struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"uuid"`
	ProjectID string `gorm:"type:uuid;not null;index:idx_player_tag;uniqueIndex:idx_player_title,where:tag = 'queen'" json:"projectUuid"`
	PlayerID  string `gorm:"type:uuid;not null;index:idx_player_tag" json:"playerUuid"`
	Tag       string `gorm:"not null;index:idx_player_tag;uniqueIndex:idx_player_title,where:tag = 'queen'" json:"tag"`
	Value     string `gorm:"uniqueIndex:idx_player_title,where:tag = 'queen'" json:"value"`

	Timestamps
}

func (PlayerTag) TableName() string { return "player_tags" }
