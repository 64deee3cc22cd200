package models

// Activity is claimable content. Duel activities are only earned by winning a duel.
type Activity struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"uuid"`
	ProjectID    string `gorm:"type:uuid;not null;uniqueIndex:idx_activity_word" json:"projectUuid"`
	WordID       string `gorm:"not null;uniqueIndex:idx_activity_word" json:"wordId"`
	Name         string `gorm:"not null" json:"name"`
	Description  string `gorm:"type:text" json:"description"`
	Value        int64  `gorm:"not null;default:0" json:"value"`
	IsRepeatable bool   `gorm:"default:false" json:"isRepeatable"`
	RepeatValue  int64  `gorm:"not null;default:0" json:"repeatValue"`
	IsDuel       bool   `gorm:"default:false" json:"isDuel"`

	Timestamps
}

func (Activity) TableName() string { return "project_activities" }
