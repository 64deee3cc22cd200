package services

import (
	"context"

	"game-session-backend/apperr"
	"game-session-backend/models"

	"gorm.io/gorm"
)

// Profile is what a signed-in player sees about themselves.
type Profile struct {
	models.Player
	Balance int64     `json:"balance"`
	Tags    []TagView `json:"tags"`
}

type Profiles struct {
	DB     *gorm.DB
	Ledger *Ledger
}

func NewProfiles(db *gorm.DB, ledger *Ledger) *Profiles {
	return &Profiles{DB: db, Ledger: ledger}
}

func (p *Profiles) Get(ctx context.Context, actor Identity) (*Profile, error) {
	var player models.Player
	err := p.DB.WithContext(ctx).Where("project_id = ? AND id = ?", actor.ProjectID, actor.PlayerID).First(&player).Error
	if err != nil {
		return nil, apperr.FromStorage("player", err)
	}
	balance, err := p.Ledger.Balance(ctx, nil, actor.ProjectID, actor.PlayerID)
	if err != nil {
		return nil, err
	}
	var tags []models.PlayerTag
	if err := p.DB.WithContext(ctx).Where("player_id = ?", player.ID).Order("tag").Find(&tags).Error; err != nil {
		return nil, apperr.FromStorage("player tags", err)
	}
	out := &Profile{Player: player, Balance: balance, Tags: make([]TagView, 0, len(tags))}
	for _, t := range tags {
		out.Tags = append(out.Tags, TagView{Tag: t.Tag, Value: t.Value})
	}
	return out, nil
}
