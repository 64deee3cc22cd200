// services/duel_views.go
package services

import (
	"context"

	"game-session-backend/apperr"
	"game-session-backend/models"

	"gorm.io/gorm"
)

type PlayerSummary struct {
	ID     string `json:"uuid"`
	WordID string `json:"wordId"`
	Name   string `json:"name"`
}

type ActivitySummary struct {
	ID           string `json:"uuid"`
	Name         string `json:"name"`
	Value        int64  `json:"value"`
	IsRepeatable bool   `json:"isRepeatable"`
	RepeatValue  int64  `json:"repeatValue"`
}

type TagView struct {
	Tag   string `json:"tag"`
	Value string `json:"value"`
}

// DuelView is a duel with its participants, activity and tags resolved.
type DuelView struct {
	models.Duel
	Activity  *ActivitySummary `json:"activity"`
	Initiator PlayerSummary    `json:"initiator"`
	Recipient *PlayerSummary   `json:"recipient"`
	Tags      []TagView        `json:"tags"`
}

// DuelFilter narrows a player's duel list. Nil pointers leave a predicate unset.
type DuelFilter struct {
	States           []models.DuelState
	Active           *bool
	ActivityID       string
	RecipientID      string
	MissingActivity  *bool
	MissingRecipient *bool
}

func summarizePlayer(p models.Player) PlayerSummary {
	return PlayerSummary{ID: p.ID, WordID: p.WordID, Name: p.Name}
}

func buildDuelViews(ctx context.Context, db *gorm.DB, duels []models.Duel) ([]DuelView, error) {
	if len(duels) == 0 {
		return []DuelView{}, nil
	}
	var playerIDs, activityIDs, duelIDs []string
	for _, d := range duels {
		duelIDs = append(duelIDs, d.ID)
		playerIDs = append(playerIDs, d.InitiatorID)
		if d.RecipientID != nil {
			playerIDs = append(playerIDs, *d.RecipientID)
		}
		if d.ActivityID != nil {
			activityIDs = append(activityIDs, *d.ActivityID)
		}
	}
	conn := db.WithContext(ctx)

	var players []models.Player
	if err := conn.Where("id IN ?", playerIDs).Find(&players).Error; err != nil {
		return nil, apperr.FromStorage("duel players", err)
	}
	playersByID := make(map[string]models.Player, len(players))
	for _, p := range players {
		playersByID[p.ID] = p
	}

	activitiesByID := map[string]models.Activity{}
	if len(activityIDs) > 0 {
		var activities []models.Activity
		if err := conn.Where("id IN ?", activityIDs).Find(&activities).Error; err != nil {
			return nil, apperr.FromStorage("duel activities", err)
		}
		for _, a := range activities {
			activitiesByID[a.ID] = a
		}
	}

	var tags []models.DuelTag
	if err := conn.Where("duel_id IN ?", duelIDs).Order("tag").Find(&tags).Error; err != nil {
		return nil, apperr.FromStorage("duel tags", err)
	}
	tagsByDuel := map[string][]TagView{}
	for _, t := range tags {
		tagsByDuel[t.DuelID] = append(tagsByDuel[t.DuelID], TagView{Tag: t.Tag, Value: t.Value})
	}

	out := make([]DuelView, 0, len(duels))
	for _, d := range duels {
		v := DuelView{
			Duel:      d,
			Initiator: summarizePlayer(playersByID[d.InitiatorID]),
			Tags:      tagsByDuel[d.ID],
		}
		if v.Tags == nil {
			v.Tags = []TagView{}
		}
		if d.RecipientID != nil {
			r := summarizePlayer(playersByID[*d.RecipientID])
			v.Recipient = &r
		}
		if d.ActivityID != nil {
			if a, ok := activitiesByID[*d.ActivityID]; ok {
				v.Activity = &ActivitySummary{
					ID: a.ID, Name: a.Name, Value: a.Value, IsRepeatable: a.IsRepeatable, RepeatValue: a.RepeatValue,
				}
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// List returns duels the actor takes part in, newest first.
func (e *DuelEngine) List(ctx context.Context, actor Identity, f DuelFilter) ([]DuelView, error) {
	q := e.DB.WithContext(ctx).Model(&models.Duel{}).
		Where("project_id = ?", actor.ProjectID).
		Where("(initiator_id = ? OR recipient_id = ?)", actor.PlayerID, actor.PlayerID)

	if len(f.States) > 0 {
		q = q.Where("state IN ?", f.States)
	}
	if f.Active != nil {
		if *f.Active {
			q = q.Where("state IN ?", models.ActiveDuelStates)
		} else {
			q = q.Where("state NOT IN ?", models.ActiveDuelStates)
		}
	}
	if f.ActivityID != "" {
		q = q.Where("activity_id = ?", f.ActivityID)
	}
	if f.RecipientID != "" {
		q = q.Where("recipient_id = ?", f.RecipientID)
	}
	if f.MissingActivity != nil {
		if *f.MissingActivity {
			q = q.Where("activity_id IS NULL")
		} else {
			q = q.Where("activity_id IS NOT NULL")
		}
	}
	if f.MissingRecipient != nil {
		if *f.MissingRecipient {
			q = q.Where("recipient_id IS NULL")
		} else {
			q = q.Where("recipient_id IS NOT NULL")
		}
	}

	var duels []models.Duel
	if err := q.Order("created_at DESC").Find(&duels).Error; err != nil {
		return nil, apperr.FromStorage("list duels", err)
	}
	return buildDuelViews(ctx, e.DB, duels)
}

// Get returns one duel the actor takes part in.
func (e *DuelEngine) Get(ctx context.Context, actor Identity, duelID string) (*DuelView, error) {
	if err := requireID("duel", duelID); err != nil {
		return nil, err
	}
	var d models.Duel
	if err := e.DB.WithContext(ctx).Where("project_id = ? AND id = ?", actor.ProjectID, duelID).First(&d).Error; err != nil {
		return nil, apperr.FromStorage("duel", err)
	}
	if !d.IsParty(actor.PlayerID) {
		return nil, apperr.Unauthorized("not a participant in this duel")
	}
	return e.view(ctx, e.DB, d)
}

func (e *DuelEngine) view(ctx context.Context, db *gorm.DB, d models.Duel) (*DuelView, error) {
	views, err := buildDuelViews(ctx, db, []models.Duel{d})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}
