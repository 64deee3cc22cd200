// plugins/queen_duel.go
package plugins

import (
	"errors"
	"fmt"

	"game-session-backend/apperr"
	"game-session-backend/hooks"
	"game-session-backend/logger"
	"game-session-backend/models"
	"game-session-backend/services"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	TagQueen         = "queen"
	TagQueenActivity = "queen-activity"
	TagQueenItem     = "queen-item"
)

// QueenDuel runs a title contest on top of items, duels and tags. Redeeming
// a queen item crowns the player when the title is vacant, otherwise it opens
// a duel against the current titleholder. Whoever wins that duel holds the
// title afterwards.
type QueenDuel struct {
	Ledger *services.Ledger
	Log    *logger.Logger
}

var (
	_ hooks.ItemPreRedemptionHandler = (*QueenDuel)(nil)
	_ hooks.ItemRedemptionHandler    = (*QueenDuel)(nil)
	_ hooks.DuelCompleteHandler      = (*QueenDuel)(nil)
	_ hooks.DuelCancelledHandler     = (*QueenDuel)(nil)
)

func (p *QueenDuel) PluginInfo() *hooks.PluginInfo {
	return &hooks.PluginInfo{Name: "Queen duel", SysName: "queen_duel"}
}

func (p *QueenDuel) ItemPreRedemption(s hooks.Scope, in hooks.ItemRedemptionPayload) (*hooks.Verdict, error) {
	title, ok := in.Item.TagValue(TagQueen)
	if !ok {
		return nil, nil
	}
	// Held until the redemption commits, covering the crown or challenge below.
	if err := lockTitles(s.Tx, s.ProjectID); err != nil {
		return nil, err
	}

	holder, err := titleholder(s.Tx, s.ProjectID, title)
	if err != nil {
		return nil, err
	}
	if holder != nil && holder.PlayerID == s.PlayerID {
		return fail("You already hold the %s title.", title), nil
	}

	contest, err := activeTitleDuel(s.Tx, s.ProjectID, title)
	if err != nil {
		return nil, err
	}
	if contest != nil {
		if contest.IsParty(s.PlayerID) {
			return fail("You are already dueling for the %s title.", title), nil
		}
		return fail("Someone is already dueling for the %s title.", title), nil
	}

	if holder != nil {
		busy, err := pairHasActiveDuel(s.Tx, s.ProjectID, s.PlayerID, holder.PlayerID)
		if err != nil {
			return nil, err
		}
		if busy {
			return fail("You already have an active duel with the %s.", title), nil
		}
	}
	return nil, nil
}

func (p *QueenDuel) ItemRedemption(s hooks.Scope, in hooks.ItemRedemptionPayload) (*hooks.Message, error) {
	title, ok := in.Item.TagValue(TagQueen)
	if !ok {
		return nil, nil
	}

	holder, err := titleholder(s.Tx, s.ProjectID, title)
	if err != nil {
		return nil, err
	}
	if holder == nil {
		return p.crown(s, title, in.Item.ID)
	}

	duel := models.Duel{
		ID:          uuid.NewString(),
		ProjectID:   s.ProjectID,
		InitiatorID: s.PlayerID,
		RecipientID: &holder.PlayerID,
		State:       models.DuelCreated,
	}
	if raw, ok := in.Item.TagValue(TagQueenActivity); ok {
		activity, err := duelActivity(s.Tx, s.ProjectID, raw)
		if err != nil {
			return nil, err
		}
		if activity != nil {
			duel.ActivityID = &activity.ID
			duel.State = models.DuelPending
		}
	}
	if err := s.Tx.Create(&duel).Error; err != nil {
		return nil, fmt.Errorf("create title duel: %w", err)
	}
	tags := []models.DuelTag{
		{ID: uuid.NewString(), ProjectID: s.ProjectID, DuelID: duel.ID, Tag: TagQueen, Value: title},
		{ID: uuid.NewString(), ProjectID: s.ProjectID, DuelID: duel.ID, Tag: TagQueenItem, Value: in.Item.ID},
	}
	if err := s.Tx.Create(&tags).Error; err != nil {
		return nil, fmt.Errorf("tag title duel: %w", err)
	}

	if p.Log != nil {
		p.Log.Info("title duel opened", "duel", duel.ID, "title", title, "state", duel.State)
	}
	return &hooks.Message{
		Message: fmt.Sprintf("You have challenged the %s for the title. Win the duel to take it.", title),
		Icon:    "crown",
	}, nil
}

func (p *QueenDuel) crown(s hooks.Scope, title, itemID string) (*hooks.Message, error) {
	tag := models.PlayerTag{ID: uuid.NewString(), ProjectID: s.ProjectID, PlayerID: s.PlayerID, Tag: TagQueen, Value: title}
	if err := s.Tx.Create(&tag).Error; err != nil {
		return nil, apperr.FromStorage("crown player", err)
	}
	_, err := p.Ledger.RecordEvent(s.Ctx, s.Tx, services.EventInput{
		ProjectID:   s.ProjectID,
		Type:        models.EventQueenCrowned,
		Payload:     map[string]any{"title": title, "itemUuid": itemID},
		PrimaryID:   s.PlayerID,
		SecondaryID: itemID,
	})
	if err != nil {
		return nil, err
	}
	return &hooks.Message{Message: fmt.Sprintf("The %s title was vacant. It is yours now!", title), Icon: "crown"}, nil
}

func (p *QueenDuel) DuelComplete(s hooks.Scope, in hooks.DuelPayload) (*hooks.Message, error) {
	title, _, ok, err := titleDuelTags(s.Tx, in.Duel.ID)
	if err != nil || !ok {
		return nil, err
	}
	if in.Duel.VictorID == nil {
		return nil, errors.New("title duel completed without a victor")
	}
	victor := *in.Duel.VictorID
	challengerWon := victor == in.Duel.InitiatorID

	if challengerWon {
		if err := lockTitles(s.Tx, s.ProjectID); err != nil {
			return nil, err
		}
		loser := in.Duel.Opponent(victor)
		res := s.Tx.Where("project_id = ? AND tag = ? AND value = ?", s.ProjectID, TagQueen, title).
			Delete(&models.PlayerTag{})
		if res.Error != nil {
			return nil, fmt.Errorf("revoke title: %w", res.Error)
		}
		tag := models.PlayerTag{ID: uuid.NewString(), ProjectID: s.ProjectID, PlayerID: victor, Tag: TagQueen, Value: title}
		if err := s.Tx.Create(&tag).Error; err != nil {
			return nil, apperr.FromStorage("transfer title", err)
		}
		_, err := p.Ledger.RecordEvent(s.Ctx, s.Tx, services.EventInput{
			ProjectID:   s.ProjectID,
			Type:        models.EventQueenTitleTransferred,
			Payload:     map[string]any{"title": title, "duelUuid": in.Duel.ID, "from": loser, "to": victor},
			PrimaryID:   victor,
			SecondaryID: in.Duel.ID,
		})
		if err != nil {
			return nil, err
		}
	}

	return &hooks.Message{Message: titleOutcome(title, s.PlayerID == victor, challengerWon), Icon: "crown"}, nil
}

// titleOutcome words the result for the player who confirmed the duel.
func titleOutcome(title string, sessionWon, challengerWon bool) string {
	switch {
	case sessionWon && challengerWon:
		return fmt.Sprintf("You won the duel and took the %s title!", title)
	case sessionWon:
		return fmt.Sprintf("You defended your %s title.", title)
	case challengerWon:
		return fmt.Sprintf("You lost the duel and the %s title has passed to your challenger.", title)
	default:
		return fmt.Sprintf("Your challenge for the %s title has failed.", title)
	}
}

// DuelCancelled gives the challenger back the unit spent opening the duel.
func (p *QueenDuel) DuelCancelled(s hooks.Scope, in hooks.DuelPayload) (*hooks.Message, error) {
	title, itemID, ok, err := titleDuelTags(s.Tx, in.Duel.ID)
	if err != nil || !ok || itemID == "" {
		return nil, err
	}
	res := s.Tx.Model(&models.InventoryRecord{}).
		Where("project_id = ? AND player_id = ? AND item_id = ? AND quantity_redeemed > 0",
			s.ProjectID, in.Duel.InitiatorID, itemID).
		UpdateColumn("quantity_redeemed", gorm.Expr("quantity_redeemed - 1"))
	if res.Error != nil {
		return nil, fmt.Errorf("restore title item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &hooks.Message{
		Message: fmt.Sprintf("The challenge for the %s title was called off and the item returned.", title),
		Icon:    "undo",
	}, nil
}

func fail(format string, args ...any) *hooks.Verdict {
	return &hooks.Verdict{Failure: true, FailureReason: fmt.Sprintf(format, args...)}
}

// lockTitles locks the project row. Every title check and change in the
// project queues behind it.
func lockTitles(tx *gorm.DB, projectID string) error {
	var p models.Project
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&p, "id = ?", projectID).Error
	if err != nil {
		return fmt.Errorf("lock titles: %w", err)
	}
	return nil
}

func titleholder(tx *gorm.DB, projectID, title string) (*models.PlayerTag, error) {
	var tag models.PlayerTag
	err := tx.Where("project_id = ? AND tag = ? AND value = ?", projectID, TagQueen, title).
		Order("created_at").First(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load titleholder: %w", err)
	}
	return &tag, nil
}

func activeTitleDuel(tx *gorm.DB, projectID, title string) (*models.Duel, error) {
	var duels []models.Duel
	err := tx.Model(&models.Duel{}).
		Joins("JOIN duel_tags ON duel_tags.duel_id = project_duels.id").
		Where("project_duels.project_id = ? AND duel_tags.tag = ? AND duel_tags.value = ? AND project_duels.state IN ?",
			projectID, TagQueen, title, models.ActiveDuelStates).
		Limit(1).Find(&duels).Error
	if err != nil {
		return nil, fmt.Errorf("load title duels: %w", err)
	}
	if len(duels) == 0 {
		return nil, nil
	}
	return &duels[0], nil
}

func pairHasActiveDuel(tx *gorm.DB, projectID, a, b string) (bool, error) {
	var count int64
	err := tx.Model(&models.Duel{}).
		Where("project_id = ? AND state IN ?", projectID, models.ActiveDuelStates).
		Where("(initiator_id = ? AND recipient_id = ?) OR (initiator_id = ? AND recipient_id = ?)", a, b, b, a).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count pair duels: %w", err)
	}
	return count > 0, nil
}

// titleDuelTags reads the queen tags of a duel. ok is false for ordinary duels.
func titleDuelTags(tx *gorm.DB, duelID string) (title, itemID string, ok bool, err error) {
	var tags []models.DuelTag
	if err := tx.Where("duel_id = ? AND tag IN ?", duelID, []string{TagQueen, TagQueenItem}).Find(&tags).Error; err != nil {
		return "", "", false, fmt.Errorf("load duel tags: %w", err)
	}
	for _, t := range tags {
		switch t.Tag {
		case TagQueen:
			title, ok = t.Value, true
		case TagQueenItem:
			itemID = t.Value
		}
	}
	return title, itemID, ok, nil
}

// duelActivity resolves the queen-activity tag. An unknown or non-duel
// activity leaves the duel without one.
func duelActivity(tx *gorm.DB, projectID, raw string) (*models.Activity, error) {
	if _, err := uuid.Parse(raw); err != nil {
		return nil, nil
	}
	var a models.Activity
	err := tx.Where("project_id = ? AND id = ? AND is_duel = ?", projectID, raw, true).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load queen activity: %w", err)
	}
	return &a, nil
}
