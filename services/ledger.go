// services/ledger.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"game-session-backend/apperr"
	"game-session-backend/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EventInput describes one ledger event.
type EventInput struct {
	ProjectID   string
	Type        models.EventType
	Payload     any
	PrimaryID   string
	SecondaryID string
}

// DuelCompletePayload is stored on DuelComplete events, one per participant.
type DuelCompletePayload struct {
	DuelID     string `json:"duelUuid"`
	ActivityID string `json:"activityUuid"`
	VictorID   string `json:"victorUuid"`
	OpponentID string `json:"opponentUuid"`
}

// Ledger appends events and transactions. Balances are always derived.
type Ledger struct {
	DB *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{DB: db}
}

func (l *Ledger) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return l.DB.WithContext(ctx)
}

func (l *Ledger) RecordEvent(ctx context.Context, tx *gorm.DB, in EventInput) (string, error) {
	var payload datatypes.JSON
	if in.Payload != nil {
		raw, err := json.Marshal(in.Payload)
		if err != nil {
			return "", apperr.Internal("encode event payload", err)
		}
		payload = datatypes.JSON(raw)
	}
	ev := models.Event{
		ID:        uuid.NewString(),
		ProjectID: in.ProjectID,
		Type:      in.Type,
		Payload:   payload,
		PrimaryID: in.PrimaryID,
	}
	if in.SecondaryID != "" {
		secondary := in.SecondaryID
		ev.SecondaryID = &secondary
	}
	if err := l.conn(ctx, tx).Create(&ev).Error; err != nil {
		return "", apperr.FromStorage("record event", err)
	}
	return ev.ID, nil
}

func (l *Ledger) RecordTransaction(ctx context.Context, tx *gorm.DB, projectID, playerID, eventID string, amount int64) error {
	if eventID == "" {
		return apperr.Internal("record transaction", errors.New("transaction without event"))
	}
	row := models.Transaction{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		PlayerID:  playerID,
		EventID:   eventID,
		Amount:    amount,
	}
	if err := l.conn(ctx, tx).Create(&row).Error; err != nil {
		return apperr.FromStorage("record transaction", err)
	}
	return nil
}

// Post writes an event and the player's transaction for it. tx must be the
// caller's transaction so the pair commits together.
func (l *Ledger) Post(ctx context.Context, tx *gorm.DB, in EventInput, playerID string, amount int64) (string, error) {
	eventID, err := l.RecordEvent(ctx, tx, in)
	if err != nil {
		return "", err
	}
	if err := l.RecordTransaction(ctx, tx, in.ProjectID, playerID, eventID, amount); err != nil {
		return "", err
	}
	return eventID, nil
}

// Balance sums every transaction for the player. tx may be nil.
func (l *Ledger) Balance(ctx context.Context, tx *gorm.DB, projectID, playerID string) (int64, error) {
	var total int64
	err := l.conn(ctx, tx).Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("project_id = ? AND player_id = ?", projectID, playerID).
		Scan(&total).Error
	if err != nil {
		return 0, apperr.FromStorage("balance", err)
	}
	return total, nil
}

// HasClaimed reports whether an ActivityCompleted event exists for (activity, player).
func (l *Ledger) HasClaimed(ctx context.Context, tx *gorm.DB, projectID, playerID, activityID string) (bool, error) {
	var count int64
	err := l.conn(ctx, tx).Model(&models.Event{}).
		Where("project_id = ? AND type = ? AND primary_id = ? AND secondary_id = ?",
			projectID, models.EventActivityCompleted, activityID, playerID).
		Count(&count).Error
	if err != nil {
		return false, apperr.FromStorage("has claimed", err)
	}
	return count > 0, nil
}

// HasWonDuelActivityBefore reports whether the player has a recorded duel win on the activity.
func (l *Ledger) HasWonDuelActivityBefore(ctx context.Context, tx *gorm.DB, projectID, playerID, activityID string) (bool, error) {
	var events []models.Event
	err := l.conn(ctx, tx).
		Where("project_id = ? AND type = ? AND primary_id = ? AND secondary_id = ?",
			projectID, models.EventDuelComplete, playerID, activityID).
		Find(&events).Error
	if err != nil {
		return false, apperr.FromStorage("has won duel activity", err)
	}
	for _, ev := range events {
		var p DuelCompletePayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return false, apperr.Internal("decode duel event", err)
		}
		if p.VictorID == playerID {
			return true, nil
		}
	}
	return false, nil
}

// HistoryEntry is a transaction joined with the event that caused it.
type HistoryEntry struct {
	TransactionID string           `json:"uuid"`
	Amount        int64            `json:"amount"`
	EventID       string           `json:"eventUuid"`
	EventType     models.EventType `json:"eventType"`
	Timestamp     time.Time        `json:"timestamp"`
}

// History returns the newest transactions for the player first.
func (l *Ledger) History(ctx context.Context, projectID, playerID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []models.Transaction
	err := l.DB.WithContext(ctx).
		Where("project_id = ? AND player_id = ?", projectID, playerID).
		Order("timestamp DESC").Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, apperr.FromStorage("history", err)
	}
	if len(rows) == 0 {
		return []HistoryEntry{}, nil
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.EventID)
	}
	var events []models.Event
	if err := l.DB.WithContext(ctx).Select("id", "type").Where("id IN ?", ids).Find(&events).Error; err != nil {
		return nil, apperr.FromStorage("history events", err)
	}
	types := make(map[string]models.EventType, len(events))
	for _, ev := range events {
		types[ev.ID] = ev.Type
	}
	out := make([]HistoryEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, HistoryEntry{
			TransactionID: r.ID,
			Amount:        r.Amount,
			EventID:       r.EventID,
			EventType:     types[r.EventID],
			Timestamp:     r.Timestamp,
		})
	}
	return out, nil
}
