// services/locks.go
package services

import (
	"errors"
	"slices"

	"game-session-backend/apperr"
	"game-session-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// requireID rejects ids that cannot name a row, so they never reach a uuid column.
func requireID(kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.NotFound("%s not found", kind)
	}
	return nil
}

func lockDuel(tx *gorm.DB, projectID, duelID string) (models.Duel, error) {
	var d models.Duel
	if err := requireID("duel", duelID); err != nil {
		return d, err
	}
	err := forUpdate(tx).Where("project_id = ? AND id = ?", projectID, duelID).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return d, apperr.NotFound("duel not found")
	}
	return d, apperr.FromStorage("load duel", err)
}

// lockPlayers locks the given players in id order so concurrent requests
// touching the same pair cannot deadlock.
func lockPlayers(tx *gorm.DB, projectID string, ids ...string) (map[string]models.Player, error) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	out := make(map[string]models.Player, len(sorted))
	for _, id := range sorted {
		if err := requireID("player", id); err != nil {
			return nil, err
		}
		var p models.Player
		err := forUpdate(tx).Where("project_id = ? AND id = ?", projectID, id).First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("player not found")
		}
		if err != nil {
			return nil, apperr.FromStorage("load player", err)
		}
		out[id] = p
	}
	return out, nil
}

func findActivity(tx *gorm.DB, projectID, activityID string) (models.Activity, error) {
	var a models.Activity
	if err := requireID("activity", activityID); err != nil {
		return a, err
	}
	err := tx.Where("project_id = ? AND id = ?", projectID, activityID).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return a, apperr.NotFound("activity not found")
	}
	return a, apperr.FromStorage("load activity", err)
}

func findItem(tx *gorm.DB, projectID, itemID string) (models.StoreItem, error) {
	var item models.StoreItem
	if err := requireID("item", itemID); err != nil {
		return item, err
	}
	err := tx.Preload("Tags").Where("project_id = ? AND id = ?", projectID, itemID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return item, apperr.NotFound("item not found")
	}
	return item, apperr.FromStorage("load item", err)
}
