// services/redemption_engine.go
package services

import (
	"context"
	"errors"

	"game-session-backend/apperr"
	"game-session-backend/hooks"
	"game-session-backend/logger"
	"game-session-backend/models"
	"game-session-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RedeemInput struct {
	ItemID    string `json:"itemUuid"`
	Challenge string `json:"challenge"`
}

type PurchaseInput struct {
	ItemID string `json:"itemUuid"`
}

type RedeemResult struct {
	Hooks hooks.Responses `json:"hooks"`
}

type PurchaseResult struct {
	Inventory models.InventoryRecord `json:"inventory"`
	Balance   int64                  `json:"balance"`
}

// PreRedemptionVeto is the caller-facing body of a vetoed redemption.
type PreRedemptionVeto struct {
	Hooks map[string][]hooks.Verdict `json:"hooks"`
}

type InventoryEntry struct {
	models.InventoryRecord
	Item ItemSummary `json:"item"`
}

type ItemSummary struct {
	ID           string `json:"uuid"`
	Name         string `json:"name"`
	Icon         string `json:"icon"`
	IsRedeemable bool   `json:"isRedeemable"`
	HasChallenge bool   `json:"hasChallenge"`
}

type RedemptionEngine struct {
	DB     *gorm.DB
	Ledger *Ledger
	Hooks  *hooks.Manager
	Log    *logger.Logger
}

func NewRedemptionEngine(db *gorm.DB, ledger *Ledger, hm *hooks.Manager, log *logger.Logger) *RedemptionEngine {
	return &RedemptionEngine{DB: db, Ledger: ledger, Hooks: hm, Log: log}
}

// Redeem consumes one unit of an owned item. Pre-redemption hooks may veto,
// in which case nothing is written.
func (e *RedemptionEngine) Redeem(ctx context.Context, actor Identity, in RedeemInput) (*RedeemResult, error) {
	if in.ItemID == "" {
		return nil, apperr.Validation("itemUuid is required")
	}
	responses := hooks.Responses{}
	err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := findItem(tx, actor.ProjectID, in.ItemID)
		if err != nil {
			return err
		}
		if !item.IsRedeemable {
			return apperr.Validation("%s cannot be redeemed", item.Name)
		}
		if item.RedemptionChallenge != "" && !utils.SameAnswer(in.Challenge, item.RedemptionChallenge) {
			return apperr.Validation("incorrect challenge answer")
		}

		var inv models.InventoryRecord
		err = forUpdate(tx).
			Where("project_id = ? AND player_id = ? AND item_id = ?", actor.ProjectID, actor.PlayerID, item.ID).
			First(&inv).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && inv.Redeemable() < 1) {
			return apperr.Validation("you have no %s left to redeem", item.Name)
		}
		if err != nil {
			return apperr.FromStorage("load inventory", err)
		}

		scope := hooks.Scope{Ctx: ctx, Tx: tx, ProjectID: actor.ProjectID, PlayerID: actor.PlayerID}
		payload := hooks.ItemRedemptionPayload{Item: item, Inventory: inv}

		verdicts, err := e.Hooks.RunItemPreRedemption(scope, payload)
		if err != nil {
			return hookFailure("pre-redemption hooks", err)
		}
		if hooks.Failed(verdicts) {
			e.Log.Warn("redemption vetoed", "item_id", item.ID, "player_id", actor.PlayerID)
			return apperr.Veto("redemption vetoed", PreRedemptionVeto{
				Hooks: map[string][]hooks.Verdict{"preItemRedemption": verdicts},
			})
		}

		res := tx.Model(&models.InventoryRecord{}).
			Where("id = ? AND quantity - quantity_redeemed >= 1", inv.ID).
			UpdateColumn("quantity_redeemed", gorm.Expr("quantity_redeemed + 1"))
		if res.Error != nil {
			return apperr.FromStorage("redeem inventory", res.Error)
		}
		if res.RowsAffected != 1 {
			return apperr.Validation("you have no %s left to redeem", item.Name)
		}
		inv.QuantityRedeemed++
		payload.Inventory = inv

		if _, err := e.Ledger.RecordEvent(ctx, tx, EventInput{
			ProjectID:   actor.ProjectID,
			Type:        models.EventItemRedeemed,
			Payload:     map[string]any{"itemUuid": item.ID, "quantityRedeemed": inv.QuantityRedeemed},
			PrimaryID:   item.ID,
			SecondaryID: actor.PlayerID,
		}); err != nil {
			return err
		}

		msgs, err := e.Hooks.RunItemRedemption(scope, payload)
		if err != nil {
			return hookFailure("redemption hooks", err)
		}
		responses.Add(hooks.ItemRedemption, msgs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.Log.Info("item redeemed", "item_id", in.ItemID, "player_id", actor.PlayerID)
	return &RedeemResult{Hooks: responses}, nil
}

// Purchase spends the item's cost from the actor's balance and adds one unit
// to their inventory.
func (e *RedemptionEngine) Purchase(ctx context.Context, actor Identity, in PurchaseInput) (*PurchaseResult, error) {
	if in.ItemID == "" {
		return nil, apperr.Validation("itemUuid is required")
	}
	var result PurchaseResult
	err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The player row lock serializes balance checks for this player.
		if _, err := lockPlayers(tx, actor.ProjectID, actor.PlayerID); err != nil {
			return err
		}
		item, err := findItem(tx, actor.ProjectID, in.ItemID)
		if err != nil {
			return err
		}
		if !item.IsPurchasable {
			return apperr.Validation("%s is not for sale", item.Name)
		}
		balance, err := e.Ledger.Balance(ctx, tx, actor.ProjectID, actor.PlayerID)
		if err != nil {
			return err
		}
		if balance < item.Cost {
			return apperr.Validation("insufficient balance: %s costs %d, you have %d", item.Name, item.Cost, balance)
		}

		if _, err := e.Ledger.Post(ctx, tx, EventInput{
			ProjectID:   actor.ProjectID,
			Type:        models.EventItemPurchased,
			Payload:     map[string]any{"itemUuid": item.ID, "cost": item.Cost},
			PrimaryID:   item.ID,
			SecondaryID: actor.PlayerID,
		}, actor.PlayerID, -item.Cost); err != nil {
			return err
		}

		inv, err := addInventory(tx, actor.ProjectID, actor.PlayerID, item.ID, 1)
		if err != nil {
			return err
		}
		result = PurchaseResult{Inventory: inv, Balance: balance - item.Cost}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.Log.Info("item purchased", "item_id", in.ItemID, "player_id", actor.PlayerID, "balance", result.Balance)
	return &result, nil
}

// Inventory lists the actor's items.
func (e *RedemptionEngine) Inventory(ctx context.Context, actor Identity) ([]InventoryEntry, error) {
	var records []models.InventoryRecord
	err := e.DB.WithContext(ctx).
		Where("project_id = ? AND player_id = ?", actor.ProjectID, actor.PlayerID).
		Order("created_at").Find(&records).Error
	if err != nil {
		return nil, apperr.FromStorage("inventory", err)
	}
	out := make([]InventoryEntry, 0, len(records))
	if len(records) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ItemID)
	}
	var items []models.StoreItem
	if err := e.DB.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, apperr.FromStorage("inventory items", err)
	}
	byID := make(map[string]models.StoreItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	for _, r := range records {
		it := byID[r.ItemID]
		out = append(out, InventoryEntry{
			InventoryRecord: r,
			Item: ItemSummary{
				ID: it.ID, Name: it.Name, Icon: it.Icon,
				IsRedeemable: it.IsRedeemable, HasChallenge: it.RedemptionChallenge != "",
			},
		})
	}
	return out, nil
}

// addInventory upserts a player's inventory row and returns it after the change.
func addInventory(tx *gorm.DB, projectID, playerID, itemID string, delta int64) (models.InventoryRecord, error) {
	row := models.InventoryRecord{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		PlayerID:  playerID,
		ItemID:    itemID,
		Quantity:  delta,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "project_id"}, {Name: "player_id"}, {Name: "item_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr("project_player_inventory.quantity + ?", delta),
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&row).Error
	if err != nil {
		return row, apperr.FromStorage("add inventory", err)
	}
	var out models.InventoryRecord
	err = tx.Where("project_id = ? AND player_id = ? AND item_id = ?", projectID, playerID, itemID).First(&out).Error
	return out, apperr.FromStorage("reload inventory", err)
}

// hookFailure aborts the transaction for a failed hook. Conflicts keep their
// kind so a lost race reads as one; anything else is internal.
func hookFailure(op string, err error) error {
	if apperr.KindOf(err) == apperr.KindConflict {
		return err
	}
	return apperr.Internal(op, err)
}
