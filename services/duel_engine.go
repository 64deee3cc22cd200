// services/duel_engine.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"game-session-backend/apperr"
	"game-session-backend/hooks"
	"game-session-backend/logger"
	"game-session-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChangeType string

const (
	ChangeAddRecipient     ChangeType = "AddRecipient"
	ChangeAddActivity      ChangeType = "AddActivity"
	ChangeRecipientConfirm ChangeType = "RecipientConfirm"
	ChangeCancel           ChangeType = "Cancel"
	ChangeCancelConfirm    ChangeType = "CancelConfirm"
	ChangeVictor           ChangeType = "Victor"
	ChangeVictorConfirm    ChangeType = "VictorConfirm"
)

// Change is one command against a duel. Payload shape depends on Type.
type Change struct {
	Type    ChangeType      `json:"changeType"`
	Payload json.RawMessage `json:"payload"`
}

type CreateDuelInput struct {
	RecipientID string `json:"recipientUuid"`
	ActivityID  string `json:"activityUuid"`
}

type DuelResult struct {
	Duel  DuelView        `json:"duel"`
	Hooks hooks.Responses `json:"hooks"`
}

type DuelEngine struct {
	DB     *gorm.DB
	Ledger *Ledger
	Hooks  *hooks.Manager
	Log    *logger.Logger
}

func NewDuelEngine(db *gorm.DB, ledger *Ledger, hm *hooks.Manager, log *logger.Logger) *DuelEngine {
	return &DuelEngine{DB: db, Ledger: ledger, Hooks: hm, Log: log}
}

// duelTx carries one command through its transaction.
type duelTx struct {
	ctx       context.Context
	tx        *gorm.DB
	actor     Identity
	duel      *models.Duel
	responses hooks.Responses
}

func (d *duelTx) scope() hooks.Scope {
	return hooks.Scope{Ctx: d.ctx, Tx: d.tx, ProjectID: d.actor.ProjectID, PlayerID: d.actor.PlayerID}
}

// Create opens a duel with the actor as initiator. Supplying both recipient
// and activity starts it in Pending.
func (e *DuelEngine) Create(ctx context.Context, actor Identity, in CreateDuelInput) (*DuelView, error) {
	duel := models.Duel{
		ID:          uuid.NewString(),
		ProjectID:   actor.ProjectID,
		InitiatorID: actor.PlayerID,
		State:       models.DuelCreated,
	}
	err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.RecipientID != "" {
			if err := e.checkRecipient(tx, actor.ProjectID, actor.PlayerID, in.RecipientID, ""); err != nil {
				return err
			}
			recipient := in.RecipientID
			duel.RecipientID = &recipient
		} else if _, err := lockPlayers(tx, actor.ProjectID, actor.PlayerID); err != nil {
			return err
		}
		if in.ActivityID != "" {
			activity, err := duelActivity(tx, actor.ProjectID, in.ActivityID)
			if err != nil {
				return err
			}
			duel.ActivityID = &activity.ID
		}
		if duel.RecipientID != nil && duel.ActivityID != nil {
			duel.State = models.DuelPending
		}
		if err := tx.Create(&duel).Error; err != nil {
			return apperr.FromStorage("create duel", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.Log.Info("duel created", "duel_id", duel.ID, "state", duel.State, "player_id", actor.PlayerID)
	return e.view(ctx, e.DB, duel)
}

// Apply runs one command. Guards, writes, ledger postings and hooks share a
// single transaction; any failure leaves the duel untouched.
func (e *DuelEngine) Apply(ctx context.Context, actor Identity, duelID string, change Change) (*DuelResult, error) {
	var (
		duel      models.Duel
		from      models.DuelState
		responses = hooks.Responses{}
	)
	err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		duel, err = lockDuel(tx, actor.ProjectID, duelID)
		if err != nil {
			return err
		}
		if !duel.IsParty(actor.PlayerID) {
			return apperr.Unauthorized("not a participant in this duel")
		}
		from = duel.State
		dt := &duelTx{ctx: ctx, tx: tx, actor: actor, duel: &duel, responses: responses}

		switch change.Type {
		case ChangeAddRecipient:
			err = e.addRecipient(dt, change.Payload)
		case ChangeAddActivity:
			err = e.addActivity(dt, change.Payload)
		case ChangeRecipientConfirm:
			err = e.recipientConfirm(dt, change.Payload)
		case ChangeCancel:
			err = e.cancel(dt)
		case ChangeCancelConfirm:
			err = e.cancelConfirm(dt, change.Payload)
		case ChangeVictor:
			err = e.victor(dt, change.Payload)
		case ChangeVictorConfirm:
			err = e.victorConfirm(dt, change.Payload)
		case "":
			err = apperr.Validation("changeType is required")
		default:
			err = apperr.Validation("unknown changeType %q", change.Type)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	e.Log.Info("duel transition",
		"duel_id", duel.ID, "change", change.Type, "from", from, "to", duel.State, "player_id", actor.PlayerID)

	view, err := e.view(ctx, e.DB, duel)
	if err != nil {
		return nil, err
	}
	return &DuelResult{Duel: *view, Hooks: responses}, nil
}

func requireState(change ChangeType, current models.DuelState, allowed ...models.DuelState) error {
	for _, s := range allowed {
		if s == current {
			return nil
		}
	}
	names := make([]string, len(allowed))
	for i, s := range allowed {
		names[i] = string(s)
	}
	return apperr.Conflict("%s is only allowed when the duel is %s (currently %s)",
		change, strings.Join(names, " or "), current)
}

func decodePayload(raw json.RawMessage, dst any) error {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return apperr.Validation("payload is required")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperr.Validation("invalid payload: %v", err)
	}
	return nil
}

type acceptPayload struct {
	Accepted *bool `json:"accepted"`
}

func decodeAccepted(raw json.RawMessage) (bool, error) {
	var p acceptPayload
	if err := decodePayload(raw, &p); err != nil {
		return false, err
	}
	if p.Accepted == nil {
		return false, apperr.Validation("payload.accepted is required")
	}
	return *p.Accepted, nil
}

func (d *duelTx) save() error {
	if err := d.tx.Save(d.duel).Error; err != nil {
		return apperr.FromStorage("save duel", err)
	}
	return nil
}

func (e *DuelEngine) addRecipient(d *duelTx, raw json.RawMessage) error {
	if err := requireState(ChangeAddRecipient, d.duel.State, models.DuelCreated); err != nil {
		return err
	}
	if d.duel.RecipientID != nil {
		return apperr.Conflict("duel already has a recipient")
	}
	var p struct {
		RecipientID string `json:"recipientUuid"`
	}
	if err := decodePayload(raw, &p); err != nil {
		return err
	}
	if p.RecipientID == "" {
		return apperr.Validation("payload.recipientUuid is required")
	}
	if err := e.checkRecipient(d.tx, d.duel.ProjectID, d.duel.InitiatorID, p.RecipientID, d.duel.ID); err != nil {
		return err
	}
	d.duel.RecipientID = &p.RecipientID
	d.duel.State = models.DuelPending
	return d.save()
}

func (e *DuelEngine) addActivity(d *duelTx, raw json.RawMessage) error {
	if err := requireState(ChangeAddActivity, d.duel.State, models.DuelCreated, models.DuelPending); err != nil {
		return err
	}
	if d.duel.ActivityID != nil {
		return apperr.Conflict("duel already has an activity")
	}
	var p struct {
		ActivityID string `json:"activityUuid"`
	}
	if err := decodePayload(raw, &p); err != nil {
		return err
	}
	if p.ActivityID == "" {
		return apperr.Validation("payload.activityUuid is required")
	}
	activity, err := duelActivity(d.tx, d.duel.ProjectID, p.ActivityID)
	if err != nil {
		return err
	}
	d.duel.ActivityID = &activity.ID
	// Without a recipient there is nobody to answer, so the duel stays Created.
	if d.duel.RecipientID != nil {
		d.duel.State = models.DuelPending
	}
	return d.save()
}

func (e *DuelEngine) recipientConfirm(d *duelTx, raw json.RawMessage) error {
	if d.duel.RecipientID == nil || *d.duel.RecipientID != d.actor.PlayerID {
		return apperr.Unauthorized("only the recipient can answer a challenge")
	}
	if err := requireState(ChangeRecipientConfirm, d.duel.State, models.DuelPending); err != nil {
		return err
	}
	accepted, err := decodeAccepted(raw)
	if err != nil {
		return err
	}
	if !accepted {
		d.duel.State = models.DuelRejected
		return d.save()
	}
	if d.duel.ActivityID == nil {
		return apperr.Validation("an activity must be chosen before the duel can be accepted")
	}
	d.duel.State = models.DuelAccepted
	return d.save()
}

func (e *DuelEngine) cancel(d *duelTx) error {
	if d.duel.InitiatorID != d.actor.PlayerID {
		return apperr.Unauthorized("only the initiator can cancel a duel")
	}
	if err := requireState(ChangeCancel, d.duel.State,
		models.DuelCreated, models.DuelPending, models.DuelAccepted); err != nil {
		return err
	}
	if d.duel.State == models.DuelAccepted {
		d.duel.State = models.DuelPendingCancel
		return d.save()
	}
	return e.finishCancel(d)
}

func (e *DuelEngine) cancelConfirm(d *duelTx, raw json.RawMessage) error {
	if d.duel.RecipientID == nil || *d.duel.RecipientID != d.actor.PlayerID {
		return apperr.Unauthorized("only the recipient can confirm a cancellation")
	}
	if err := requireState(ChangeCancelConfirm, d.duel.State, models.DuelPendingCancel); err != nil {
		return err
	}
	accepted, err := decodeAccepted(raw)
	if err != nil {
		return err
	}
	if !accepted {
		d.duel.State = models.DuelAccepted
		return d.save()
	}
	return e.finishCancel(d)
}

func (e *DuelEngine) finishCancel(d *duelTx) error {
	d.duel.State = models.DuelCancelled
	if err := d.save(); err != nil {
		return err
	}
	payload := map[string]string{"duelUuid": d.duel.ID, "cancelledBy": d.actor.PlayerID}
	for _, participant := range participants(*d.duel) {
		_, err := e.Ledger.RecordEvent(d.ctx, d.tx, EventInput{
			ProjectID:   d.duel.ProjectID,
			Type:        models.EventDuelCancelled,
			Payload:     payload,
			PrimaryID:   participant,
			SecondaryID: d.duel.ID,
		})
		if err != nil {
			return err
		}
	}
	activity, err := optionalActivity(d.tx, *d.duel)
	if err != nil {
		return err
	}
	msgs, err := e.Hooks.RunDuelCancelled(d.scope(), hooks.DuelPayload{Duel: *d.duel, Activity: activity})
	if err != nil {
		return apperr.Internal("duel cancelled hooks", err)
	}
	d.responses.Add(hooks.DuelCancelled, msgs)
	return nil
}

func (e *DuelEngine) victor(d *duelTx, raw json.RawMessage) error {
	if err := requireState(ChangeVictor, d.duel.State, models.DuelAccepted); err != nil {
		return err
	}
	var p struct {
		InitiatorVictory *bool `json:"initiatorVictory"`
	}
	if err := decodePayload(raw, &p); err != nil {
		return err
	}
	if p.InitiatorVictory == nil {
		return apperr.Validation("payload.initiatorVictory is required")
	}
	victor := d.duel.InitiatorID
	if !*p.InitiatorVictory {
		victor = *d.duel.RecipientID
	}
	d.duel.VictorID = &victor
	if d.actor.PlayerID == d.duel.InitiatorID {
		d.duel.State = models.DuelPendingRecipientConfirm
	} else {
		d.duel.State = models.DuelPendingInitiatorConfirm
	}
	return d.save()
}

func (e *DuelEngine) victorConfirm(d *duelTx, raw json.RawMessage) error {
	if err := requireState(ChangeVictorConfirm, d.duel.State,
		models.DuelPendingInitiatorConfirm, models.DuelPendingRecipientConfirm); err != nil {
		return err
	}
	pending := d.duel.InitiatorID
	if d.duel.State == models.DuelPendingRecipientConfirm {
		pending = *d.duel.RecipientID
	}
	if d.actor.PlayerID != pending {
		return apperr.Unauthorized("the result must be confirmed by the other party")
	}
	accepted, err := decodeAccepted(raw)
	if err != nil {
		return err
	}
	if !accepted {
		d.duel.State = models.DuelAccepted
		d.duel.VictorID = nil
		return d.save()
	}
	return e.complete(d)
}

func (e *DuelEngine) complete(d *duelTx) error {
	if d.duel.VictorID == nil || d.duel.ActivityID == nil {
		return apperr.Internal("complete duel", fmt.Errorf("duel %s has no victor or activity", d.duel.ID))
	}
	activity, err := findActivity(d.tx, d.duel.ProjectID, *d.duel.ActivityID)
	if err != nil {
		return err
	}
	victor := *d.duel.VictorID

	// The victor's row serializes concurrent wins on the same activity, so
	// the earlier win is visible here before the repeat check.
	if _, err := lockPlayers(d.tx, d.duel.ProjectID, victor); err != nil {
		return err
	}
	// Checked before this duel's own events are written.
	wonBefore, err := e.Ledger.HasWonDuelActivityBefore(d.ctx, d.tx, d.duel.ProjectID, victor, activity.ID)
	if err != nil {
		return err
	}
	amount := activity.Value
	if wonBefore {
		amount = activity.RepeatValue
	}

	d.duel.State = models.DuelComplete
	if err := d.save(); err != nil {
		return err
	}

	for _, participant := range participants(*d.duel) {
		eventID, err := e.Ledger.RecordEvent(d.ctx, d.tx, EventInput{
			ProjectID: d.duel.ProjectID,
			Type:      models.EventDuelComplete,
			Payload: DuelCompletePayload{
				DuelID:     d.duel.ID,
				ActivityID: activity.ID,
				VictorID:   victor,
				OpponentID: d.duel.Opponent(participant),
			},
			PrimaryID:   participant,
			SecondaryID: activity.ID,
		})
		if err != nil {
			return err
		}
		if participant == victor {
			if err := e.Ledger.RecordTransaction(d.ctx, d.tx, d.duel.ProjectID, victor, eventID, amount); err != nil {
				return err
			}
		}
	}

	msgs, err := e.Hooks.RunDuelComplete(d.scope(), hooks.DuelPayload{Duel: *d.duel, Activity: &activity})
	if err != nil {
		return hookFailure("duel complete hooks", err)
	}
	d.responses.Add(hooks.DuelComplete, msgs)
	return nil
}

// checkRecipient validates a prospective recipient and enforces one active
// duel per pair. Both players are locked for the rest of the transaction.
func (e *DuelEngine) checkRecipient(tx *gorm.DB, projectID, initiatorID, recipientID, excludeDuelID string) error {
	if recipientID == initiatorID {
		return apperr.Validation("a player cannot duel themselves")
	}
	players, err := lockPlayers(tx, projectID, initiatorID, recipientID)
	if err != nil {
		return err
	}
	if !players[recipientID].Claimed {
		return apperr.Validation("that player has not joined the game yet")
	}
	active, err := activeDuelBetween(tx, projectID, initiatorID, recipientID, excludeDuelID)
	if err != nil {
		return err
	}
	if active {
		return apperr.Conflict("there is already an active duel between these players")
	}
	return nil
}

func activeDuelBetween(tx *gorm.DB, projectID, a, b, excludeDuelID string) (bool, error) {
	q := tx.Model(&models.Duel{}).
		Where("project_id = ? AND state IN ?", projectID, models.ActiveDuelStates).
		Where("((initiator_id = ? AND recipient_id = ?) OR (initiator_id = ? AND recipient_id = ?))", a, b, b, a)
	if excludeDuelID != "" {
		q = q.Where("id <> ?", excludeDuelID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, apperr.FromStorage("active duel check", err)
	}
	return count > 0, nil
}

func duelActivity(tx *gorm.DB, projectID, activityID string) (models.Activity, error) {
	activity, err := findActivity(tx, projectID, activityID)
	if err != nil {
		return activity, err
	}
	if !activity.IsDuel {
		return activity, apperr.Validation("%s is not a duel activity", activity.Name)
	}
	return activity, nil
}

func optionalActivity(tx *gorm.DB, d models.Duel) (*models.Activity, error) {
	if d.ActivityID == nil {
		return nil, nil
	}
	a, err := findActivity(tx, d.ProjectID, *d.ActivityID)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func participants(d models.Duel) []string {
	out := []string{d.InitiatorID}
	if d.RecipientID != nil {
		out = append(out, *d.RecipientID)
	}
	return out
}
