// services/portal.go
package services

import (
	"context"
	"errors"

	"game-session-backend/apperr"
	"game-session-backend/hooks"
	"game-session-backend/logger"
	"game-session-backend/models"
	"game-session-backend/utils"

	"gorm.io/gorm"
)

const maxNameLength = 64

type PortalAction string

const (
	ActionClaimPlayer     PortalAction = "claimPlayer"
	ActionPlayerClaimed   PortalAction = "playerClaimed"
	ActionLogin           PortalAction = "login"
	ActionSelf            PortalAction = "self"
	ActionPlayer          PortalAction = "player"
	ActionUnclaimedPlayer PortalAction = "unclaimedPlayer"
	ActionActivity        PortalAction = "activity"
	ActionDuel            PortalAction = "duel"
	ActionActivityClaimed PortalAction = "activityClaimed"
	ActionItem            PortalAction = "item"
)

// PortalInput is a scanned or typed code. ProjectID is only needed when the
// caller has no session.
type PortalInput struct {
	ProjectID string `json:"projectUuid"`
	WordID    string `json:"wordId"`
	Name      string `json:"name"`
	RealName  string `json:"realName"`
}

type PortalResult struct {
	Action PortalAction    `json:"action"`
	Target string          `json:"targetUuid,omitempty"`
	Token  string          `json:"token,omitempty"`
	Hooks  hooks.Responses `json:"hooks,omitempty"`
}

// Portal turns scanned codes into navigation targets or claims.
type Portal struct {
	DB       *gorm.DB
	Sessions *SessionStore
	Ledger   *Ledger
	Hooks    *hooks.Manager
	Log      *logger.Logger
}

func NewPortal(db *gorm.DB, sessions *SessionStore, ledger *Ledger, hm *hooks.Manager, log *logger.Logger) *Portal {
	return &Portal{DB: db, Sessions: sessions, Ledger: ledger, Hooks: hm, Log: log}
}

func (p *Portal) resolveProject(ctx context.Context, actor *Identity, in PortalInput) (string, error) {
	if actor != nil {
		return actor.ProjectID, nil
	}
	if in.ProjectID == "" {
		return "", apperr.Validation("projectUuid is required without a session")
	}
	if err := requireID("project", in.ProjectID); err != nil {
		return "", err
	}
	var project models.Project
	if err := p.DB.WithContext(ctx).Select("id").First(&project, "id = ?", in.ProjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperr.NotFound("project not found")
		}
		return "", apperr.FromStorage("load project", err)
	}
	return project.ID, nil
}

func lookupByWord[T any](ctx context.Context, db *gorm.DB, kind, projectID, raw string) (T, error) {
	var row T
	word := utils.NormalizeWordID(raw)
	if word == "" {
		return row, apperr.Validation("wordId is required")
	}
	err := db.WithContext(ctx).Where("project_id = ? AND word_id = ?", projectID, word).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return row, apperr.NotFound("no %s matches that code", kind)
	}
	return row, apperr.FromStorage("lookup "+kind, err)
}

// Player resolves a player code. Without a session it claims or logs in as
// that player; the printed code is the credential. A code scan replaces the
// player's current login, so any token issued earlier stops resolving.
func (p *Portal) Player(ctx context.Context, actor *Identity, in PortalInput) (*PortalResult, error) {
	projectID, err := p.resolveProject(ctx, actor, in)
	if err != nil {
		return nil, err
	}
	player, err := lookupByWord[models.Player](ctx, p.DB, "player", projectID, in.WordID)
	if err != nil {
		return nil, err
	}

	if actor != nil {
		switch {
		case player.ID == actor.PlayerID:
			return &PortalResult{Action: ActionSelf, Target: player.ID}, nil
		case !player.Claimed:
			return &PortalResult{Action: ActionUnclaimedPlayer, Target: player.ID}, nil
		default:
			return &PortalResult{Action: ActionPlayer, Target: player.ID}, nil
		}
	}

	if player.Claimed {
		token, err := p.Sessions.StartSession(ctx, projectID, player.ID)
		if err != nil {
			return nil, err
		}
		p.Log.Info("player logged in", "player_id", player.ID)
		return &PortalResult{Action: ActionLogin, Target: player.ID, Token: token}, nil
	}
	if in.Name == "" {
		return &PortalResult{Action: ActionClaimPlayer, Target: player.ID}, nil
	}
	return p.claimPlayer(ctx, projectID, player.ID, in)
}

func (p *Portal) claimPlayer(ctx context.Context, projectID, playerID string, in PortalInput) (*PortalResult, error) {
	name, ok := utils.NormalizeName(in.Name, maxNameLength)
	if !ok {
		return nil, apperr.Validation("name must be between 1 and %d characters", maxNameLength)
	}
	realName, ok := utils.NormalizeName(in.RealName, maxNameLength)
	if !ok {
		return nil, apperr.Validation("realName must be between 1 and %d characters", maxNameLength)
	}

	result := &PortalResult{Action: ActionPlayerClaimed, Target: playerID, Hooks: hooks.Responses{}}
	err := p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		players, err := lockPlayers(tx, projectID, playerID)
		if err != nil {
			return err
		}
		player := players[playerID]
		if player.Claimed {
			return apperr.Conflict("this player has already been claimed")
		}
		player.Claimed = true
		player.Name = name
		player.RealName = realName
		if err := tx.Model(&player).Select("claimed", "name", "real_name", "updated_at").Updates(&player).Error; err != nil {
			return apperr.FromStorage("claim player", err)
		}
		if _, err := p.Ledger.RecordEvent(ctx, tx, EventInput{
			ProjectID: projectID,
			Type:      models.EventPlayerClaimed,
			Payload:   map[string]string{"name": name},
			PrimaryID: player.ID,
		}); err != nil {
			return err
		}

		scope := hooks.Scope{Ctx: ctx, Tx: tx, ProjectID: projectID, PlayerID: player.ID}
		msgs, err := p.Hooks.RunClaimPlayer(scope, hooks.PlayerClaimPayload{Player: player})
		if err != nil {
			return apperr.Internal("claim player hooks", err)
		}
		result.Hooks.Add(hooks.ClaimPlayer, msgs)

		result.Token, err = p.Sessions.StartSessionTx(ctx, tx, projectID, player.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	p.Log.Info("player claimed", "player_id", playerID)
	return result, nil
}

// Activity resolves an activity code. With a session, non-duel activities are
// claimed through the portalActivityClaim hooks.
func (p *Portal) Activity(ctx context.Context, actor *Identity, in PortalInput) (*PortalResult, error) {
	projectID, err := p.resolveProject(ctx, actor, in)
	if err != nil {
		return nil, err
	}
	activity, err := lookupByWord[models.Activity](ctx, p.DB, "activity", projectID, in.WordID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return &PortalResult{Action: ActionActivity, Target: activity.ID}, nil
	}
	if activity.IsDuel {
		return &PortalResult{Action: ActionDuel, Target: activity.ID}, nil
	}

	result := &PortalResult{Action: ActionActivityClaimed, Target: activity.ID, Hooks: hooks.Responses{}}
	err = p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serializes concurrent claims by the same player.
		players, err := lockPlayers(tx, projectID, actor.PlayerID)
		if err != nil {
			return err
		}
		scope := hooks.Scope{Ctx: ctx, Tx: tx, ProjectID: projectID, PlayerID: actor.PlayerID}
		msgs, err := p.Hooks.RunPortalActivityClaim(scope, hooks.ActivityClaimPayload{
			Activity: activity,
			Player:   players[actor.PlayerID],
		})
		if err != nil {
			return apperr.Internal("activity claim hooks", err)
		}
		result.Hooks.Add(hooks.PortalActivityClaim, msgs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Item resolves an item code to its page.
func (p *Portal) Item(ctx context.Context, actor *Identity, in PortalInput) (*PortalResult, error) {
	projectID, err := p.resolveProject(ctx, actor, in)
	if err != nil {
		return nil, err
	}
	item, err := lookupByWord[models.StoreItem](ctx, p.DB, "item", projectID, in.WordID)
	if err != nil {
		return nil, err
	}
	return &PortalResult{Action: ActionItem, Target: item.ID}, nil
}
