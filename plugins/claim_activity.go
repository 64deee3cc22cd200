package plugins

import (
	"fmt"

	"game-session-backend/hooks"
	"game-session-backend/models"
	"game-session-backend/services"
)

type ClaimType string

const (
	ClaimNew    ClaimType = "new"
	ClaimRepeat ClaimType = "repeat"
	ClaimNone   ClaimType = "none"
)

// ResolveClaim decides what a claim is worth given whether the player has
// claimed the activity before.
func ResolveClaim(claimedBefore bool, a models.Activity) (ClaimType, int64) {
	switch {
	case !claimedBefore:
		return ClaimNew, a.Value
	case a.IsRepeatable:
		return ClaimRepeat, a.RepeatValue
	default:
		return ClaimNone, 0
	}
}

// ClaimActivity awards points for scanned activities.
type ClaimActivity struct {
	Ledger *services.Ledger
}

var _ hooks.PortalActivityClaimHandler = (*ClaimActivity)(nil)

func (p *ClaimActivity) PluginInfo() *hooks.PluginInfo {
	return &hooks.PluginInfo{Name: "Claim activity", SysName: "claim_activity"}
}

func (p *ClaimActivity) PortalActivityClaim(s hooks.Scope, in hooks.ActivityClaimPayload) (*hooks.Message, error) {
	claimed, err := p.Ledger.HasClaimed(s.Ctx, s.Tx, s.ProjectID, in.Player.ID, in.Activity.ID)
	if err != nil {
		return nil, err
	}
	kind, amount := ResolveClaim(claimed, in.Activity)
	if kind == ClaimNone {
		return &hooks.Message{Message: fmt.Sprintf("You have already completed %s.", in.Activity.Name), Icon: "check"}, nil
	}

	_, err = p.Ledger.Post(s.Ctx, s.Tx, services.EventInput{
		ProjectID:   s.ProjectID,
		Type:        models.EventActivityCompleted,
		Payload:     map[string]any{"claimType": kind, "amount": amount},
		PrimaryID:   in.Activity.ID,
		SecondaryID: in.Player.ID,
	}, in.Player.ID, amount)
	if err != nil {
		return nil, err
	}

	if kind == ClaimRepeat {
		return &hooks.Message{Message: fmt.Sprintf("You earned %d more points for %s.", amount, in.Activity.Name), Icon: "repeat"}, nil
	}
	return &hooks.Message{Message: fmt.Sprintf("You earned %d points for %s!", amount, in.Activity.Name), Icon: "star"}, nil
}
