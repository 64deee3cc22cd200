package plugins

import (
	"fmt"
	"strconv"
	"strings"

	"game-session-backend/hooks"
	"game-session-backend/models"
	"game-session-backend/services"
)

const TagRedeemPoints = "redeem-points"

// RedemptionPoints turns redeemed items tagged redeem-points into points.
type RedemptionPoints struct {
	Ledger *services.Ledger
}

var _ hooks.ItemRedemptionHandler = (*RedemptionPoints)(nil)

func (p *RedemptionPoints) PluginInfo() *hooks.PluginInfo {
	return &hooks.PluginInfo{Name: "Redemption points", SysName: "redemption_points"}
}

func (p *RedemptionPoints) ItemRedemption(s hooks.Scope, in hooks.ItemRedemptionPayload) (*hooks.Message, error) {
	raw, ok := in.Item.TagValue(TagRedeemPoints)
	if !ok {
		return nil, nil
	}
	amount, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("item %s has a non-numeric %s tag %q", in.Item.ID, TagRedeemPoints, raw)
	}

	_, err = p.Ledger.Post(s.Ctx, s.Tx, services.EventInput{
		ProjectID:   s.ProjectID,
		Type:        models.EventRedemptionPoints,
		Payload:     map[string]any{"itemUuid": in.Item.ID, "amount": amount},
		PrimaryID:   in.Item.ID,
		SecondaryID: s.PlayerID,
	}, s.PlayerID, amount)
	if err != nil {
		return nil, err
	}
	return &hooks.Message{Message: fmt.Sprintf("You received %d points from %s.", amount, in.Item.Name), Icon: "coins"}, nil
}
