package plugins

import (
	"fmt"

	"game-session-backend/hooks"
)

// ClaimPlayer greets a player the first time their code is claimed.
type ClaimPlayer struct{}

var _ hooks.ClaimPlayerHandler = (*ClaimPlayer)(nil)

func (p *ClaimPlayer) PluginInfo() *hooks.PluginInfo {
	return &hooks.PluginInfo{Name: "Claim player", SysName: "claim_player"}
}

func (p *ClaimPlayer) ClaimPlayer(s hooks.Scope, in hooks.PlayerClaimPayload) (*hooks.Message, error) {
	return &hooks.Message{
		Message: fmt.Sprintf("Welcome, %s! Scan activity codes to earn points, then spend them in the store.", in.Player.Name),
		Icon:    "wave",
	}, nil
}
