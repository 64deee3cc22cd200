// Package hooks is the typed extension-point registry. Engines dispatch to it
// at fixed points; plugins implement the per-point handler interfaces.
package hooks

import (
	"context"

	"game-session-backend/models"

	"gorm.io/gorm"
)

type Point string

const (
	ItemPreRedemption   Point = "itemPreRedemption"
	ItemRedemption      Point = "itemRedemption"
	DuelComplete        Point = "duelComplete"
	DuelCancelled       Point = "duelCancelled"
	PortalActivityClaim Point = "portalActivityClaim"
	ClaimPlayer         Point = "claimPlayer"
)

// Points lists every extension point in dispatch-registration order.
var Points = []Point{
	ItemPreRedemption, ItemRedemption, DuelComplete, DuelCancelled, PortalActivityClaim, ClaimPlayer,
}

// Scope is what every handler is given: the triggering transaction and the
// player whose request caused it. Writes through Tx commit or roll back with
// the triggering action.
type Scope struct {
	Ctx       context.Context
	Tx        *gorm.DB
	ProjectID string
	PlayerID  string
}

// Verdict is a pre-hook response. Any Failure aborts the triggering action.
type Verdict struct {
	Failure       bool   `json:"failure"`
	FailureReason string `json:"failureReason,omitempty"`
}

// Message is a post-hook response shown to the player.
type Message struct {
	Message string `json:"message"`
	Icon    string `json:"icon,omitempty"`
}

type ItemRedemptionPayload struct {
	Item      models.StoreItem
	Inventory models.InventoryRecord
}

type DuelPayload struct {
	Duel     models.Duel
	Activity *models.Activity
}

type ActivityClaimPayload struct {
	Activity models.Activity
	Player   models.Player
}

type PlayerClaimPayload struct {
	Player models.Player
}

type ItemPreRedemptionHandler interface {
	ItemPreRedemption(s Scope, p ItemRedemptionPayload) (*Verdict, error)
}

type ItemRedemptionHandler interface {
	ItemRedemption(s Scope, p ItemRedemptionPayload) (*Message, error)
}

type DuelCompleteHandler interface {
	DuelComplete(s Scope, p DuelPayload) (*Message, error)
}

type DuelCancelledHandler interface {
	DuelCancelled(s Scope, p DuelPayload) (*Message, error)
}

type PortalActivityClaimHandler interface {
	PortalActivityClaim(s Scope, p ActivityClaimPayload) (*Message, error)
}

type ClaimPlayerHandler interface {
	ClaimPlayer(s Scope, p PlayerClaimPayload) (*Message, error)
}

// implements reports whether h satisfies the handler interface for point.
func implements(point Point, h any) bool {
	switch point {
	case ItemPreRedemption:
		_, ok := h.(ItemPreRedemptionHandler)
		return ok
	case ItemRedemption:
		_, ok := h.(ItemRedemptionHandler)
		return ok
	case DuelComplete:
		_, ok := h.(DuelCompleteHandler)
		return ok
	case DuelCancelled:
		_, ok := h.(DuelCancelledHandler)
		return ok
	case PortalActivityClaim:
		_, ok := h.(PortalActivityClaimHandler)
		return ok
	case ClaimPlayer:
		_, ok := h.(ClaimPlayerHandler)
		return ok
	}
	return false
}

// PluginInfo names a plugin for logs and diagnostics.
type PluginInfo struct {
	Name    string
	SysName string
}

// Plugin is a bundle of handlers registered together at startup.
type Plugin interface {
	PluginInfo() *PluginInfo
}
