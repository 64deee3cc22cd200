// Package plugins holds the built-in game rules that ride on the hook
// registry. Each plugin is independent and can be left out at startup.
package plugins

import (
	"game-session-backend/hooks"
	"game-session-backend/logger"
	"game-session-backend/services"
)

// Builtins returns the default plugin set in registration order.
func Builtins(ledger *services.Ledger, log *logger.Logger) []hooks.Plugin {
	return []hooks.Plugin{
		&ClaimActivity{Ledger: ledger},
		&ClaimPlayer{},
		&RedemptionPoints{Ledger: ledger},
		&QueenDuel{Ledger: ledger, Log: log},
	}
}

// Register attaches each plugin to every extension point it handles.
func Register(m *hooks.Manager, log *logger.Logger, list ...hooks.Plugin) error {
	for _, p := range list {
		points, err := m.RegisterPlugin(p)
		if err != nil {
			return err
		}
		info := p.PluginInfo()
		log.Info("plugin registered", "plugin", info.SysName, "points", points)
	}
	return nil
}
