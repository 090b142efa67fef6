// File: internal/input/safety.go
package input

import (
	"go.uber.org/zap"

	"github.com/craigjson/pindlebot-v2/internal/humanize"
)

// UIState is supplied by the external detection layer. It answers the one
// question the interlock needs: is an inventory-like panel open right now?
type UIState interface {
	InventoryOpen() bool
}

// clickSafe implements the safety interlock: a left click is refused when the
// inventory is open and the pointer sits over the equipped-item slots or the
// restricted inventory area.
func (r *Router) clickSafe() bool {
	if r.ui == nil || !r.ui.InventoryOpen() {
		return true
	}

	pos, err := r.Position()
	if err != nil {
		r.logger.Error("Interlock could not read pointer position, refusing click", zap.Error(err))
		return false
	}

	// Translate from monitor space into the game window's screen space.
	screen := humanize.Point{
		X: pos.X - r.safety.WindowOriginX,
		Y: pos.Y - r.safety.WindowOriginY,
	}

	if r.safety.EquippedArea.Contains(screen.X, screen.Y) ||
		r.safety.RestrictedInventory.Contains(screen.X, screen.Y) {
		r.logger.Error("Pointer is over a forbidden inventory region, cancelling action",
			zap.Int("x", screen.X), zap.Int("y", screen.Y))
		return false
	}
	return true
}
