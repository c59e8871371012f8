package effective

import (
	"context"
	"log/slog"

	"github.com/mesh-intelligence/coinwatch/internal/localstore"
	"github.com/mesh-intelligence/coinwatch/internal/remote"
	"github.com/mesh-intelligence/coinwatch/internal/session"
	"github.com/mesh-intelligence/coinwatch/pkg/types"
)

// Alerts is the effective store for price alerts.
type Alerts struct {
	*Store[types.Alert, types.AlertDraft]
}

// NewAlerts builds the alerts store.
func NewAlerts(local *localstore.Collection[types.Alert, types.AlertDraft], rc *remote.Collection[types.Alert, types.AlertDraft], sp session.Provider, logger *slog.Logger) *Alerts {
	return &Alerts{Store: New(local, rc, sp, logger)}
}

// Toggle flips the active flag of the alert with the given id.
func (a *Alerts) Toggle(ctx context.Context, id string) bool {
	alert, ok := a.Get(ctx, id)
	if !ok {
		return false
	}
	return a.Update(ctx, id, types.Patch{"isActive": !alert.IsActive})
}

// ForCoin returns the alerts watching coinID.
func (a *Alerts) ForCoin(ctx context.Context, coinID string) []types.Alert {
	coinID = types.NormalizeCoinID(coinID)
	out := []types.Alert{}
	for _, alert := range a.List(ctx) {
		if alert.CoinID == coinID {
			out = append(out, alert)
		}
	}
	return out
}
