package projections

import (
	"context"

	"tourbook-backend/internal/model"
)

// InvalidateStats drops the cached stats of the vendor a booking event
// belongs to, so other API instances stop serving the old totals.
func InvalidateStats(ctx context.Context, stats StatsInvalidator, evt model.Event) {
	if stats == nil || evt.VendorID == "" {
		return
	}
	stats.InvalidateVendorStats(ctx, evt.VendorID)
}
