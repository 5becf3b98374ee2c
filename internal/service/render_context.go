// internal/service/render_context.go
package service

import (
	"strings"
	"time"

	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/model"
)

// renderContext assembles the value tree handed to the template renderer:
// the recipient's frozen snapshot, the owning organization and the current
// date. Live member records are never consulted; only the snapshot is
// rendered.
func renderContext(org *model.Organization, campaign *model.Campaign, rec *model.Recipient, now time.Time) map[string]any {
	ctx := map[string]any{
		"today": now,
	}
	if campaign != nil {
		ctx["campaign"] = map[string]any{"name": campaign.Name}
	}
	if org != nil {
		ctx["organization"] = map[string]any{
			"name":      org.Name,
			"from_name": org.FromName,
			"website":   org.WebsiteURL,
		}
	}
	if rec != nil {
		first, last := splitName(rec.Name)
		member := map[string]any{
			"name":       rec.Name,
			"first_name": first,
			"last_name":  last,
			"email":      rec.Email,
		}
		ctx["member"] = member
		ctx["recipient"] = member
	}
	return ctx
}

func splitName(full string) (string, string) {
	parts := strings.SplitN(strings.TrimSpace(full), " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
