package engine

import (
	"cmp"
	"slices"
	"strings"

	"weatheralert/internal/types"
)

// Assemble merges weather and disaster alerts into the response. Duplicate ids
// keep their first occurrence. Alerts are ordered by severity rank, then most
// recent start (or creation) time, then id.
func Assemble(weather, disaster []types.Alert, risk types.RiskResult) types.AlertCheckResponse {
	seen := make(map[string]struct{}, len(weather)+len(disaster))
	alerts := make([]types.Alert, 0, len(weather)+len(disaster))

	for _, group := range [][]types.Alert{weather, disaster} {
		for _, a := range group {
			if a.ID == "" {
				continue
			}
			if _, dup := seen[a.ID]; dup {
				continue
			}
			seen[a.ID] = struct{}{}
			if a.Recommendations == nil {
				a.Recommendations = []string{}
			}
			alerts = append(alerts, a)
		}
	}

	slices.SortStableFunc(alerts, compareAlerts)

	return types.AlertCheckResponse{
		Alerts:    alerts,
		RiskScore: risk.Score,
		RiskLevel: risk.Level,
	}
}

func compareAlerts(a, b types.Alert) int {
	if c := cmp.Compare(b.Severity.Rank(), a.Severity.Rank()); c != 0 {
		return c
	}
	if c := b.SortTime().Compare(a.SortTime()); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}
