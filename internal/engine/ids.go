package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"weatheralert/internal/types"
)

// alertID derives a stable id from the alert type, its window start and the
// evaluation origin, so re-evaluating the same inputs yields the same id.
func alertID(t types.AlertType, windowStart time.Time, origin types.Location) string {
	input := fmt.Sprintf("%s|%s|%.4f|%.4f", t, windowStart.UTC().Format(time.RFC3339), origin.Lat, origin.Lon)
	hash := sha256.Sum256([]byte(input))
	return strings.ToLower(string(t)) + "_" + hex.EncodeToString(hash[:8])
}

func earthquakeAlertID(eventID string) string { return "eq_" + eventID }

func tsunamiAlertID(eventID string) string { return "tsunami_" + eventID }
