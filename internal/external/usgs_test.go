package external

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"weatheralert/internal/config"
	"weatheralert/internal/types"
)

var feedNow = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

func feature(id string, mag float64, at time.Time, updated int64, tsunami int, kind string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"properties": {"mag": %v, "place": "10 km S of Somewhere", "time": %d, "updated": %d,
			"felt": 12, "tsunami": %d, "url": "https://earthquake.usgs.gov/%s", "type": %q},
		"geometry": {"coordinates": [139.7, 35.6, 24.5]}
	}`, id, mag, at.UnixMilli(), updated, tsunami, id, kind)
}

func feedBody(features ...string) string {
	body := `{"type":"FeatureCollection","features":[`
	for i, f := range features {
		if i > 0 {
			body += ","
		}
		body += f
	}
	return body + "]}"
}

func newUSGSTestClient(t *testing.T, urls ...string) *USGSClient {
	t.Helper()
	return NewUSGSClient(config.DisasterFeedConfig{
		FeedURLs:     urls,
		MinMagnitude: 4.0,
		MaxAge:       24 * time.Hour,
		Timeout:      5 * time.Second,
	}, "WeatherAlert-Test/1.0", clockwork.NewFakeClockAt(feedNow), nil, WithSleepFunc(noopSleep))
}

func TestUSGSClient_RecentFiltersAndNormalizes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feedBody(
			feature("us7000a", 6.8, feedNow.Add(-2*time.Hour), 1, 1, "earthquake"),
			feature("us7000b", 3.2, feedNow.Add(-time.Hour), 1, 0, "earthquake"),
			feature("us7000c", 5.0, feedNow.Add(-30*time.Hour), 1, 0, "earthquake"),
			feature("us7000d", 4.5, feedNow.Add(-time.Hour), 1, 0, "quarry blast"),
			feature("us7000e", 4.9, feedNow.Add(-time.Hour), 1, 0, "earthquake"),
		)))
	}))
	defer server.Close()

	events, err := newUSGSTestClient(t, server.URL).Recent(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 relevant events, got %d: %+v", len(events), events)
	}

	// Newest first.
	if events[0].ID != "us7000e" || events[1].ID != "us7000a" {
		t.Errorf("order = %s, %s", events[0].ID, events[1].ID)
	}

	ev := events[1]
	if ev.Kind != types.DisasterEarthquake || ev.Source != types.SourceUSGS {
		t.Errorf("kind/source = %s/%s", ev.Kind, ev.Source)
	}
	if ev.Epicenter != (types.Location{Lat: 35.6, Lon: 139.7}) {
		t.Errorf("Epicenter = %+v", ev.Epicenter)
	}
	if ev.DepthKm == nil || *ev.DepthKm != 24.5 {
		t.Errorf("DepthKm = %v", ev.DepthKm)
	}
	if ev.FeltReports == nil || *ev.FeltReports != 12 {
		t.Errorf("FeltReports = %v", ev.FeltReports)
	}
	if ev.Tsunami == nil || ev.Tsunami.TriggerMagnitude != 6.8 || !ev.Tsunami.IsCoastalArea {
		t.Errorf("Tsunami = %+v", ev.Tsunami)
	}
	if events[0].Tsunami != nil {
		t.Error("unflagged event should carry no tsunami info")
	}
	if !ev.Time.Equal(feedNow.Add(-2 * time.Hour)) {
		t.Errorf("Time = %v", ev.Time)
	}
}

func TestUSGSClient_MergesFeeds(t *testing.T) {
	at := feedNow.Add(-time.Hour)
	significant := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feedBody(feature("us1", 6.1, at, 200, 0, "earthquake"))))
	}))
	defer significant.Close()
	daily := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feedBody(
			feature("us1", 6.0, at, 100, 0, "earthquake"),
			feature("us2", 4.7, at, 100, 0, "earthquake"),
		)))
	}))
	defer daily.Close()

	events, err := newUSGSTestClient(t, significant.URL, daily.URL).Recent(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 merged events, got %d", len(events))
	}
	for _, ev := range events {
		if ev.ID == "us1" && ev.Magnitude != 6.1 {
			t.Errorf("expected the most recently updated copy, got magnitude %v", ev.Magnitude)
		}
	}
}

func TestUSGSClient_PartialFailure(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feedBody(feature("us1", 5.5, feedNow, 1, 0, "earthquake"))))
	}))
	defer ok.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer broken.Close()

	events, err := newUSGSTestClient(t, ok.URL, broken.URL).Recent(context.Background())
	if err != nil {
		t.Fatalf("one healthy feed should be enough, got %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 event, got %d", len(events))
	}
}

func TestUSGSClient_AllFeedsFail(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer broken.Close()

	_, err := newUSGSTestClient(t, broken.URL).Recent(context.Background())
	if got := appErrorCode(t, err); got != types.ErrCodeUpstreamDisasterFeed {
		t.Errorf("code = %s", got)
	}
}
