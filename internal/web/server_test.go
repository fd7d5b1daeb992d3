package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/halo-heater/internal/clock"
	"github.com/sweeney/halo-heater/internal/control"
	"github.com/sweeney/halo-heater/internal/journal"
	"github.com/sweeney/halo-heater/internal/logic"
	"github.com/sweeney/halo-heater/internal/settings"
	"github.com/sweeney/halo-heater/internal/state"
	"github.com/sweeney/halo-heater/internal/status"
)

type fakeHistory struct {
	entries []journal.Entry
	err     error
	limit   int
}

func (h *fakeHistory) Recent(_ context.Context, limit int) ([]journal.Entry, error) {
	h.limit = limit
	return h.entries, h.err
}

type rig struct {
	ts           *httptest.Server
	tracker      *status.Tracker
	store        *state.Store
	history      *fakeHistory
	settingsPath string
}

func newTestServer(t *testing.T) *rig {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		MainsHz:     50,
		LongPressMs: 1500,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPAddr:    ":80",
	}

	d := logic.NewDevice()
	d.Mode = logic.ModeOnline
	d.Menu = logic.MenuOperational
	d.Base = 80
	d.Comfort = logic.ComfortMedium
	d.Temperature = logic.Celsius(19)
	store := state.NewStore(d)

	path := filepath.Join(t.TempDir(), "settings.json")
	panel := control.New(store, nil, clock.NewFake(start), path, nil, nil)
	history := &fakeHistory{}

	tr := status.NewTracker(start, cfg, store)
	srv := New(":0", tr, panel, history, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &rig{ts: ts, tracker: tr, store: store, history: history, settingsPath: path}
}

// noRedirect reports 303s instead of following them.
var noRedirect = &http.Client{
	CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
}

func TestJSONEndpoint(t *testing.T) {
	r := newTestServer(t)
	r.tracker.SetMQTTConnected(true)

	resp, err := http.Get(r.ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if sj.Status.Heater.Percentage != 80 {
		t.Errorf("Percentage: got %d, want 80", sj.Status.Heater.Percentage)
	}
	if sj.Status.Heater.EffectivePercent != 40 {
		t.Errorf("EffectivePercent: got %v, want 40", sj.Status.Heater.EffectivePercent)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.Config.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("Config.Broker: got %q", sj.Status.Config.Broker)
	}
}

func TestStatusEndpoint(t *testing.T) {
	r := newTestServer(t)

	resp, err := http.Get(r.ts.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	want := `{"triac_on":true,"percentage":80,"comfort_mode":"MEDIUM","temperature":19,` +
		`"online_thresholds":{"MEDIUM":[18,20],"TEMPERATE":[16,18],"WARM":[20,22]}}`
	if string(body) != want {
		t.Errorf("body:\n got %s\nwant %s", body, want)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	r := newTestServer(t)

	resp, err := http.Get(r.ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		"19.0 ºC",
		"40.0%",
		`name="medium_min" value="18"`,
		`<option value="MEDIUM" selected>`,
		">ON<",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	r := newTestServer(t)

	resp, err := http.Get(r.ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	r := newTestServer(t)

	resp, err := http.Get(r.ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestTogglePowerRequiresPost(t *testing.T) {
	r := newTestServer(t)

	resp, err := http.Get(r.ts.URL + "/toggle_power")
	if err != nil {
		t.Fatalf("GET /toggle_power: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", resp.StatusCode)
	}
	if !r.store.Snapshot().TriacOn {
		t.Error("GET must not toggle power")
	}
}

func TestTogglePower(t *testing.T) {
	r := newTestServer(t)

	resp, err := noRedirect.Post(r.ts.URL+"/toggle_power", "application/x-www-form-urlencoded", nil)
	if err != nil {
		t.Fatalf("POST /toggle_power: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("status: got %d, want 303", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/" {
		t.Errorf("Location: got %q, want /", loc)
	}
	if r.store.Snapshot().TriacOn {
		t.Error("expected power off after toggle")
	}
}

func TestTogglePowerUnlocks(t *testing.T) {
	r := newTestServer(t)
	r.store.Update(func(d *logic.Device) { d.Menu = logic.MenuLocked })

	resp, err := noRedirect.Post(r.ts.URL+"/toggle_power", "application/x-www-form-urlencoded", nil)
	if err != nil {
		t.Fatalf("POST /toggle_power: %v", err)
	}
	resp.Body.Close()

	if got := r.store.Menu(); got != logic.MenuOperational {
		t.Errorf("menu: got %s, want OPERATIONAL", got)
	}
}

func TestUpdateSettings(t *testing.T) {
	r := newTestServer(t)

	form := url.Values{
		"percentage":    {"65"},
		"comfort_mode":  {"WARM"},
		"temperate_min": {"15.5"},
		"temperate_max": {"17.5"},
		"medium_min":    {"18"},
		"medium_max":    {"21"},
		"warm_min":      {"21"},
		"warm_max":      {"24"},
	}
	resp, err := noRedirect.PostForm(r.ts.URL+"/update_settings", form)
	if err != nil {
		t.Fatalf("POST /update_settings: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status: got %d, want 303", resp.StatusCode)
	}

	d := r.store.Snapshot()
	if d.Base != 65 {
		t.Errorf("Base: got %d, want 65", d.Base)
	}
	if d.Comfort != logic.ComfortWarm {
		t.Errorf("Comfort: got %s, want WARM", d.Comfort)
	}
	if got := d.Thresholds.Online[logic.ComfortTemperate]; got != (logic.Threshold{Low: 15.5, High: 17.5}) {
		t.Errorf("TEMPERATE: got %v", got)
	}

	rec, err := settings.Load(r.settingsPath)
	if err != nil {
		t.Fatalf("settings not persisted: %v", err)
	}
	if rec.Percentage == nil || *rec.Percentage != 65 {
		t.Errorf("persisted percentage: got %v", rec.Percentage)
	}
}

func TestUpdateSettingsPartial(t *testing.T) {
	r := newTestServer(t)

	resp, err := noRedirect.PostForm(r.ts.URL+"/update_settings", url.Values{"percentage": {"30"}})
	if err != nil {
		t.Fatalf("POST /update_settings: %v", err)
	}
	resp.Body.Close()

	d := r.store.Snapshot()
	if d.Base != 30 {
		t.Errorf("Base: got %d, want 30", d.Base)
	}
	if d.Comfort != logic.ComfortMedium {
		t.Errorf("Comfort changed: %s", d.Comfort)
	}
}

func TestUpdateSettingsRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
	}{
		{"empty", url.Values{}},
		{"percentage not a number", url.Values{"percentage": {"lots"}}},
		{"percentage out of range", url.Values{"percentage": {"140"}}},
		{"unknown comfort", url.Values{"comfort_mode": {"HOT"}}},
		{"half a pair", url.Values{"warm_min": {"20"}}},
		{"inverted pair", url.Values{"percentage": {"50"}, "warm_min": {"24"}, "warm_max": {"20"}}},
		{"bad float", url.Values{"medium_min": {"x"}, "medium_max": {"20"}}},
		{"infinite low", url.Values{"medium_min": {"-inf"}, "medium_max": {"20"}}},
		{"infinite high", url.Values{"warm_min": {"20"}, "warm_max": {"+Inf"}}},
		{"nan", url.Values{"temperate_min": {"NaN"}, "temperate_max": {"18"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestServer(t)
			before := r.store.Snapshot()

			resp, err := noRedirect.PostForm(r.ts.URL+"/update_settings", tt.form)
			if err != nil {
				t.Fatalf("POST /update_settings: %v", err)
			}
			resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400", resp.StatusCode)
			}
			if after := r.store.Snapshot(); after != before {
				t.Errorf("device changed by rejected form: %+v", after)
			}
			if _, err := os.Stat(r.settingsPath); !errors.Is(err, os.ErrNotExist) {
				t.Errorf("settings file written for rejected form: %v", err)
			}
		})
	}
}

func TestHistoryEndpoint(t *testing.T) {
	r := newTestServer(t)
	r.history.entries = []journal.Entry{
		{ID: "a", Type: logic.EventPower, Action: logic.ActionPowerOn, Source: logic.SourceHTTP},
	}

	resp, err := http.Get(r.ts.URL + "/history.json?limit=5")
	if err != nil {
		t.Fatalf("GET /history.json: %v", err)
	}
	defer resp.Body.Close()

	var entries []journal.Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "a" || entries[0].Action != logic.ActionPowerOn {
		t.Errorf("unexpected entries: %+v", entries)
	}
	if r.history.limit != 5 {
		t.Errorf("limit: got %d, want 5", r.history.limit)
	}
}

func TestHistoryEndpointMaxLimit(t *testing.T) {
	r := newTestServer(t)

	resp, err := http.Get(r.ts.URL + "/history.json?limit=" + strconv.Itoa(MaxHistoryLimit))
	if err != nil {
		t.Fatalf("GET /history.json: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if r.history.limit != MaxHistoryLimit {
		t.Errorf("limit: got %d, want %d", r.history.limit, MaxHistoryLimit)
	}
}

func TestHistoryEndpointErrors(t *testing.T) {
	r := newTestServer(t)

	resp, err := http.Get(r.ts.URL + "/history.json?limit=-1")
	if err != nil {
		t.Fatalf("GET /history.json: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit: got %d, want 400", resp.StatusCode)
	}

	resp, err = http.Get(r.ts.URL + "/history.json?limit=2000000000")
	if err != nil {
		t.Fatalf("GET /history.json: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("huge limit: got %d, want 400", resp.StatusCode)
	}
	if r.history.limit != 0 {
		t.Errorf("journal queried with limit %d", r.history.limit)
	}

	r.history.err = errors.New("database is locked")
	resp, err = http.Get(r.ts.URL + "/history.json")
	if err != nil {
		t.Fatalf("GET /history.json: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("journal error: got %d, want 500", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	r := newTestServer(t)
	r.store.SetTemperatures(logic.Celsius(21), logic.NoReading, logic.Celsius(21))

	resp, err := http.Get(r.ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	var sj status.StatusJSON
	json.NewDecoder(resp.Body).Decode(&sj)
	resp.Body.Close()

	if sj.Status.Heater.Temperature != logic.Celsius(21) {
		t.Errorf("Temperature: got %v, want 21", sj.Status.Heater.Temperature)
	}
	// 21 is above the MEDIUM pair, so regulation cuts power entirely.
	if sj.Status.Heater.EffectivePercent != 0 {
		t.Errorf("EffectivePercent: got %v, want 0", sj.Status.Heater.EffectivePercent)
	}
}
