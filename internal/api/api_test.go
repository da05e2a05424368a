package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/joeshaw/bikeshare-traffic/internal/loader"
	"github.com/joeshaw/bikeshare-traffic/internal/models"
	"github.com/joeshaw/bikeshare-traffic/internal/store"
	"github.com/joeshaw/bikeshare-traffic/internal/updater"
)

func newTestServer() (*Server, *store.Store, *updater.TrafficUpdater) {
	day := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	at := func(minute int) time.Time { return day.Add(time.Duration(minute) * time.Minute) }

	ds := &loader.Dataset{
		Trips: []models.Trip{
			{ID: "t1", StartStation: "67", EndStation: "190", StartedAt: at(5), EndedAt: at(40)},
			{ID: "t2", StartStation: "190", EndStation: "67", StartedAt: at(480), EndedAt: at(500)},
			{ID: "t3", StartStation: "190", EndStation: "22", StartedAt: at(485), EndedAt: at(510)},
		},
		Stations: []models.Station{
			{Key: "67", LegacyID: "67", Name: "MIT at Mass Ave", Latitude: 42.3581, Longitude: -71.0936},
			{Key: "190", LegacyID: "190", Name: "Central Square", Latitude: 42.3651, Longitude: -71.1031},
			{Key: "22", LegacyID: "22", Name: "South Station", Latitude: 42.3522, Longitude: -71.0555},
		},
	}
	s := store.NewStore(ds, store.Options{CacheSize: 16})
	u := updater.NewTrafficUpdater(s)
	return NewServer(s, u), s, u
}

func doRequest(t *testing.T, server *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	return rr
}

type stationsDocument struct {
	Data []Resource            `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}

type resourceDocument struct {
	Data Resource               `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}

// TestIndexEndpoint tests the index endpoint
func TestIndexEndpoint(t *testing.T) {
	server, _, _ := newTestServer()
	rr := doRequest(t, server, "GET", "/", "")

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	contentType := rr.Header().Get("Content-Type")
	if contentType != "application/vnd.api+json" {
		t.Errorf("handler returned wrong content type: got %v want %v", contentType, "application/vnd.api+json")
	}

	var response Response
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("error parsing response: %v", err)
	}
	for _, link := range []string{"stations", "traffic", "time-filter"} {
		if _, ok := response.Links[link]; !ok {
			t.Errorf("missing link: %s", link)
		}
	}

	data := response.Data.(map[string]interface{})
	if data["trips"] != float64(3) || data["skipped_trips"] != float64(0) {
		t.Errorf("unexpected trip counts: trips=%v skipped_trips=%v", data["trips"], data["skipped_trips"])
	}
	load := data["load"].(map[string]interface{})
	if _, ok := load["unmatched_keys"]; !ok {
		t.Errorf("missing unmatched_keys in load stats: %v", load)
	}
}

// TestStationsEndpoint tests the unfiltered stations collection
func TestStationsEndpoint(t *testing.T) {
	server, _, _ := newTestServer()
	rr := doRequest(t, server, "GET", "/stations", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}

	var doc stationsDocument
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatalf("error parsing response: %v", err)
	}
	if len(doc.Data) != 3 {
		t.Fatalf("expected 3 stations, got %d", len(doc.Data))
	}

	want := map[string]float64{"67": 2, "190": 3, "22": 1}
	for _, res := range doc.Data {
		if res.Type != "station" {
			t.Errorf("expected type station, got %s", res.Type)
		}
		if got := res.Attributes["total_traffic"]; got != want[res.ID] {
			t.Errorf("station %s: expected total_traffic %v, got %v", res.ID, want[res.ID], got)
		}
	}
	if doc.Meta["time_label"] != "any time" {
		t.Errorf("expected time_label 'any time', got %v", doc.Meta["time_label"])
	}
	if _, ok := doc.Meta["window"]; ok {
		t.Errorf("unfiltered response should not carry a window")
	}
}

// TestStationsTimeWindow tests time filtering, sorting and sparse fields
func TestStationsTimeWindow(t *testing.T) {
	server, _, _ := newTestServer()
	rr := doRequest(t, server, "GET", "/stations?time=08:00&sort=-total_traffic&fields[station]=departures,arrivals,total_traffic", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var doc stationsDocument
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatalf("error parsing response: %v", err)
	}

	order := []string{}
	for _, res := range doc.Data {
		order = append(order, res.ID)
		if _, ok := res.Attributes["name"]; ok {
			t.Errorf("name should have been excluded by fields[station]")
		}
	}
	if strings.Join(order, ",") != "190,67,22" {
		t.Errorf("unexpected order: %v", order)
	}

	first := doc.Data[0].Attributes
	if first["departures"] != float64(2) || first["arrivals"] != float64(0) {
		t.Errorf("unexpected traffic for 190: %v", first)
	}

	window, ok := doc.Meta["window"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected window meta, got %v", doc.Meta["window"])
	}
	if window["min_minute"] != float64(420) || window["max_minute"] != float64(540) {
		t.Errorf("unexpected window: %v", window)
	}
	if doc.Meta["window_minutes"] != float64(120) {
		t.Errorf("expected window_minutes 120, got %v", doc.Meta["window_minutes"])
	}
}

// TestStationsIDFilter tests filter[id]
func TestStationsIDFilter(t *testing.T) {
	server, _, _ := newTestServer()
	rr := doRequest(t, server, "GET", "/stations?filter[id]=022,67", "")

	var doc stationsDocument
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatalf("error parsing response: %v", err)
	}
	if len(doc.Data) != 2 || doc.Data[0].ID != "67" || doc.Data[1].ID != "22" {
		t.Errorf("unexpected stations: %+v", doc.Data)
	}
}

// TestStationsBadRequests tests rejected query parameters
func TestStationsBadRequests(t *testing.T) {
	server, _, _ := newTestServer()
	for _, target := range []string{
		"/stations?time=1440",
		"/stations?time=-5",
		"/stations?time=lunch",
		"/stations?sort=elevation",
		"/traffic?time=99:99",
		"/stations/67?time=2000",
	} {
		rr := doRequest(t, server, "GET", target, "")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status %v, got %v", target, http.StatusBadRequest, rr.Code)
		}
	}
}

// TestStationEndpoint tests the station detail endpoint
func TestStationEndpoint(t *testing.T) {
	server, _, _ := newTestServer()

	rr := doRequest(t, server, "GET", "/stations/67?time=0", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}
	var doc resourceDocument
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatalf("error parsing response: %v", err)
	}
	if doc.Data.Attributes["departures"] != float64(1) || doc.Data.Attributes["arrivals"] != float64(0) {
		t.Errorf("unexpected attributes: %v", doc.Data.Attributes)
	}
	if doc.Data.Attributes["departure_ratio"] != float64(1) {
		t.Errorf("expected departure_ratio 1, got %v", doc.Data.Attributes["departure_ratio"])
	}

	for _, target := range []string{"/stations/nope", "/stations/999?time=2:00"} {
		rr = doRequest(t, server, "GET", target, "")
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status %v for %s, got %v", http.StatusNotFound, target, rr.Code)
		}
	}
}

// TestTrafficEndpoint tests the traffic summary endpoint
func TestTrafficEndpoint(t *testing.T) {
	server, _, _ := newTestServer()
	rr := doRequest(t, server, "GET", "/traffic?time=30", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}
	var doc resourceDocument
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatalf("error parsing response: %v", err)
	}
	attrs := doc.Data.Attributes
	if doc.Data.ID != "30" {
		t.Errorf("expected id 30, got %s", doc.Data.ID)
	}
	if attrs["departures"] != float64(1) || attrs["arrivals"] != float64(1) {
		t.Errorf("unexpected totals: %v", attrs)
	}
	if attrs["time_label"] != "12:30 AM" {
		t.Errorf("unexpected label: %v", attrs["time_label"])
	}
	window := attrs["window"].(map[string]interface{})
	if window["wraps"] != true {
		t.Errorf("expected wrapping window, got %v", window)
	}
}

// TestTimeFilterEndpoints tests submitting and reading the current time filter
func TestTimeFilterEndpoints(t *testing.T) {
	server, s, u := newTestServer()

	rr := doRequest(t, server, "GET", "/time-filter", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected %v before any submission, got %v", http.StatusNotFound, rr.Code)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go u.Run(ctx)

	rr = doRequest(t, server, "PUT", "/time-filter", `{"time": "08:00"}`)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected %v, got %v: %s", http.StatusAccepted, rr.Code, rr.Body.String())
	}

	deadline := time.Now().Add(time.Second)
	for {
		if res, _ := s.Current(); res != nil && res.Filter == 480 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("time filter was never applied")
		}
		time.Sleep(time.Millisecond)
	}

	rr = doRequest(t, server, "GET", "/time-filter", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected %v, got %v", http.StatusOK, rr.Code)
	}
	var doc resourceDocument
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatalf("error parsing response: %v", err)
	}
	if doc.Data.ID != "480" {
		t.Errorf("expected current filter 480, got %s", doc.Data.ID)
	}

	for _, body := range []string{`{"time": 1440}`, `{"time": "late"}`, `{"time": true}`, `not json`} {
		rr = doRequest(t, server, "PUT", "/time-filter", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected %v, got %v", body, http.StatusBadRequest, rr.Code)
		}
	}

	rr = doRequest(t, server, "POST", "/time-filter", `{"time": -1}`)
	if rr.Code != http.StatusAccepted {
		t.Errorf("expected %v for unfiltered, got %v", http.StatusAccepted, rr.Code)
	}
}

// TestCORSPreflight tests the CORS middleware
func TestCORSPreflight(t *testing.T) {
	server, _, _ := newTestServer()
	rr := doRequest(t, server, "OPTIONS", "/stations", "")
	if rr.Code != http.StatusOK {
		t.Errorf("expected %v, got %v", http.StatusOK, rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing CORS header")
	}
}
