package api

import (
	"net/http"
	"time"
)

// handleIndex handles the index route
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	response := Response{
		Data: map[string]interface{}{
			"version":       "1.0.0",
			"name":          "Bike Share Traffic API",
			"time":          time.Now().Format(time.RFC3339),
			"stations":      s.store.StationCount(),
			"trips":         s.store.TripCount(),
			"skipped_trips": s.store.SkippedTrips(),
			"load":          s.store.Stats(),
			"last_updated":  s.store.LastUpdated().Format(time.RFC3339),
		},
		Links: map[string]string{
			"stations":    "/stations",
			"traffic":     "/traffic",
			"time-filter": "/time-filter",
		},
	}

	s.sendResponse(w, http.StatusOK, response)
}
