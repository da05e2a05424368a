package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/joeshaw/bikeshare-traffic/internal/store"
	"github.com/joeshaw/bikeshare-traffic/internal/updater"
)

// Server represents the API server
type Server struct {
	store   *store.Store
	updater *updater.TrafficUpdater
}

// NewServer creates a new API server
func NewServer(store *store.Store, updater *updater.TrafficUpdater) *Server {
	return &Server{
		store:   store,
		updater: updater,
	}
}

// Router creates and returns the HTTP router
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	// Register routes
	r.HandleFunc("/", s.handleIndex).Methods("GET")
	r.HandleFunc("/stations", s.handleStations).Methods("GET")
	r.HandleFunc("/stations/{id}", s.handleStation).Methods("GET")
	r.HandleFunc("/traffic", s.handleTraffic).Methods("GET")
	r.HandleFunc("/time-filter", s.handleCurrentTimeFilter).Methods("GET")
	r.HandleFunc("/time-filter", s.handleSetTimeFilter).Methods("PUT", "POST")

	// Add CORS middleware
	return s.corsMiddleware(r)
}

// corsMiddleware adds CORS headers to all responses
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
