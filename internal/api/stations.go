package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/joeshaw/bikeshare-traffic/internal/filter"
	"github.com/joeshaw/bikeshare-traffic/internal/models"
	"github.com/joeshaw/bikeshare-traffic/internal/traffic"
)

// handleStations handles the stations collection endpoint
func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	options := filter.NewOptions(r.URL.Query())

	timeFilter, err := options.TimeFilter()
	if err != nil {
		s.sendErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if options.HasSort() {
		for _, field := range options.GetSort() {
			if !filter.IsSortField(field) {
				s.sendErrorResponse(w, http.StatusBadRequest, "Unsupported sort field: "+field)
				return
			}
		}
	}

	res, err := s.store.Traffic(timeFilter)
	if err != nil {
		s.sendTrafficError(w, err)
		return
	}

	// Copy before filtering and sorting, the result is shared
	stations := append([]models.StationTraffic(nil), res.Stations...)

	if options.HasFilter("id") {
		ids := make(map[models.StationKey]bool)
		for _, id := range options.GetFilter("id") {
			ids[models.NewStationKey(id)] = true
		}
		stations = filter.Filter(stations, func(st models.StationTraffic) bool {
			return ids[st.Key]
		})
	}

	if options.HasSort() {
		filter.SortStations(stations, options.GetSort())
	}

	// Convert to JSON:API resources
	resources := make([]Resource, len(stations))
	for i, st := range stations {
		resources[i] = stationToResource(st, options)
	}

	response := Response{
		Data: resources,
		Links: map[string]string{
			"self": "/stations",
		},
		Meta: trafficMeta(res),
	}

	s.sendResponse(w, http.StatusOK, response)
}

// handleStation handles the station detail endpoint
func (s *Server) handleStation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	options := filter.NewOptions(r.URL.Query())

	timeFilter, err := options.TimeFilter()
	if err != nil {
		s.sendErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	key := models.NewStationKey(id)
	if s.store.GetStation(key) == nil {
		s.sendErrorResponse(w, http.StatusNotFound, "Station not found")
		return
	}

	st, err := s.store.StationTraffic(key, timeFilter)
	if err != nil {
		s.sendTrafficError(w, err)
		return
	}

	response := Response{
		Data: stationToResource(*st, options),
		Links: map[string]string{
			"self": "/stations/" + id,
		},
		Meta: map[string]interface{}{
			"time_filter": timeFilter,
			"time_label":  timeFilter.String(),
		},
	}

	s.sendResponse(w, http.StatusOK, response)
}

func (s *Server) sendTrafficError(w http.ResponseWriter, err error) {
	if errors.Is(err, traffic.ErrInvalidTimeFilter) {
		s.sendErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	s.sendErrorResponse(w, http.StatusInternalServerError, err.Error())
}

// stationToResource converts annotated station traffic to a JSON:API resource
func stationToResource(st models.StationTraffic, options *filter.Options) Resource {
	attributes := map[string]interface{}{
		"name":            st.Name,
		"legacy_id":       st.LegacyID,
		"short_name":      st.ShortName,
		"latitude":        st.Latitude,
		"longitude":       st.Longitude,
		"capacity":        st.Capacity,
		"departures":      st.Departures,
		"arrivals":        st.Arrivals,
		"total_traffic":   st.TotalTraffic,
		"departure_ratio": st.DepartureRatio(),
	}
	for field := range attributes {
		if !options.ShouldIncludeField("station", field) {
			delete(attributes, field)
		}
	}

	return Resource{
		Type:       "station",
		ID:         string(st.Key),
		Attributes: attributes,
		Links: map[string]string{
			"self": "/stations/" + string(st.Key),
		},
	}
}

func trafficMeta(res *traffic.Result) map[string]interface{} {
	meta := map[string]interface{}{
		"time_filter":       res.Filter,
		"time_label":        res.Label,
		"departures":        res.Departures,
		"arrivals":          res.Arrivals,
		"max_total_traffic": res.MaxTotal,
	}
	if res.Window != nil {
		meta["window"] = res.Window
		meta["window_minutes"] = res.Window.Size()
	}
	return meta
}
