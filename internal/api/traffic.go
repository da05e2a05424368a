package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/joeshaw/bikeshare-traffic/internal/filter"
	"github.com/joeshaw/bikeshare-traffic/internal/traffic"
)

// handleTraffic handles the traffic summary endpoint
func (s *Server) handleTraffic(w http.ResponseWriter, r *http.Request) {
	timeFilter, err := filter.NewOptions(r.URL.Query()).TimeFilter()
	if err != nil {
		s.sendErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.store.Traffic(timeFilter)
	if err != nil {
		s.sendTrafficError(w, err)
		return
	}

	response := Response{
		Data: trafficToResource(res),
		Links: map[string]string{
			"self":     "/traffic",
			"stations": "/stations?time=" + strconv.Itoa(int(timeFilter)),
		},
	}

	s.sendResponse(w, http.StatusOK, response)
}

// handleCurrentTimeFilter returns the most recently computed snapshot
func (s *Server) handleCurrentTimeFilter(w http.ResponseWriter, r *http.Request) {
	res, at := s.store.Current()
	if res == nil {
		s.sendErrorResponse(w, http.StatusNotFound, "No time filter selected")
		return
	}

	response := Response{
		Data: trafficToResource(res),
		Links: map[string]string{
			"self": "/time-filter",
		},
		Meta: map[string]interface{}{
			"computed_at": at.Format(time.RFC3339Nano),
		},
	}

	s.sendResponse(w, http.StatusOK, response)
}

// timeFilterRequest is the body of PUT /time-filter. Time may be a minute
// of day, -1, or a string such as "08:00".
type timeFilterRequest struct {
	Time json.RawMessage `json:"time"`
}

// handleSetTimeFilter queues a new time filter for recomputation
func (s *Server) handleSetTimeFilter(w http.ResponseWriter, r *http.Request) {
	var req timeFilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	timeFilter, err := parseRequestTime(req.Time)
	if err != nil {
		s.sendErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.updater.Submit(timeFilter); err != nil {
		s.sendErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	response := Response{
		Data: map[string]interface{}{
			"time_filter": timeFilter,
			"time_label":  timeFilter.String(),
		},
		Links: map[string]string{
			"self": "/time-filter",
		},
	}

	s.sendResponse(w, http.StatusAccepted, response)
}

func parseRequestTime(raw json.RawMessage) (traffic.TimeFilter, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return traffic.Unfiltered, nil
	}
	var minute int
	if err := json.Unmarshal(raw, &minute); err == nil {
		f := traffic.TimeFilter(minute)
		return f, f.Validate()
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return 0, traffic.ErrInvalidTimeFilter
	}
	return traffic.ParseTimeFilter(text)
}

// trafficToResource converts a traffic result into a JSON:API resource
func trafficToResource(res *traffic.Result) Resource {
	attributes := trafficMeta(res)
	attributes["stations"] = len(res.Stations)
	attributes["unmatched"] = res.Unmatched

	return Resource{
		Type:       "traffic",
		ID:         strconv.Itoa(int(res.Filter)),
		Attributes: attributes,
	}
}
