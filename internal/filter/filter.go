package filter

import (
	"net/url"
	"sort"
	"strings"

	"github.com/joeshaw/bikeshare-traffic/internal/models"
	"github.com/joeshaw/bikeshare-traffic/internal/traffic"
)

// Options represents filter, sort, fields and time options for an API request
type Options struct {
	Filters map[string][]string
	Fields  map[string][]string
	Sort    []string
	Time    string
}

// NewOptions parses query parameters and creates filter options
func NewOptions(query url.Values) *Options {
	options := &Options{
		Filters: make(map[string][]string),
		Fields:  make(map[string][]string),
		Sort:    []string{},
	}

	// Parse filters, splitting comma separated values
	for key, values := range query {
		if strings.HasPrefix(key, "filter[") && strings.HasSuffix(key, "]") {
			filterName := key[7 : len(key)-1]
			for _, value := range values {
				options.Filters[filterName] = append(options.Filters[filterName], splitList(value)...)
			}
		}
	}

	// Parse fields
	for key, values := range query {
		if strings.HasPrefix(key, "fields[") && strings.HasSuffix(key, "]") {
			resourceType := key[7 : len(key)-1]
			if len(values) > 0 {
				options.Fields[resourceType] = splitList(values[0])
			}
		}
	}

	// Parse sorting
	if sortParam, ok := query["sort"]; ok && len(sortParam) > 0 {
		options.Sort = splitList(sortParam[0])
	}

	// The time may come as ?time= or as filter[time]
	options.Time = query.Get("time")
	if options.Time == "" && options.HasFilter("time") {
		options.Time = options.GetFilter("time")[0]
	}

	return options
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// HasFilter checks if a specific filter exists
func (o *Options) HasFilter(name string) bool {
	values, exists := o.Filters[name]
	return exists && len(values) > 0
}

// GetFilter returns the value(s) for a specific filter
func (o *Options) GetFilter(name string) []string {
	return o.Filters[name]
}

// TimeFilter parses the requested time, Unfiltered when absent
func (o *Options) TimeFilter() (traffic.TimeFilter, error) {
	return traffic.ParseTimeFilter(o.Time)
}

// ShouldIncludeField checks if a field should be included
func (o *Options) ShouldIncludeField(resourceType, field string) bool {
	fields, ok := o.Fields[resourceType]
	if !ok {
		// If no fields specified, include all
		return true
	}

	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}

// HasSort checks if sorting is requested
func (o *Options) HasSort() bool {
	return len(o.Sort) > 0
}

// GetSort returns the sort fields
func (o *Options) GetSort() []string {
	return o.Sort
}

// stationCompare orders two stations on one sort field
var stationCompare = map[string]func(a, b *models.StationTraffic) int{
	"id":            func(a, b *models.StationTraffic) int { return strings.Compare(string(a.Key), string(b.Key)) },
	"name":          func(a, b *models.StationTraffic) int { return strings.Compare(a.Name, b.Name) },
	"departures":    func(a, b *models.StationTraffic) int { return a.Departures - b.Departures },
	"arrivals":      func(a, b *models.StationTraffic) int { return a.Arrivals - b.Arrivals },
	"total_traffic": func(a, b *models.StationTraffic) int { return a.TotalTraffic - b.TotalTraffic },
}

// IsSortField reports whether stations can be sorted by field, with or
// without a leading "-"
func IsSortField(field string) bool {
	_, ok := stationCompare[strings.TrimPrefix(field, "-")]
	return ok
}

// SortStations sorts stations in place by the given fields. A leading "-"
// sorts that field descending. Unknown fields are ignored and ties keep
// their original order.
func SortStations(stations []models.StationTraffic, fields []string) {
	if len(fields) == 0 {
		return
	}
	sort.SliceStable(stations, func(i, j int) bool {
		for _, field := range fields {
			desc := strings.HasPrefix(field, "-")
			cmp, ok := stationCompare[strings.TrimPrefix(field, "-")]
			if !ok {
				continue
			}
			c := cmp(&stations[i], &stations[j])
			if c == 0 {
				continue
			}
			if desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// FilterFunc is a generic filter function type
type FilterFunc[T any] func(item T) bool

// Filter applies a filter function to a slice of items
func Filter[T any](items []T, fn FilterFunc[T]) []T {
	filtered := make([]T, 0, len(items))
	for _, item := range items {
		if fn(item) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}
