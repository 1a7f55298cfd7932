package apifootball

import (
	"fmt"
	"sort"
	"strings"
)

type fixturesEnvelope struct {
	Errors   any           `json:"errors"`
	Results  int           `json:"results"`
	Response []fixtureItem `json:"response" validate:"dive"`
}

// errorMessage flattens the provider's errors field, which is an empty array
// on success and an object keyed by parameter on failure.
func (e fixturesEnvelope) errorMessage() string {
	switch v := e.Errors.(type) {
	case map[string]any:
		if len(v) == 0 {
			return ""
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %v", k, v[k]))
		}
		return strings.Join(parts, "; ")
	case []any:
		if len(v) == 0 {
			return ""
		}
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, "; ")
	case string:
		return strings.TrimSpace(v)
	default:
		return ""
	}
}

type fixtureItem struct {
	Fixture fixtureInfo `json:"fixture"`
	League  leagueInfo  `json:"league"`
	Teams   teamsInfo   `json:"teams"`
	Goals   goalsInfo   `json:"goals"`
}

type fixtureInfo struct {
	ID     int64       `json:"id" validate:"required"`
	Date   string      `json:"date" validate:"required"`
	Venue  venueInfo   `json:"venue"`
	Status fixtureStat `json:"status"`
}

type venueInfo struct {
	ID   *int64  `json:"id"`
	Name *string `json:"name"`
	City *string `json:"city"`
}

type fixtureStat struct {
	Long    string `json:"long"`
	Short   string `json:"short"`
	Elapsed *int   `json:"elapsed"`
}

type leagueInfo struct {
	ID      int64  `json:"id" validate:"required"`
	Name    string `json:"name" validate:"required"`
	Country string `json:"country"`
	Logo    string `json:"logo"`
	Season  *int   `json:"season"`
	Round   string `json:"round"`
}

type teamsInfo struct {
	Home teamInfo `json:"home"`
	Away teamInfo `json:"away"`
}

type teamInfo struct {
	ID   int64  `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
	Logo string `json:"logo"`
}

type goalsInfo struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}
