package match

import "strings"

// Category is this service's own view of a provider status code.
type Category string

const (
	CategoryScheduled Category = "scheduled"
	CategoryLive      Category = "live"
	CategoryFinished  Category = "finished"
	CategoryUnknown   Category = "unknown"
)

var statusCategories = map[string]Category{
	"NS":   CategoryScheduled,
	"TBD":  CategoryScheduled,
	"PST":  CategoryScheduled,
	"LIVE": CategoryLive,
	"1H":   CategoryLive,
	"HT":   CategoryLive,
	"2H":   CategoryLive,
	"ET":   CategoryLive,
	"BT":   CategoryLive,
	"P":    CategoryLive,
	"SUSP": CategoryLive,
	"INT":  CategoryLive,
	"FT":   CategoryFinished,
	"AET":  CategoryFinished,
	"PEN":  CategoryFinished,
	"AWD":  CategoryFinished,
	"WO":   CategoryFinished,
	"CANC": CategoryFinished,
	"ABD":  CategoryFinished,
}

// Categorize maps a provider status code. Unrecognized codes are unknown.
func Categorize(status string) Category {
	if c, ok := statusCategories[NormalizeStatus(status)]; ok {
		return c
	}
	return CategoryUnknown
}

func NormalizeStatus(status string) string {
	return strings.ToUpper(strings.TrimSpace(status))
}

// ParseCategory accepts a category name in any case.
func ParseCategory(raw string) (Category, bool) {
	switch c := Category(strings.ToLower(strings.TrimSpace(raw))); c {
	case CategoryScheduled, CategoryLive, CategoryFinished, CategoryUnknown:
		return c, true
	}
	return "", false
}
