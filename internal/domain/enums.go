package domain

import "strings"

// Category classifies a bucket item.
type Category string

const (
	CategoryTravel   Category = "travel"
	CategoryCareer   Category = "career"
	CategoryFamily   Category = "family"
	CategoryFinance  Category = "finance"
	CategoryHealth   Category = "health"
	CategoryLearning Category = "learning"
	CategoryOther    Category = "other"
)

// Categories lists every category in display order.
// Reports iterate this slice so that empty categories still appear.
var Categories = []Category{
	CategoryTravel,
	CategoryCareer,
	CategoryFamily,
	CategoryFinance,
	CategoryHealth,
	CategoryLearning,
	CategoryOther,
}

// IsValid reports whether c is one of the known categories.
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Level grades an item's difficulty or risk.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Levels lists every level from lowest to highest.
var Levels = []Level{LevelLow, LevelMedium, LevelHigh}

// IsValid reports whether l is one of the known levels.
func (l Level) IsValid() bool {
	return l == LevelLow || l == LevelMedium || l == LevelHigh
}

// ItemStatus is the lifecycle state of a bucket item.
type ItemStatus string

const (
	// StatusPlanned is the initial state.
	StatusPlanned ItemStatus = "planned"

	// StatusInProgress marks an item the user has started.
	StatusInProgress ItemStatus = "in_progress"

	// StatusDone marks a completed item. Requires CompletedAt.
	StatusDone ItemStatus = "done"
)

// ItemStatuses lists every status.
var ItemStatuses = []ItemStatus{StatusPlanned, StatusInProgress, StatusDone}

// IsValid reports whether s is one of the known statuses.
func (s ItemStatus) IsValid() bool {
	return s == StatusPlanned || s == StatusInProgress || s == StatusDone
}

// Granularity tags the intended width of a time bucket.
// It is informational on stored buckets and drives the template generator.
type Granularity string

const (
	Granularity5Years  Granularity = "5y"
	Granularity10Years Granularity = "10y"
)

// Granularities lists the supported granularities.
var Granularities = []Granularity{Granularity5Years, Granularity10Years}

// IsValid reports whether g is a supported granularity.
func (g Granularity) IsValid() bool {
	return g == Granularity5Years || g == Granularity10Years
}

// Years returns the interval width in years, or 0 for an unknown granularity.
func (g Granularity) Years() int {
	switch g {
	case Granularity5Years:
		return 5
	case Granularity10Years:
		return 10
	default:
		return 0
	}
}

// GranularityList renders the supported values for error messages ("5y, 10y").
func GranularityList() string {
	parts := make([]string, len(Granularities))
	for i, g := range Granularities {
		parts[i] = string(g)
	}
	return strings.Join(parts, ", ")
}
