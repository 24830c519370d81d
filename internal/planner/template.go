// Package planner holds the pure computations over a user's plan:
// template generation, dashboard aggregation and actions-now triage.
// Every function works on values passed in and performs no I/O.
package planner

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prn-tf/timebucket/internal/domain"
)

// BucketSlot is one bucket produced by the template generator, before it is persisted.
type BucketSlot struct {
	Label       string             `json:"label"`
	StartAge    int                `json:"start_age"`
	EndAge      int                `json:"end_age"`
	Granularity domain.Granularity `json:"granularity"`
	Position    int                `json:"position"`
}

// TimeBucket materializes the slot as a bucket owned by userID.
func (s BucketSlot) TimeBucket(userID uuid.UUID, now time.Time) *domain.TimeBucket {
	b := domain.NewTimeBucket(userID, now)
	b.Label = s.Label
	b.StartAge = s.StartAge
	b.EndAge = s.EndAge
	b.Granularity = s.Granularity
	b.Position = s.Position
	return b
}

// TemplateGenerator partitions [domain.MinAge, domain.MaxAge] into contiguous buckets.
type TemplateGenerator struct {
	// LabelSuffix is appended to every "start-end" label (an age unit such as "歳").
	LabelSuffix string
}

// NewTemplateGenerator creates a generator with the given label suffix.
func NewTemplateGenerator(labelSuffix string) *TemplateGenerator {
	return &TemplateGenerator{LabelSuffix: labelSuffix}
}

// Generate returns the bucket layout for the user at the given granularity.
// A missing birthdate is reported as domain.ErrBirthdateRequired and takes
// precedence over an invalid granularity, which is a validation error.
func (g *TemplateGenerator) Generate(user *domain.User, granularity domain.Granularity) ([]BucketSlot, error) {
	if !user.HasBirthdate() {
		return nil, domain.NewDomainError(domain.ErrBirthdateRequired, "User birthdate is required for template generation", "")
	}
	if !granularity.IsValid() {
		return nil, domain.NewValidationError("granularity", "must be one of: "+domain.GranularityList())
	}
	return g.Layout(granularity), nil
}

// Layout computes the partition for a valid granularity.
// A trailing span shorter than one interval is absorbed into the last bucket,
// which always ends at domain.MaxAge.
func (g *TemplateGenerator) Layout(granularity domain.Granularity) []BucketSlot {
	width := granularity.Years()
	if width <= 0 {
		return nil
	}

	var slots []BucketSlot
	for start := domain.MinAge; start <= domain.MaxAge; start += width {
		end := start + width - 1
		if end >= domain.MaxAge || domain.MaxAge-end < width {
			end = domain.MaxAge
		}

		slots = append(slots, BucketSlot{
			Label:       fmt.Sprintf("%d-%d%s", start, end, g.LabelSuffix),
			StartAge:    start,
			EndAge:      end,
			Granularity: granularity,
			Position:    len(slots),
		})

		if end >= domain.MaxAge {
			break
		}
	}
	return slots
}
