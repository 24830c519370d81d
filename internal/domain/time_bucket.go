package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EndAgeOrderMessage is reported on end_age when the interval is empty or reversed.
const EndAgeOrderMessage = "must be greater than start_age"

// OverlapMessagePrefix starts the base message naming the colliding bucket.
const OverlapMessagePrefix = "Time bucket overlaps with existing bucket: "

// TimeBucket is a labeled, inclusive age interval [StartAge, EndAge] in a user's plan.
// For one user no two buckets may share any age, including a shared endpoint.
type TimeBucket struct {
	// ID is the unique identifier for the bucket.
	ID uuid.UUID `json:"id"`

	// UserID is the owner of the bucket.
	UserID uuid.UUID `json:"user_id"`

	// Label is the display name (e.g. "20-29").
	Label string `json:"label"`

	// Description is optional free text.
	Description string `json:"description"`

	// StartAge is the first age covered, inclusive. Range: MinAge..MaxAge.
	StartAge int `json:"start_age"`

	// EndAge is the last age covered, inclusive. Must be greater than StartAge.
	EndAge int `json:"end_age"`

	// Granularity tags the intended width. Not checked against EndAge-StartAge.
	Granularity Granularity `json:"granularity"`

	// Position orders buckets for display and iteration. Unique per user.
	Position int `json:"position"`

	// CreatedAt is the timestamp when the bucket was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp when the bucket was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTimeBucket creates a bucket owned by userID with a fresh ID.
func NewTimeBucket(userID uuid.UUID, now time.Time) *TimeBucket {
	now = now.UTC()
	return &TimeBucket{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AgeRange renders the interval as "start-end".
func (b *TimeBucket) AgeRange() string {
	return fmt.Sprintf("%d-%d", b.StartAge, b.EndAge)
}

// Overlaps applies the closed-interval test: [s,e] and [os,oe] collide iff s <= oe && e >= os.
// Touching intervals such as [20,29] and [29,38] collide.
func (b *TimeBucket) Overlaps(other *TimeBucket) bool {
	return b.StartAge <= other.EndAge && b.EndAge >= other.StartAge
}

// ContainsAge reports whether age falls inside the bucket.
func (b *TimeBucket) ContainsAge(age int) bool {
	return b.StartAge <= age && age <= b.EndAge
}

// YearRange converts the age interval to calendar years for someone born in birthYear.
func (b *TimeBucket) YearRange(birthYear int) (int, int) {
	return birthYear + b.StartAge, birthYear + b.EndAge
}

// ValidateTimeBucket checks a candidate bucket against its owner's other buckets.
// others may contain the candidate itself; entries with the candidate's ID are ignored.
// The first overlapping peer in the order given is reported by label.
func ValidateTimeBucket(candidate *TimeBucket, others []*TimeBucket) *ValidationError {
	v := &ValidationError{}

	if strings.TrimSpace(candidate.Label) == "" {
		v.Add("label", "can't be blank")
	}

	for _, f := range []struct {
		name  string
		value int
	}{
		{"start_age", candidate.StartAge},
		{"end_age", candidate.EndAge},
	} {
		if f.value < MinAge {
			v.Add(f.name, fmt.Sprintf("must be greater than or equal to %d", MinAge))
		}
		if f.value > MaxAge {
			v.Add(f.name, fmt.Sprintf("must be less than or equal to %d", MaxAge))
		}
	}

	if candidate.EndAge <= candidate.StartAge {
		v.Add("end_age", EndAgeOrderMessage)
	}

	if candidate.Granularity == "" {
		v.Add("granularity", "can't be blank")
	} else if !candidate.Granularity.IsValid() {
		v.Add("granularity", "is not included in the list")
	}

	if candidate.Position < 0 {
		v.Add("position", "must be greater than or equal to 0")
	}

	overlapReported := false
	positionReported := false
	for _, other := range others {
		if other == nil || other.ID == candidate.ID {
			continue
		}
		if !overlapReported && candidate.Overlaps(other) {
			v.Add(BaseField, OverlapMessagePrefix+other.Label)
			overlapReported = true
		}
		if !positionReported && candidate.Position >= 0 && other.Position == candidate.Position {
			v.Add("position", "has already been taken")
			positionReported = true
		}
	}

	return v
}
