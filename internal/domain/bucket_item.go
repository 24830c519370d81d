package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BucketItem is a goal or experience scheduled inside one time bucket.
type BucketItem struct {
	// ID is the unique identifier for the item.
	ID uuid.UUID `json:"id"`

	// TimeBucketID is the owning bucket. The owning user is reached through it.
	TimeBucketID uuid.UUID `json:"time_bucket_id"`

	Title       string `json:"title"`
	Description string `json:"description"`

	Category   Category `json:"category"`
	Difficulty *Level   `json:"difficulty"`
	RiskLevel  *Level   `json:"risk_level"`

	// Status defaults to StatusPlanned.
	Status ItemStatus `json:"status"`

	// ValueStatement says why the item matters to the user.
	ValueStatement string `json:"value_statement"`
	MotivationNote string `json:"motivation_note"`

	// CostEstimate is a non-negative amount in the user's currency. Nil counts as 0.
	CostEstimate *int `json:"cost_estimate"`

	// TargetYear is the calendar year the user aims for. It must fall inside the
	// owning bucket's year range once the birthdate is known.
	TargetYear *int `json:"target_year"`

	Tags []string `json:"tags"`

	// CompletedAt is required while Status is StatusDone. It is not cleared when
	// the status moves back.
	CompletedAt *time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewBucketItem creates a planned item in the given bucket with a zero cost estimate.
func NewBucketItem(timeBucketID uuid.UUID, now time.Time) *BucketItem {
	now = now.UTC()
	zero := 0
	return &BucketItem{
		ID:           uuid.New(),
		TimeBucketID: timeBucketID,
		Status:       StatusPlanned,
		CostEstimate: &zero,
		Tags:         []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Cost returns the cost estimate with nil treated as 0.
func (i *BucketItem) Cost() int {
	if i.CostEstimate == nil {
		return 0
	}
	return *i.CostEstimate
}

// IsDone reports whether the item is completed.
func (i *BucketItem) IsDone() bool {
	return i.Status == StatusDone
}

// MarkDone forces the done state and stamps the completion time.
// The caller must validate the item afterwards.
func (i *BucketItem) MarkDone(now time.Time) {
	now = now.UTC()
	i.Status = StatusDone
	i.CompletedAt = &now
	i.UpdatedAt = now
}

// ValidateBucketItem checks an item against its owning bucket and that bucket's user.
// owner may be nil or lack a birthdate, in which case the target year is not bounded.
func ValidateBucketItem(item *BucketItem, bucket *TimeBucket, owner *User) *ValidationError {
	v := &ValidationError{}

	if strings.TrimSpace(item.Title) == "" {
		v.Add("title", "can't be blank")
	}

	if item.Category == "" {
		v.Add("category", "can't be blank")
	} else if !item.Category.IsValid() {
		v.Add("category", "is not included in the list")
	}

	if item.Difficulty != nil && !item.Difficulty.IsValid() {
		v.Add("difficulty", "is not included in the list")
	}
	if item.RiskLevel != nil && !item.RiskLevel.IsValid() {
		v.Add("risk_level", "is not included in the list")
	}

	if item.Status == "" {
		v.Add("status", "can't be blank")
	} else if !item.Status.IsValid() {
		v.Add("status", "is not included in the list")
	}

	if strings.TrimSpace(item.ValueStatement) == "" {
		v.Add("value_statement", "can't be blank")
	}

	if item.CostEstimate != nil && *item.CostEstimate < 0 {
		v.Add("cost_estimate", "must be greater than or equal to 0")
	}

	if bucket == nil {
		v.Add("time_bucket", "must exist")
	} else if item.TargetYear != nil {
		if birthYear, ok := owner.BirthYear(); ok {
			minYear, maxYear := bucket.YearRange(birthYear)
			year := *item.TargetYear
			if year < minYear || year > maxYear {
				v.Add("target_year", fmt.Sprintf("must be between %d and %d for this bucket", minYear, maxYear))
			}
		}
	}

	if item.Status == StatusDone && item.CompletedAt == nil {
		v.Add("completed_at", "can't be blank when status is done")
	}

	return v
}
