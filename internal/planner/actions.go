package planner

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/prn-tf/timebucket/internal/domain"
)

// ActionThresholdYears is how far ahead an item counts as approaching.
const ActionThresholdYears = 5

// ActionReason explains why an item surfaced in the triage.
type ActionReason string

const (
	ReasonOverdue     ActionReason = "overdue"
	ReasonApproaching ActionReason = "approaching"
)

// ActionItem is one triaged item.
type ActionItem struct {
	ID          uuid.UUID         `json:"id"`
	Title       string            `json:"title"`
	Category    domain.Category   `json:"category"`
	Difficulty  *domain.Level     `json:"difficulty"`
	RiskLevel   *domain.Level     `json:"risk_level"`
	TargetYear  int               `json:"target_year"`
	BucketLabel string            `json:"bucket_label"`
	Status      domain.ItemStatus `json:"status"`
	Reason      ActionReason      `json:"reason"`
	YearsUntil  int               `json:"years_until"`
}

// ActionsNow is the triage of overdue and near-term items.
type ActionsNow struct {
	CurrentAge     int          `json:"current_age"`
	CurrentYear    int          `json:"current_year"`
	ThresholdYears int          `json:"threshold_years"`
	Items          []ActionItem `json:"items"`
}

// BuildActionsNow triages the user's items as of today (the user's local date).
// Returns domain.ErrBirthdateRequired when the birthdate is unknown.
func BuildActionsNow(user *domain.User, buckets []*domain.TimeBucket, items []*domain.BucketItem, today time.Time) (*ActionsNow, error) {
	age, ok := user.AgeOn(today)
	if !ok {
		return nil, domain.NewDomainError(domain.ErrBirthdateRequired, "Birthdate is required to calculate actions now", "")
	}

	labels := make(map[uuid.UUID]string, len(buckets))
	for _, b := range buckets {
		labels[b.ID] = b.Label
	}

	return &ActionsNow{
		CurrentAge:     age,
		CurrentYear:    today.Year(),
		ThresholdYears: ActionThresholdYears,
		Items:          SelectActions(items, labels, today.Year(), ActionThresholdYears),
	}, nil
}

// SelectActions keeps unfinished items with a target year that is past (overdue)
// or at most threshold years ahead (approaching), sorted by years until the
// target with ties kept in input order.
func SelectActions(items []*domain.BucketItem, bucketLabels map[uuid.UUID]string, currentYear, threshold int) []ActionItem {
	out := make([]ActionItem, 0)
	for _, item := range items {
		if item.IsDone() || item.TargetYear == nil {
			continue
		}

		yearsUntil := *item.TargetYear - currentYear
		var reason ActionReason
		switch {
		case yearsUntil < 0:
			reason = ReasonOverdue
		case yearsUntil <= threshold:
			reason = ReasonApproaching
		default:
			continue
		}

		out = append(out, ActionItem{
			ID:          item.ID,
			Title:       item.Title,
			Category:    item.Category,
			Difficulty:  item.Difficulty,
			RiskLevel:   item.RiskLevel,
			TargetYear:  *item.TargetYear,
			BucketLabel: bucketLabels[item.TimeBucketID],
			Status:      item.Status,
			Reason:      reason,
			YearsUntil:  yearsUntil,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].YearsUntil < out[j].YearsUntil
	})
	return out
}
