package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bucket(label string, start, end, position int) *TimeBucket {
	return &TimeBucket{
		ID:          uuid.New(),
		UserID:      uuid.Nil,
		Label:       label,
		StartAge:    start,
		EndAge:      end,
		Granularity: Granularity10Years,
		Position:    position,
	}
}

func TestValidateTimeBucket(t *testing.T) {
	existing := []*TimeBucket{
		bucket("20-29", 20, 29, 0),
		bucket("40-49", 40, 49, 2),
	}

	tests := []struct {
		name      string
		candidate *TimeBucket
		wantField string
		wantMsg   string
	}{
		{
			name:      "valid disjoint bucket",
			candidate: bucket("30-39", 30, 39, 1),
		},
		{
			name:      "touching boundary overlaps",
			candidate: bucket("29-38", 29, 38, 1),
			wantField: BaseField,
			wantMsg:   "Time bucket overlaps with existing bucket: 20-29",
		},
		{
			name:      "contained interval overlaps",
			candidate: bucket("42-45", 42, 45, 5),
			wantField: BaseField,
			wantMsg:   "Time bucket overlaps with existing bucket: 40-49",
		},
		{
			name:      "equal start and end rejected",
			candidate: bucket("35", 35, 35, 1),
			wantField: "end_age",
			wantMsg:   "must be greater than start_age",
		},
		{
			name:      "100 to 100 rejected",
			candidate: bucket("100", 100, 100, 1),
			wantField: "end_age",
			wantMsg:   "must be greater than start_age",
		},
		{
			name:      "start below minimum",
			candidate: bucket("18-19", 18, 19, 9),
			wantField: "start_age",
			wantMsg:   "must be greater than or equal to 20",
		},
		{
			name:      "end above maximum",
			candidate: bucket("90-101", 90, 101, 9),
			wantField: "end_age",
			wantMsg:   "must be less than or equal to 100",
		},
		{
			name: "unknown granularity",
			candidate: func() *TimeBucket {
				b := bucket("30-39", 30, 39, 1)
				b.Granularity = "7y"
				return b
			}(),
			wantField: "granularity",
			wantMsg:   "is not included in the list",
		},
		{
			name:      "negative position",
			candidate: bucket("30-39", 30, 39, -1),
			wantField: "position",
			wantMsg:   "must be greater than or equal to 0",
		},
		{
			name:      "duplicate position",
			candidate: bucket("60-69", 60, 69, 2),
			wantField: "position",
			wantMsg:   "has already been taken",
		},
		{
			name:      "blank label",
			candidate: bucket("  ", 30, 39, 1),
			wantField: "label",
			wantMsg:   "can't be blank",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValidateTimeBucket(tt.candidate, existing)
			if tt.wantField == "" {
				assert.False(t, v.HasErrors(), "unexpected errors: %v", v.FullMessages())
				return
			}
			require.True(t, v.HasErrors())
			assert.Contains(t, v.On(tt.wantField), tt.wantMsg)
		})
	}
}

func TestValidateTimeBucket_IgnoresItself(t *testing.T) {
	b := bucket("20-29", 20, 29, 0)
	others := []*TimeBucket{b, bucket("30-39", 30, 39, 1)}

	b.EndAge = 28
	v := ValidateTimeBucket(b, others)

	assert.False(t, v.HasErrors(), "unexpected errors: %v", v.FullMessages())
}

func TestValidateTimeBucket_CollectsAllErrors(t *testing.T) {
	b := &TimeBucket{ID: uuid.New(), StartAge: 10, EndAge: 5, Position: -3}

	v := ValidateTimeBucket(b, nil)

	assert.NotEmpty(t, v.On("label"))
	assert.NotEmpty(t, v.On("start_age"))
	assert.NotEmpty(t, v.On("end_age"))
	assert.NotEmpty(t, v.On("granularity"))
	assert.NotEmpty(t, v.On("position"))
	assert.Contains(t, v.FullMessages(), "End age must be greater than start_age")
}

func TestTimeBucket_Overlaps(t *testing.T) {
	a := bucket("a", 20, 29, 0)

	assert.True(t, a.Overlaps(bucket("b", 29, 38, 1)))
	assert.True(t, a.Overlaps(bucket("c", 10, 20, 1)))
	assert.True(t, a.Overlaps(bucket("d", 25, 26, 1)))
	assert.False(t, a.Overlaps(bucket("e", 30, 39, 1)))
}

func TestTimeBucket_AgeRangeAndYears(t *testing.T) {
	b := bucket("x", 30, 39, 0)

	assert.Equal(t, "30-39", b.AgeRange())
	from, to := b.YearRange(1990)
	assert.Equal(t, 2020, from)
	assert.Equal(t, 2029, to)
	assert.True(t, b.ContainsAge(39))
	assert.False(t, b.ContainsAge(40))
}
