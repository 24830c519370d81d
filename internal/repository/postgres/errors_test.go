package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/prn-tf/timebucket/internal/domain"
)

func TestMapTimeBucketWriteError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "exclusion constraint",
			err:  &pgconn.PgError{Code: codeExclusionViolation, ConstraintName: "time_buckets_no_overlap"},
			want: domain.ErrTimeBucketOverlap,
		},
		{
			name: "position unique",
			err:  fmt.Errorf("exec: %w", &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "time_buckets_user_position_key"}),
			want: domain.ErrTimeBucketPositionTaken,
		},
		{
			name: "missing owner",
			err:  &pgconn.PgError{Code: codeForeignKeyViolation},
			want: domain.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapTimeBucketWriteError(tt.err, "create"), tt.want)
		})
	}

	other := errors.New("connection reset")
	wrapped := mapTimeBucketWriteError(other, "update")
	assert.ErrorIs(t, wrapped, other)
	assert.Contains(t, wrapped.Error(), "failed to update time bucket")
}

func TestIsNoRows(t *testing.T) {
	assert.True(t, isNoRows(fmt.Errorf("scan: %w", pgx.ErrNoRows)))
	assert.False(t, isNoRows(errors.New("boom")))
}
