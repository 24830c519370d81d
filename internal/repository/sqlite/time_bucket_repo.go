package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/prn-tf/timebucket/internal/domain"
	"github.com/prn-tf/timebucket/internal/repository"
)

// timeBucketRepository implements repository.TimeBucketRepository for SQLite.
type timeBucketRepository struct {
	db *DB
}

// NewTimeBucketRepository creates a new SQLite time bucket repository.
func NewTimeBucketRepository(db *DB) repository.TimeBucketRepository {
	return &timeBucketRepository{db: db}
}

const timeBucketColumns = `id, user_id, label, description, start_age, end_age, granularity, position, created_at, updated_at`

// Create creates a new time bucket.
func (r *timeBucketRepository) Create(ctx context.Context, bucket *domain.TimeBucket) error {
	return insertTimeBucket(ctx, r.db, bucket)
}

// CreateBatch inserts all buckets in one transaction.
func (r *timeBucketRepository) CreateBatch(ctx context.Context, buckets []*domain.TimeBucket) error {
	if len(buckets) == 0 {
		return nil
	}
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, b := range buckets {
			if err := insertTimeBucket(ctx, tx, b); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertTimeBucket(ctx context.Context, q querier, b *domain.TimeBucket) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO time_buckets (`+timeBucketColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID.String(),
		b.UserID.String(),
		b.Label,
		b.Description,
		b.StartAge,
		b.EndAge,
		string(b.Granularity),
		b.Position,
		formatTime(b.CreatedAt),
		formatTime(b.UpdatedAt),
	)
	if err != nil {
		return mapTimeBucketWriteError(err, "create")
	}
	return nil
}

// GetByID retrieves a bucket owned by userID.
func (r *timeBucketRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.TimeBucket, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+timeBucketColumns+` FROM time_buckets WHERE id = ? AND user_id = ?`,
		id.String(), userID.String())

	b, err := scanTimeBucket(row)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrTimeBucketNotFound
		}
		return nil, fmt.Errorf("failed to get time bucket: %w", err)
	}
	return b, nil
}

// ListByUser returns the user's buckets ordered by position.
func (r *timeBucketRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.TimeBucket, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+timeBucketColumns+` FROM time_buckets WHERE user_id = ? ORDER BY position, start_age`,
		userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list time buckets: %w", err)
	}
	defer rows.Close()

	buckets := make([]*domain.TimeBucket, 0)
	for rows.Next() {
		b, err := scanTimeBucket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating time buckets: %w", err)
	}

	return buckets, nil
}

// Update updates an existing bucket.
func (r *timeBucketRepository) Update(ctx context.Context, b *domain.TimeBucket) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE time_buckets
		SET label = ?, description = ?, start_age = ?, end_age = ?, granularity = ?, position = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`,
		b.Label,
		b.Description,
		b.StartAge,
		b.EndAge,
		string(b.Granularity),
		b.Position,
		formatTime(b.UpdatedAt),
		b.ID.String(),
		b.UserID.String(),
	)
	if err != nil {
		return mapTimeBucketWriteError(err, "update")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrTimeBucketNotFound
	}

	return nil
}

// Delete deletes a bucket owned by userID.
func (r *timeBucketRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM time_buckets WHERE id = ? AND user_id = ?`, id.String(), userID.String())
	if err != nil {
		return fmt.Errorf("failed to delete time bucket: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrTimeBucketNotFound
	}

	return nil
}

func mapTimeBucketWriteError(err error, op string) error {
	switch {
	case uniqueViolationOn(err, "position"):
		return domain.ErrTimeBucketPositionTaken
	case isForeignKeyViolation(err):
		return domain.ErrUserNotFound
	default:
		return fmt.Errorf("failed to %s time bucket: %w", op, err)
	}
}

func scanTimeBucket(s scanner) (*domain.TimeBucket, error) {
	var (
		b                    domain.TimeBucket
		id, userID           string
		granularity          string
		createdAt, updatedAt string
	)

	if err := s.Scan(&id, &userID, &b.Label, &b.Description, &b.StartAge, &b.EndAge,
		&granularity, &b.Position, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	b.ID, _ = uuid.Parse(id)
	b.UserID, _ = uuid.Parse(userID)
	b.Granularity = domain.Granularity(granularity)
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)

	return &b, nil
}
