package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/timebucket/internal/domain"
	"github.com/prn-tf/timebucket/internal/repository"
)

// timeBucketRepository implements repository.TimeBucketRepository.
type timeBucketRepository struct {
	db *DB
}

// NewTimeBucketRepository creates a new PostgreSQL time bucket repository.
func NewTimeBucketRepository(db *DB) repository.TimeBucketRepository {
	return &timeBucketRepository{db: db}
}

const timeBucketColumns = `id, user_id, label, description, start_age, end_age, granularity, position, created_at, updated_at`

// Create creates a new time bucket.
func (r *timeBucketRepository) Create(ctx context.Context, bucket *domain.TimeBucket) error {
	return r.db.WithUserPlanTx(ctx, bucket.UserID, func(tx pgx.Tx) error {
		return insertTimeBucket(ctx, tx, bucket)
	})
}

// CreateBatch inserts all buckets in one transaction. All buckets must belong
// to the same user.
func (r *timeBucketRepository) CreateBatch(ctx context.Context, buckets []*domain.TimeBucket) error {
	if len(buckets) == 0 {
		return nil
	}
	return r.db.WithUserPlanTx(ctx, buckets[0].UserID, func(tx pgx.Tx) error {
		for _, b := range buckets {
			if err := insertTimeBucket(ctx, tx, b); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertTimeBucket(ctx context.Context, q Querier, b *domain.TimeBucket) error {
	_, err := q.Exec(ctx, `
		INSERT INTO time_buckets (`+timeBucketColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		b.ID,
		b.UserID,
		b.Label,
		b.Description,
		b.StartAge,
		b.EndAge,
		string(b.Granularity),
		b.Position,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		return mapTimeBucketWriteError(err, "create")
	}
	return nil
}

// GetByID retrieves a bucket owned by userID.
func (r *timeBucketRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.TimeBucket, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+timeBucketColumns+` FROM time_buckets WHERE id = $1 AND user_id = $2`, id, userID)

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
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+timeBucketColumns+` FROM time_buckets WHERE user_id = $1 ORDER BY position, start_age`, userID)
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
	return r.db.WithUserPlanTx(ctx, b.UserID, func(tx pgx.Tx) error {
		return updateTimeBucket(ctx, tx, b)
	})
}

func updateTimeBucket(ctx context.Context, q Querier, b *domain.TimeBucket) error {
	tag, err := q.Exec(ctx, `
		UPDATE time_buckets
		SET label = $3, description = $4, start_age = $5, end_age = $6, granularity = $7, position = $8, updated_at = $9
		WHERE id = $1 AND user_id = $2
	`,
		b.ID,
		b.UserID,
		b.Label,
		b.Description,
		b.StartAge,
		b.EndAge,
		string(b.Granularity),
		b.Position,
		b.UpdatedAt,
	)
	if err != nil {
		return mapTimeBucketWriteError(err, "update")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTimeBucketNotFound
	}
	return nil
}

// Delete deletes a bucket owned by userID.
func (r *timeBucketRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM time_buckets WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete time bucket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTimeBucketNotFound
	}
	return nil
}

func mapTimeBucketWriteError(err error, op string) error {
	switch {
	case isExclusionViolation(err):
		return domain.ErrTimeBucketOverlap
	case isUniqueViolation(err) && constraintName(err) == "time_buckets_user_position_key":
		return domain.ErrTimeBucketPositionTaken
	case isForeignKeyViolation(err):
		return domain.ErrUserNotFound
	default:
		return fmt.Errorf("failed to %s time bucket: %w", op, err)
	}
}

func scanTimeBucket(row pgx.Row) (*domain.TimeBucket, error) {
	var (
		b           domain.TimeBucket
		granularity string
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.Label, &b.Description, &b.StartAge, &b.EndAge,
		&granularity, &b.Position, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Granularity = domain.Granularity(granularity)
	return &b, nil
}
