package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/prn-tf/timebucket/internal/domain"
	"github.com/prn-tf/timebucket/internal/repository"
)

// bucketItemRepository implements repository.BucketItemRepository for SQLite.
type bucketItemRepository struct {
	db *DB
}

// NewBucketItemRepository creates a new SQLite bucket item repository.
func NewBucketItemRepository(db *DB) repository.BucketItemRepository {
	return &bucketItemRepository{db: db}
}

const bucketItemColumns = `i.id, i.time_bucket_id, i.title, i.description, i.category, i.difficulty,
	i.risk_level, i.status, i.value_statement, i.motivation_note, i.cost_estimate, i.target_year,
	i.tags, i.completed_at, i.created_at, i.updated_at`

// Create creates a new item.
func (r *bucketItemRepository) Create(ctx context.Context, item *domain.BucketItem) error {
	tags, err := marshalJSON(item.Tags, "[]")
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO bucket_items (
			id, time_bucket_id, title, description, category, difficulty, risk_level, status,
			value_statement, motivation_note, cost_estimate, target_year, tags, completed_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		item.ID.String(),
		item.TimeBucketID.String(),
		item.Title,
		item.Description,
		string(item.Category),
		nullLevel(item.Difficulty),
		nullLevel(item.RiskLevel),
		string(item.Status),
		item.ValueStatement,
		item.MotivationNote,
		nullInt(item.CostEstimate),
		nullInt(item.TargetYear),
		tags,
		nullTime(item.CompletedAt),
		formatTime(item.CreatedAt),
		formatTime(item.UpdatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrTimeBucketNotFound
		}
		return fmt.Errorf("failed to create bucket item: %w", err)
	}

	return nil
}

// GetByID retrieves an item whose bucket is owned by userID.
func (r *bucketItemRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.BucketItem, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+bucketItemColumns+`
		FROM bucket_items i
		JOIN time_buckets b ON b.id = i.time_bucket_id
		WHERE i.id = ? AND b.user_id = ?
	`, id.String(), userID.String())

	item, err := scanBucketItem(row)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrBucketItemNotFound
		}
		return nil, fmt.Errorf("failed to get bucket item: %w", err)
	}
	return item, nil
}

// ListByTimeBucket returns the items of a bucket owned by userID.
func (r *bucketItemRepository) ListByTimeBucket(ctx context.Context, userID, bucketID uuid.UUID) ([]*domain.BucketItem, error) {
	return r.list(ctx, `
		SELECT `+bucketItemColumns+`
		FROM bucket_items i
		JOIN time_buckets b ON b.id = i.time_bucket_id
		WHERE i.time_bucket_id = ? AND b.user_id = ?
		ORDER BY i.created_at, i.id
	`, bucketID.String(), userID.String())
}

// ListByUser returns every item across the user's buckets.
func (r *bucketItemRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.BucketItem, error) {
	return r.list(ctx, `
		SELECT `+bucketItemColumns+`
		FROM bucket_items i
		JOIN time_buckets b ON b.id = i.time_bucket_id
		WHERE b.user_id = ?
		ORDER BY b.position, i.created_at, i.id
	`, userID.String())
}

func (r *bucketItemRepository) list(ctx context.Context, query string, args ...any) ([]*domain.BucketItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bucket items: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.BucketItem, 0)
	for rows.Next() {
		item, err := scanBucketItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bucket item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bucket items: %w", err)
	}

	return items, nil
}

// Update updates an existing item. Moving an item between buckets is allowed;
// the service checks that the target bucket belongs to the same user.
func (r *bucketItemRepository) Update(ctx context.Context, item *domain.BucketItem) error {
	tags, err := marshalJSON(item.Tags, "[]")
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE bucket_items
		SET time_bucket_id = ?, title = ?, description = ?, category = ?, difficulty = ?, risk_level = ?,
			status = ?, value_statement = ?, motivation_note = ?, cost_estimate = ?, target_year = ?,
			tags = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`,
		item.TimeBucketID.String(),
		item.Title,
		item.Description,
		string(item.Category),
		nullLevel(item.Difficulty),
		nullLevel(item.RiskLevel),
		string(item.Status),
		item.ValueStatement,
		item.MotivationNote,
		nullInt(item.CostEstimate),
		nullInt(item.TargetYear),
		tags,
		nullTime(item.CompletedAt),
		formatTime(item.UpdatedAt),
		item.ID.String(),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrTimeBucketNotFound
		}
		return fmt.Errorf("failed to update bucket item: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrBucketItemNotFound
	}

	return nil
}

// Delete deletes an item whose bucket is owned by userID.
func (r *bucketItemRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM bucket_items
		WHERE id = ? AND time_bucket_id IN (SELECT id FROM time_buckets WHERE user_id = ?)
	`, id.String(), userID.String())
	if err != nil {
		return fmt.Errorf("failed to delete bucket item: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrBucketItemNotFound
	}

	return nil
}

func scanBucketItem(s scanner) (*domain.BucketItem, error) {
	var (
		item                  domain.BucketItem
		id, bucketID          string
		category, status      string
		difficulty, riskLevel sql.NullString
		costEstimate, target  sql.NullInt64
		tags                  string
		completedAt           sql.NullString
		createdAt, updatedAt  string
	)

	err := s.Scan(&id, &bucketID, &item.Title, &item.Description, &category, &difficulty,
		&riskLevel, &status, &item.ValueStatement, &item.MotivationNote, &costEstimate, &target,
		&tags, &completedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	item.ID, _ = uuid.Parse(id)
	item.TimeBucketID, _ = uuid.Parse(bucketID)
	item.Category = domain.Category(category)
	item.Status = domain.ItemStatus(status)
	item.Difficulty = levelPtr(difficulty)
	item.RiskLevel = levelPtr(riskLevel)
	item.CostEstimate = intPtr(costEstimate)
	item.TargetYear = intPtr(target)
	item.Tags = []string{}
	if err := unmarshalJSON(tags, &item.Tags); err != nil {
		return nil, err
	}
	item.CompletedAt = timePtr(completedAt)
	item.CreatedAt = parseTime(createdAt)
	item.UpdatedAt = parseTime(updatedAt)

	return &item, nil
}

func nullLevel(l *domain.Level) sql.NullString {
	if l == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*l), Valid: true}
}

func levelPtr(ns sql.NullString) *domain.Level {
	if !ns.Valid {
		return nil
	}
	l := domain.Level(ns.String)
	return &l
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
