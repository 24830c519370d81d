package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/timebucket/internal/domain"
	"github.com/prn-tf/timebucket/internal/repository"
)

// bucketItemRepository implements repository.BucketItemRepository.
type bucketItemRepository struct {
	db *DB
}

// NewBucketItemRepository creates a new PostgreSQL bucket item repository.
func NewBucketItemRepository(db *DB) repository.BucketItemRepository {
	return &bucketItemRepository{db: db}
}

const bucketItemColumns = `i.id, i.time_bucket_id, i.title, i.description, i.category, i.difficulty,
	i.risk_level, i.status, i.value_statement, i.motivation_note, i.cost_estimate, i.target_year,
	i.tags, i.completed_at, i.created_at, i.updated_at`

// Create creates a new item.
func (r *bucketItemRepository) Create(ctx context.Context, item *domain.BucketItem) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO bucket_items (
			id, time_bucket_id, title, description, category, difficulty, risk_level, status,
			value_statement, motivation_note, cost_estimate, target_year, tags, completed_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		item.ID,
		item.TimeBucketID,
		item.Title,
		item.Description,
		string(item.Category),
		levelString(item.Difficulty),
		levelString(item.RiskLevel),
		string(item.Status),
		item.ValueStatement,
		item.MotivationNote,
		item.CostEstimate,
		item.TargetYear,
		jsonTags(item.Tags),
		item.CompletedAt,
		item.CreatedAt,
		item.UpdatedAt,
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
	row := r.db.Pool.QueryRow(ctx, `
		SELECT `+bucketItemColumns+`
		FROM bucket_items i
		JOIN time_buckets b ON b.id = i.time_bucket_id
		WHERE i.id = $1 AND b.user_id = $2
	`, id, userID)

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
		WHERE i.time_bucket_id = $1 AND b.user_id = $2
		ORDER BY i.created_at, i.id
	`, bucketID, userID)
}

// ListByUser returns every item across the user's buckets.
func (r *bucketItemRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.BucketItem, error) {
	return r.list(ctx, `
		SELECT `+bucketItemColumns+`
		FROM bucket_items i
		JOIN time_buckets b ON b.id = i.time_bucket_id
		WHERE b.user_id = $1
		ORDER BY b.position, i.created_at, i.id
	`, userID)
}

func (r *bucketItemRepository) list(ctx context.Context, query string, args ...any) ([]*domain.BucketItem, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
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

// Update updates an existing item.
func (r *bucketItemRepository) Update(ctx context.Context, item *domain.BucketItem) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE bucket_items
		SET time_bucket_id = $2, title = $3, description = $4, category = $5, difficulty = $6,
			risk_level = $7, status = $8, value_statement = $9, motivation_note = $10,
			cost_estimate = $11, target_year = $12, tags = $13, completed_at = $14, updated_at = $15
		WHERE id = $1
	`,
		item.ID,
		item.TimeBucketID,
		item.Title,
		item.Description,
		string(item.Category),
		levelString(item.Difficulty),
		levelString(item.RiskLevel),
		string(item.Status),
		item.ValueStatement,
		item.MotivationNote,
		item.CostEstimate,
		item.TargetYear,
		jsonTags(item.Tags),
		item.CompletedAt,
		item.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrTimeBucketNotFound
		}
		return fmt.Errorf("failed to update bucket item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBucketItemNotFound
	}
	return nil
}

// Delete deletes an item whose bucket is owned by userID.
func (r *bucketItemRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `
		DELETE FROM bucket_items i
		USING time_buckets b
		WHERE i.id = $1 AND b.id = i.time_bucket_id AND b.user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete bucket item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBucketItemNotFound
	}
	return nil
}

func scanBucketItem(row pgx.Row) (*domain.BucketItem, error) {
	var (
		item                  domain.BucketItem
		category, status      string
		difficulty, riskLevel *string
	)

	err := row.Scan(
		&item.ID,
		&item.TimeBucketID,
		&item.Title,
		&item.Description,
		&category,
		&difficulty,
		&riskLevel,
		&status,
		&item.ValueStatement,
		&item.MotivationNote,
		&item.CostEstimate,
		&item.TargetYear,
		&item.Tags,
		&item.CompletedAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Category = domain.Category(category)
	item.Status = domain.ItemStatus(status)
	item.Difficulty = toLevel(difficulty)
	item.RiskLevel = toLevel(riskLevel)
	if item.Tags == nil {
		item.Tags = []string{}
	}
	return &item, nil
}

func levelString(l *domain.Level) *string {
	if l == nil {
		return nil
	}
	s := string(*l)
	return &s
}

func toLevel(s *string) *domain.Level {
	if s == nil {
		return nil
	}
	l := domain.Level(*s)
	return &l
}

func jsonTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
