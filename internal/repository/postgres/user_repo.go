package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/timebucket/internal/domain"
	"github.com/prn-tf/timebucket/internal/repository"
)

// userRepository implements repository.UserRepository.
type userRepository struct {
	db *DB
}

// NewUserRepository creates a new PostgreSQL user repository.
func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, provider, uid, birthdate, timezone, values_tags, created_at, updated_at`

// Create inserts the user and its default notification preference in one transaction.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	pref := domain.NewNotificationPreference(user.ID, user.CreatedAt)

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO users (`+userColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			user.ID,
			user.Email,
			user.Provider,
			user.UID,
			user.Birthdate,
			user.Timezone,
			jsonMap(user.ValuesTags),
			user.CreatedAt,
			user.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: email or provider identity already exists", domain.ErrUserAlreadyExists)
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO notification_preferences
				(id, user_id, email_enabled, slack_webhook_url, digest_time, events, created_at, updated_at)
			VALUES ($1, $2, $3, NULL, $4, $5, $6, $7)
		`,
			pref.ID,
			pref.UserID,
			pref.EmailEnabled,
			pref.DigestTime,
			pref.Events,
			pref.CreatedAt,
			pref.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create notification preference: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a user by ID.
func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row, "ID")
}

// GetByEmail retrieves a user by email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row, "email")
}

// GetByProvider retrieves a user by external identity.
func (r *userRepository) GetByProvider(ctx context.Context, provider, uid string) (*domain.User, error) {
	if provider == "" {
		return nil, domain.ErrUserNotFound
	}
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE provider = $1 AND uid = $2`, provider, uid)
	return scanUser(row, "provider")
}

// Update updates an existing user.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE users
		SET email = $2, provider = $3, uid = $4, birthdate = $5, timezone = $6, values_tags = $7, updated_at = $8
		WHERE id = $1
	`,
		user.ID,
		user.Email,
		user.Provider,
		user.UID,
		user.Birthdate,
		user.Timezone,
		jsonMap(user.ValuesTags),
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email or provider identity already exists", domain.ErrUserAlreadyExists)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// Delete deletes a user by ID.
func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// List returns users ordered by creation time.
func (r *userRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	opts = opts.Normalize()

	var total int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, email LIMIT $1 OFFSET $2`,
		opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows, "")
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return &repository.ListResult[domain.User]{
		Items:  users,
		Total:  total,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

func scanUser(row pgx.Row, by string) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Provider,
		&user.UID,
		&user.Birthdate,
		&user.Timezone,
		&user.ValuesTags,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by %s: %w", by, err)
	}
	if user.ValuesTags == nil {
		user.ValuesTags = map[string]any{}
	}
	return &user, nil
}

func jsonMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
