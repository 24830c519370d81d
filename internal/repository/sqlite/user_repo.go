package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prn-tf/timebucket/internal/domain"
	"github.com/prn-tf/timebucket/internal/repository"
)

// userRepository implements repository.UserRepository for SQLite.
type userRepository struct {
	db *DB
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, provider, uid, birthdate, timezone, values_tags, created_at, updated_at`

// Create creates a new user and its default notification preference.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	tags, err := marshalJSON(user.ValuesTags, "{}")
	if err != nil {
		return err
	}

	pref := domain.NewNotificationPreference(user.ID, user.CreatedAt)
	events, err := marshalJSON(pref.Events, "{}")
	if err != nil {
		return err
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (`+userColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			user.ID.String(),
			user.Email,
			user.Provider,
			user.UID,
			nullDate(user.Birthdate),
			user.Timezone,
			tags,
			formatTime(user.CreatedAt),
			formatTime(user.UpdatedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: email or provider identity already exists", domain.ErrUserAlreadyExists)
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO notification_preferences
				(id, user_id, email_enabled, slack_webhook_url, digest_time, events, created_at, updated_at)
			VALUES (?, ?, ?, NULL, ?, ?, ?, ?)
		`,
			pref.ID.String(),
			pref.UserID.String(),
			boolToInt(pref.EmailEnabled),
			pref.DigestTime,
			events,
			formatTime(pref.CreatedAt),
			formatTime(pref.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to create notification preference: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a user by ID.
func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id.String())
	return r.scanUser(row, "ID")
}

// GetByEmail retrieves a user by email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return r.scanUser(row, "email")
}

// GetByProvider retrieves a user by external identity.
func (r *userRepository) GetByProvider(ctx context.Context, provider, uid string) (*domain.User, error) {
	if provider == "" {
		return nil, domain.ErrUserNotFound
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE provider = ? AND uid = ?`, provider, uid)
	return r.scanUser(row, "provider")
}

// Update updates an existing user.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	tags, err := marshalJSON(user.ValuesTags, "{}")
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET email = ?, provider = ?, uid = ?, birthdate = ?, timezone = ?, values_tags = ?, updated_at = ?
		WHERE id = ?
	`,
		user.Email,
		user.Provider,
		user.UID,
		nullDate(user.Birthdate),
		user.Timezone,
		tags,
		formatTime(user.UpdatedAt),
		user.ID.String(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email or provider identity already exists", domain.ErrUserAlreadyExists)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}

// Delete deletes a user by ID.
func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}

// List returns users ordered by creation time.
func (r *userRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	opts = opts.Normalize()

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, email LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		u, err := r.scanUser(rows, "")
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

type scanner interface {
	Scan(dest ...any) error
}

func (r *userRepository) scanUser(s scanner, by string) (*domain.User, error) {
	var (
		user                 domain.User
		id                   string
		birthdate            sql.NullString
		tags                 string
		createdAt, updatedAt string
	)

	err := s.Scan(&id, &user.Email, &user.Provider, &user.UID, &birthdate, &user.Timezone, &tags, &createdAt, &updatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by %s: %w", by, err)
	}

	user.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("corrupt user id %q: %w", id, err)
	}
	if birthdate.Valid {
		d, err := domain.ParseDate(birthdate.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt birthdate for user %s: %w", id, err)
		}
		user.Birthdate = &d
	}
	user.ValuesTags = map[string]any{}
	if err := unmarshalJSON(tags, &user.ValuesTags); err != nil {
		return nil, err
	}
	user.CreatedAt = parseTime(createdAt)
	user.UpdatedAt = parseTime(updatedAt)

	return &user, nil
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(domain.DateLayout), Valid: true}
}
