package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/movieboxd/movieboxd/src/internal/domain"
)

const uniqueViolation = "23505"

type PostgresUserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, email, username, name, bio, avatar, created_at`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var (
		u        domain.User
		username sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Email, &username, &u.Name, &u.Bio, &u.Avatar, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Username = username.String
	return &u, nil
}

func (r *PostgresUserRepo) getBy(ctx context.Context, column, value string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by %s: %w", column, err)
	}
	return u, nil
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *PostgresUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *PostgresUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getBy(ctx, "username", username)
}

func (r *PostgresUserRepo) CreateIfAbsent(ctx context.Context, user *domain.User) (bool, error) {
	query := `
		INSERT INTO users (id, email, username, name, bio, avatar, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
		ON CONFLICT DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Username, user.Name, user.Bio, user.Avatar, user.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users SET
			username = NULLIF($2, ''),
			name = $3,
			bio = $4,
			avatar = $5
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.Name, user.Bio, user.Avatar)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrUsernameTaken
		}
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// Search matches query as a case-insensitive substring of username or email.
func (r *PostgresUserRepo) Search(ctx context.Context, query string, limit int) ([]domain.User, error) {
	pattern := "%" + escapeLike(query) + "%"
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE username ILIKE $1 OR email ILIKE $1
		ORDER BY username NULLS LAST, email
		LIMIT $2
	`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("search users: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
