package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-store/internal/domain/user"
)

const (
	createUserSQL = `INSERT INTO users (username, password_hash) VALUES ($1, $2)
		RETURNING id, created_at`

	selectUserSQL = `SELECT u.id, u.username, u.password_hash, COALESCE(c.id, 0), u.created_at
		FROM users u LEFT JOIN carts c ON c.user_id = u.id`

	getUserByIDSQL = selectUserSQL + ` WHERE u.id = $1`

	findUserByUsernameSQL = selectUserSQL + ` WHERE u.username = $1`

	listUsernamesSQL = `SELECT username FROM users`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts u and assigns its ID and creation time.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	err := r.pool.QueryRow(ctx, createUserSQL, u.Username, u.PasswordHash).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrUsernameTaken
		}
		return errors.Wrapf(err, "create user %q", u.Username)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return r.one(ctx, getUserByIDSQL, id)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.one(ctx, findUserByUsernameSQL, username)
}

// Usernames lists every registered username.
func (r *UserRepository) Usernames(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listUsernamesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list usernames")
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *UserRepository) one(ctx context.Context, sql string, arg any) (*user.User, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, errors.Wrapf(err, "get user %v", arg)
	}

	u, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[user.User])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get user %v", arg)
	}
	return &u, nil
}
