package core

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailConflict    = errors.New("email already exists")
	ErrUsernameConflict = errors.New("username already exists")
)

// UserRecord is a row of the users table.
type UserRecord struct {
	ID           int64
	Email        string
	Username     string
	Bio          *string
	Image        *string
	PasswordHash string
}

// NewUserRecord holds the columns supplied at registration.
type NewUserRecord struct {
	Email        string
	Username     string
	PasswordHash string
}

// UserChanges lists the columns to overwrite; nil keeps the stored value.
type UserChanges struct {
	Email        *string
	Username     *string
	PasswordHash *string
	Image        *string
	Bio          *string
}

// UserRepository defines persistence operations for users.
//
// Create and Update report ErrEmailConflict / ErrUsernameConflict when a unique
// constraint rejects the write. The handlers check uniqueness first, but two
// concurrent registrations can both pass that check; the constraint is the
// final arbiter.
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*UserRecord, error)
	FindByEmail(ctx context.Context, email string) (*UserRecord, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, u NewUserRecord) (*UserRecord, error)
	Update(ctx context.Context, id int64, changes UserChanges) (*UserRecord, error)
}

const userColumns = `id, email, username, bio, image, hash`

// PgUserRepository implements UserRepository using pgxpool.
type PgUserRepository struct {
	db *pgxpool.Pool
}

func NewPgUserRepository(db *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{db: db}
}

func (r *PgUserRepository) FindByID(ctx context.Context, id int64) (*UserRecord, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return r.scanOne(r.db.QueryRow(ctx, q, id))
}

func (r *PgUserRepository) FindByEmail(ctx context.Context, email string) (*UserRecord, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return r.scanOne(r.db.QueryRow(ctx, q, email))
}

func (r *PgUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM users WHERE email=$1 LIMIT 1`, email)
}

func (r *PgUserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM users WHERE username=$1 LIMIT 1`, username)
}

func (r *PgUserRepository) Create(ctx context.Context, u NewUserRecord) (*UserRecord, error) {
	const q = `INSERT INTO users (email, username, hash) VALUES ($1,$2,$3) RETURNING ` + userColumns
	rec, err := r.scanOne(r.db.QueryRow(ctx, q, u.Email, u.Username, u.PasswordHash))
	return rec, pgConflict(err)
}

// Update applies changes with COALESCE so absent fields keep their value.
func (r *PgUserRepository) Update(ctx context.Context, id int64, c UserChanges) (*UserRecord, error) {
	const q = `
UPDATE users
SET
    email = COALESCE($2, email),
    username = COALESCE($3, username),
    hash = COALESCE($4, hash),
    image = COALESCE($5, image),
    bio = COALESCE($6, bio)
WHERE id = $1
RETURNING ` + userColumns
	rec, err := r.scanOne(r.db.QueryRow(ctx, q, id, c.Email, c.Username, c.PasswordHash, c.Image, c.Bio))
	return rec, pgConflict(err)
}

func (r *PgUserRepository) scanOne(row pgx.Row) (*UserRecord, error) {
	var u UserRecord
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.Bio, &u.Image, &u.PasswordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *PgUserRepository) exists(ctx context.Context, q string, arg string) (bool, error) {
	var one int
	if err := r.db.QueryRow(ctx, q, arg).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// pgConflict maps unique violations on users to the repository sentinels.
func pgConflict(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case "users_email_key":
		return ErrEmailConflict
	case "users_username_key":
		return ErrUsernameConflict
	default:
		return err
	}
}
