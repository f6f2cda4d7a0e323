package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqliteUsersSchema = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT NOT NULL UNIQUE,
    username TEXT NOT NULL UNIQUE,
    bio TEXT,
    image TEXT,
    hash TEXT NOT NULL
)`

// SQLiteUserRepository implements UserRepository on database/sql with the
// pure-Go sqlite driver. Used for local runs and tests.
type SQLiteUserRepository struct {
	db *sql.DB
}

// OpenSQLite opens dsn with the sqlite driver and creates the users table.
// In-memory databases are pinned to one connection so every query sees the
// same data.
func OpenSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("empty sqlite dsn")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteUsersSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create users table: %w", err)
	}
	return db, nil
}

func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

func (r *SQLiteUserRepository) FindByID(ctx context.Context, id int64) (*UserRecord, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

func (r *SQLiteUserRepository) FindByEmail(ctx context.Context, email string) (*UserRecord, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, email))
}

func (r *SQLiteUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM users WHERE email = ? LIMIT 1`, email)
}

func (r *SQLiteUserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM users WHERE username = ? LIMIT 1`, username)
}

func (r *SQLiteUserRepository) Create(ctx context.Context, u NewUserRecord) (*UserRecord, error) {
	const q = `INSERT INTO users (email, username, hash) VALUES (?, ?, ?) RETURNING ` + userColumns
	rec, err := r.scanOne(r.db.QueryRowContext(ctx, q, u.Email, u.Username, u.PasswordHash))
	return rec, sqliteConflict(err)
}

func (r *SQLiteUserRepository) Update(ctx context.Context, id int64, c UserChanges) (*UserRecord, error) {
	const q = `
UPDATE users
SET
    email = COALESCE(?, email),
    username = COALESCE(?, username),
    hash = COALESCE(?, hash),
    image = COALESCE(?, image),
    bio = COALESCE(?, bio)
WHERE id = ?
RETURNING ` + userColumns
	rec, err := r.scanOne(r.db.QueryRowContext(ctx, q, c.Email, c.Username, c.PasswordHash, c.Image, c.Bio, id))
	return rec, sqliteConflict(err)
}

func (r *SQLiteUserRepository) scanOne(row *sql.Row) (*UserRecord, error) {
	var u UserRecord
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.Bio, &u.Image, &u.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *SQLiteUserRepository) exists(ctx context.Context, q string, arg string) (bool, error) {
	var one int
	if err := r.db.QueryRowContext(ctx, q, arg).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// sqliteConflict maps UNIQUE failures on users.email / users.username.
func sqliteConflict(err error) error {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	if code := sqliteErr.Code(); code != sqlite3.SQLITE_CONSTRAINT_UNIQUE && code != sqlite3.SQLITE_CONSTRAINT {
		return err
	}
	msg := sqliteErr.Error()
	switch {
	case strings.Contains(msg, "users.email"):
		return ErrEmailConflict
	case strings.Contains(msg, "users.username"):
		return ErrUsernameConflict
	default:
		return err
	}
}
