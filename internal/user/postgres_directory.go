package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolationCode = "23505"

// PostgresDirectory implements Directory using PostgreSQL.
type PostgresDirectory struct {
	db *pgxpool.Pool
}

// NewPostgresDirectory builds a Postgres-backed user directory.
func NewPostgresDirectory(db *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// Insert stores a new user. A collision on the unique_code index maps to
// ErrDuplicateUniqueCode.
func (d *PostgresDirectory) Insert(ctx context.Context, u User) (uuid.UUID, error) {
	_, err := d.db.Exec(ctx, `INSERT INTO users (id, name, role, unique_code, password_hash, phone, verified, institution_name, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Name, string(u.Role), u.UniqueCode, u.PasswordHash,
		nullable(u.Phone), u.Verified, nullable(u.InstitutionName), u.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return uuid.Nil, ErrDuplicateUniqueCode
		}
		return uuid.Nil, err
	}
	return u.ID, nil
}

// GetByID fetches a user by primary key.
func (d *PostgresDirectory) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := d.db.QueryRow(ctx, selectUser+` WHERE id = $1`, id)
	return scanUser(row)
}

// GetByUniqueCode fetches a user by its human-assigned code.
func (d *PostgresDirectory) GetByUniqueCode(ctx context.Context, code string) (User, error) {
	row := d.db.QueryRow(ctx, selectUser+` WHERE unique_code = $1`, code)
	return scanUser(row)
}

const selectUser = `SELECT id, name, role, unique_code, password_hash, phone, verified, institution_name, created_at FROM users`

func scanUser(row pgx.Row) (User, error) {
	var (
		u         User
		role      string
		phone     *string
		verified  *bool
		inst      *string
		createdAt time.Time
	)
	err := row.Scan(&u.ID, &u.Name, &role, &u.UniqueCode, &u.PasswordHash, &phone, &verified, &inst, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	u.Role = Role(role)
	if phone != nil {
		u.Phone = *phone
	}
	if verified != nil {
		u.Verified = *verified
	}
	if inst != nil {
		u.InstitutionName = *inst
	}
	u.CreatedAt = createdAt.UTC()
	return u, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
