package storage

import (
	"context"
	"errors"
	"fmt"

	"auth_backend/internal/models"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const (
	usersTable = "users"

	uniqueViolation = "23505"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUserExists    = errors.New("user already exists")
	ErrTokenMismatch = errors.New("refresh token was replaced")
)

// Storage is the credential store: users with their password hash and the
// single refresh token currently valid for them.
type Storage interface {
	CreateUser(ctx context.Context, email, passwordHash string) (userID uuid.UUID, err error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUserByRefreshToken(ctx context.Context, token string) (models.User, error)

	// SetRefreshToken overwrites whatever token the user had.
	SetRefreshToken(ctx context.Context, userID uuid.UUID, token string) error
	// RotateRefreshToken replaces oldToken with newToken only if oldToken is
	// still the stored value, otherwise it returns ErrTokenMismatch.
	RotateRefreshToken(ctx context.Context, userID uuid.UUID, oldToken, newToken string) error

	Close()
}

// pool is the part of *pgxpool.Pool used by PostgresStorage.
type pool interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Close()
}

type PostgresStorage struct {
	db pool
}

func NewPostgresStorage(ctx context.Context, DbURL string) (*PostgresStorage, error) {
	const op = "storage.NewPostgresStorage"

	conn, err := pgxpool.Connect(ctx, DbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &PostgresStorage{
		db: conn,
	}, nil
}

func (p *PostgresStorage) CreateUser(ctx context.Context, email, passwordHash string) (uuid.UUID, error) {
	const op = "storage.CreateUser"

	userID, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	query := fmt.Sprintf("INSERT INTO %s(id, email, password_hash) VALUES ($1, $2, $3);", usersTable)

	if _, err := p.db.Exec(ctx, query, userID.String(), email, passwordHash); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return uuid.Nil, fmt.Errorf("%s: %w", op, ErrUserExists)
		}
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return userID, nil
}

func (p *PostgresStorage) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	const op = "storage.GetUserByEmail"

	query := fmt.Sprintf(`SELECT id, email, password_hash, COALESCE(refresh_token, ''), created_at
	FROM %s WHERE email=$1;`, usersTable)

	user, err := p.scanUser(p.db.QueryRow(ctx, query, email))
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (p *PostgresStorage) GetUserByRefreshToken(ctx context.Context, token string) (models.User, error) {
	const op = "storage.GetUserByRefreshToken"

	query := fmt.Sprintf(`SELECT id, email, password_hash, COALESCE(refresh_token, ''), created_at
	FROM %s WHERE refresh_token=$1;`, usersTable)

	user, err := p.scanUser(p.db.QueryRow(ctx, query, token))
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (p *PostgresStorage) SetRefreshToken(ctx context.Context, userID uuid.UUID, token string) error {
	const op = "storage.SetRefreshToken"

	query := fmt.Sprintf("UPDATE %s SET refresh_token=$1 WHERE id=$2;", usersTable)

	tag, err := p.db.Exec(ctx, query, token, userID.String())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}

	return nil
}

func (p *PostgresStorage) RotateRefreshToken(ctx context.Context, userID uuid.UUID, oldToken, newToken string) error {
	const op = "storage.RotateRefreshToken"

	query := fmt.Sprintf("UPDATE %s SET refresh_token=$1 WHERE id=$2 AND refresh_token=$3;", usersTable)

	tag, err := p.db.Exec(ctx, query, newToken, userID.String(), oldToken)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrTokenMismatch)
	}

	return nil
}

func (p *PostgresStorage) Close() {
	p.db.Close()
}

func (p *PostgresStorage) scanUser(row pgx.Row) (models.User, error) {
	var (
		user models.User
		id   string
	)

	err := row.Scan(&id, &user.Email, &user.PasswordHash, &user.RefreshToken, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}

	user.ID, err = uuid.FromString(id)
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}
