package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/pashagolub/pgxmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStorageWithMock(t *testing.T) (*PostgresStorage, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStorage{db: mock}, mock
}

const (
	insertUserQuery   = `INSERT INTO users(id, email, password_hash) VALUES ($1, $2, $3);`
	selectByEmail     = `SELECT id, email, password_hash, COALESCE(refresh_token, ''), created_at`
	setTokenQuery     = `UPDATE users SET refresh_token=$1 WHERE id=$2;`
	rotateTokenQuery  = `UPDATE users SET refresh_token=$1 WHERE id=$2 AND refresh_token=$3;`
	byRefreshTokenSQL = `WHERE refresh_token=$1;`
)

func userColumns() []string {
	return []string{"id", "email", "password_hash", "refresh_token", "created_at"}
}

func TestPostgres_CreateUser(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectExec(regexp.QuoteMeta(insertUserQuery)).
		WithArgs(pgxmock.AnyArg(), "a@x.com", "hash").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := s.CreateUser(context.Background(), "a@x.com", "hash")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateUser_UniqueViolation(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectExec(regexp.QuoteMeta(insertUserQuery)).
		WithArgs(pgxmock.AnyArg(), "a@x.com", "hash").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := s.CreateUser(context.Background(), "a@x.com", "hash")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestPostgres_CreateUser_DBError(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectExec(regexp.QuoteMeta(insertUserQuery)).
		WithArgs(pgxmock.AnyArg(), "a@x.com", "hash").
		WillReturnError(errors.New("db down"))

	_, err := s.CreateUser(context.Background(), "a@x.com", "hash")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.CreateUser: db down")
	assert.NotErrorIs(t, err, ErrUserExists)
}

func TestPostgres_GetUserByEmail(t *testing.T) {
	s, mock := newStorageWithMock(t)

	id := uuid.Must(uuid.NewV4())
	created := time.Now().UTC().Truncate(time.Second)

	mock.ExpectQuery(regexp.QuoteMeta(selectByEmail)).
		WithArgs("a@x.com").
		WillReturnRows(pgxmock.NewRows(userColumns()).
			AddRow(id.String(), "a@x.com", "hash", "tok", created))

	u, err := s.GetUserByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "a@x.com", u.Email)
	assert.Equal(t, "hash", u.PasswordHash)
	assert.Equal(t, "tok", u.RefreshToken)
	assert.True(t, created.Equal(u.CreatedAt))
}

func TestPostgres_GetUserByEmail_NotFound(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectByEmail)).
		WithArgs("ghost@x.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetUserByEmail(context.Background(), "ghost@x.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPostgres_GetUserByRefreshToken(t *testing.T) {
	s, mock := newStorageWithMock(t)

	id := uuid.Must(uuid.NewV4())
	mock.ExpectQuery(regexp.QuoteMeta(byRefreshTokenSQL)).
		WithArgs("tok").
		WillReturnRows(pgxmock.NewRows(userColumns()).
			AddRow(id.String(), "a@x.com", "hash", "tok", time.Now()))

	u, err := s.GetUserByRefreshToken(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)

	mock.ExpectQuery(regexp.QuoteMeta(byRefreshTokenSQL)).
		WithArgs("stale").
		WillReturnError(pgx.ErrNoRows)

	_, err = s.GetUserByRefreshToken(context.Background(), "stale")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPostgres_SetRefreshToken(t *testing.T) {
	s, mock := newStorageWithMock(t)
	id := uuid.Must(uuid.NewV4())

	mock.ExpectExec(regexp.QuoteMeta(setTokenQuery)).
		WithArgs("tok", id.String()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, s.SetRefreshToken(context.Background(), id, "tok"))

	mock.ExpectExec(regexp.QuoteMeta(setTokenQuery)).
		WithArgs("tok", id.String()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, s.SetRefreshToken(context.Background(), id, "tok"), ErrUserNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RotateRefreshToken(t *testing.T) {
	s, mock := newStorageWithMock(t)
	id := uuid.Must(uuid.NewV4())

	mock.ExpectExec(regexp.QuoteMeta(rotateTokenQuery)).
		WithArgs("new", id.String(), "old").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, s.RotateRefreshToken(context.Background(), id, "old", "new"))

	mock.ExpectExec(regexp.QuoteMeta(rotateTokenQuery)).
		WithArgs("newer", id.String(), "old").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, s.RotateRefreshToken(context.Background(), id, "old", "newer"), ErrTokenMismatch)

	mock.ExpectExec(regexp.QuoteMeta(rotateTokenQuery)).
		WithArgs("x", id.String(), "y").
		WillReturnError(errors.New("db down"))
	err := s.RotateRefreshToken(context.Background(), id, "y", "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTokenMismatch)

	require.NoError(t, mock.ExpectationsWereMet())
}
