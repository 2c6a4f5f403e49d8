package repository

import (
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestClassifyMapsConstraintErrors(t *testing.T) {
	err := classify("create", &pq.Error{Code: uniqueViolation, Constraint: "courses_code_key"})
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.Contains(t, err.Error(), "courses_code_key")

	err = classify("create", &pq.Error{Code: fkViolation})
	assert.True(t, errors.Is(err, ErrReference))

	plain := errors.New("boom")
	err = classify("create", plain)
	assert.True(t, errors.Is(err, plain))
	assert.False(t, errors.Is(err, ErrDuplicate))
}

func TestPageBounds(t *testing.T) {
	page, size, offset := pageBounds(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, defaultPageSize, size)
	assert.Equal(t, uint64(0), offset)

	_, size, offset = pageBounds(3, 10)
	assert.Equal(t, 10, size)
	assert.Equal(t, uint64(20), offset)

	_, size, _ = pageBounds(1, 1000)
	assert.Equal(t, defaultPageSize, size)
}

func TestOrderByFallsBackOnUnknownColumn(t *testing.T) {
	allowed := map[string]string{"name": "c.name", "created_at": "c.created_at"}
	assert.Equal(t, "c.name ASC", orderBy("name", "asc", allowed, "created_at"))
	assert.Equal(t, "c.created_at DESC", orderBy("password; DROP TABLE", "sideways", allowed, "created_at"))
}
