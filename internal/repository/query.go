package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	uniqueViolation = "23505"
	fkViolation     = "23503"
)

var (
	// ErrDuplicate wraps unique constraint violations.
	ErrDuplicate = errors.New("duplicate record")
	// ErrReference wraps foreign key violations.
	ErrReference = errors.New("referenced record missing")
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// classify maps PostgreSQL constraint errors onto package sentinels.
func classify(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%s: %w (%s)", op, ErrDuplicate, pqErr.Constraint)
		case fkViolation:
			return fmt.Errorf("%s: %w (%s)", op, ErrReference, pqErr.Constraint)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func pageBounds(page, size int) (int, int, uint64) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	return page, size, uint64((page - 1) * size)
}

// orderBy resolves a caller supplied sort key against allowed columns.
func orderBy(sortBy, sortOrder string, allowed map[string]string, fallback string) string {
	column, ok := allowed[sortBy]
	if !ok {
		column = allowed[fallback]
	}
	dir := strings.ToUpper(sortOrder)
	if dir != "ASC" && dir != "DESC" {
		dir = "DESC"
	}
	return column + " " + dir
}

// selectPage runs base as a paginated list into dest and a COUNT(*) over the same filter.
func selectPage(ctx context.Context, q sqlx.QueryerContext, dest interface{}, base squirrel.SelectBuilder, columns []string, order string, page, size int) (int, error) {
	_, size, offset := pageBounds(page, size)

	listSQL, args, err := base.Columns(columns...).OrderBy(order).Limit(uint64(size)).Offset(offset).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build list query: %w", err)
	}
	if err := sqlx.SelectContext(ctx, q, dest, listSQL, args...); err != nil {
		return 0, err
	}

	countSQL, countArgs, err := base.Columns("COUNT(*)").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := sqlx.GetContext(ctx, q, &total, countSQL, countArgs...); err != nil {
		return 0, err
	}
	return total, nil
}

func likePattern(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}
