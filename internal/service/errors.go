package service

import (
	"database/sql"
	"errors"

	"github.com/noah-isme/school-portal-api/internal/repository"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

// repoError translates repository failures into API errors. what names the
// entity for not found and conflict messages.
func repoError(err error, what, message string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, what+" not found")
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, what+" already exists")
	case errors.Is(err, repository.ErrReference):
		return appErrors.Invalid(err, "referenced record does not exist")
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Internal(err, message)
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
