package service

import (
	"context"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type guardianChecker interface {
	IsGuardianOf(ctx context.Context, guardianID, studentID string) (bool, error)
}

// studentAccess decides who may read a student's records: the student,
// linked guardians, faculty and admins.
type studentAccess struct {
	guardians guardianChecker
}

func (a studentAccess) check(ctx context.Context, actor models.Actor, studentID string) error {
	switch actor.Role {
	case models.RoleAdmin, models.RoleFaculty:
		return nil
	case models.RoleStudent:
		if actor.ProfileID == studentID {
			return nil
		}
	case models.RoleGuardian:
		if a.guardians == nil {
			break
		}
		ok, err := a.guardians.IsGuardianOf(ctx, actor.ProfileID, studentID)
		if err != nil {
			return appErrors.Internal(err, "failed to check guardian link")
		}
		if ok {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this student")
}

type facultyChecker interface {
	IsFacultyAssigned(ctx context.Context, facultyID, courseID string) (bool, error)
}

// requireCourseStaff allows admins and faculty actively assigned to courseID.
func requireCourseStaff(ctx context.Context, checker facultyChecker, actor models.Actor, courseID string) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.Role != models.RoleFaculty {
		return appErrors.Clone(appErrors.ErrForbidden, "only course faculty may do this")
	}
	ok, err := checker.IsFacultyAssigned(ctx, actor.ProfileID, courseID)
	if err != nil {
		return appErrors.Internal(err, "failed to check course assignment")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrForbidden, "faculty is not assigned to this course")
	}
	return nil
}
