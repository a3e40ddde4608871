package command

import (
	"context"
	"errors"
	"time"

	"github.com/mojagap/moja-node/internal/repository"
	"github.com/mojagap/moja-node/shared/apperr"
	"github.com/mojagap/moja-node/shared/models"
)

type RoleResolver struct{}

// SuperRole creates the account's super user role holding the seeded
// all-access permission.
func (RoleResolver) SuperRole(ctx context.Context, repos repository.Repositories, accountID, actorID uint, now time.Time) (*models.Role, error) {
	permission, err := repos.Roles().FindPermissionByName(ctx, models.SuperPermission)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NewNotFoundError("Permission", "name "+models.SuperPermission)
	}
	if err != nil {
		return nil, err
	}

	role := &models.Role{
		Name:        models.SuperRoleName,
		Description: models.SuperRoleDescription,
		AccountID:   accountID,
		Permissions: []models.Permission{*permission},
	}
	role.StampCreate(actorID, now)
	if err := repos.Roles().Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}
