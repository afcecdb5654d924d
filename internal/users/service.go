package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/internal/access"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadmart-backend/pkg/errors"
	"github.com/angelmondragon/threadmart-backend/pkg/logger"
	"github.com/angelmondragon/threadmart-backend/pkg/pagination"
)

// Service covers admin user management. Accounts themselves come from the identity provider.
type Service interface {
	List(ctx context.Context, actor access.Actor, params ListParams) (*UserListResult, error)
	UpdateRole(ctx context.Context, actor access.Actor, userID uuid.UUID, role enums.UserRole) (*UserDTO, error)
}

type service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) List(ctx context.Context, actor access.Actor, params ListParams) (*UserListResult, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	if params.Role != nil && !params.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role filter")
	}
	params.Pagination = params.Pagination.Normalize()
	rows, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	result := &UserListResult{
		Users:      make([]UserDTO, 0, len(rows)),
		Pagination: pagination.NewMeta(params.Pagination, total),
	}
	for i := range rows {
		result.Users = append(result.Users, *FromModel(&rows[i]))
	}
	return result, nil
}

// UpdateRole changes another user's role. The new role applies to tokens issued afterwards.
func (s *service) UpdateRole(ctx context.Context, actor access.Actor, userID uuid.UUID, role enums.UserRole) (*UserDTO, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	if userID == actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admins cannot change their own role")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user.Role == role {
		return FromModel(user), nil
	}
	if err := s.repo.UpdateRole(ctx, userID, role); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update role")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"target_user_id": userID.String(),
		"from":           string(user.Role),
		"to":             string(role),
	})
	s.logg.Info(ctx, "user role changed")

	user.Role = role
	return FromModel(user), nil
}
