package service

import (
	"context"
	"fmt"

	"signal_kz/internal/model"
	"signal_kz/internal/repository"

	"github.com/sirupsen/logrus"
)

// RoleService is the directory of known users and their roles
type RoleService interface {
	// EnsureRegistered records a first contact; repeated calls never change an existing user.
	EnsureRegistered(ctx context.Context, userID int64, profile model.Profile) error
	// RoleOf returns the stored role, or citizen for unknown users.
	RoleOf(ctx context.Context, userID int64) (model.Role, error)
	Get(ctx context.Context, userID int64) (*model.User, error)
	// SetRole lets an admin assign any role to an existing user.
	SetRole(ctx context.Context, actorID, targetID int64, role string) (model.Role, error)
	// SelfAssign lets a user take the moderator or official role.
	SelfAssign(ctx context.Context, userID int64, role model.Role) error
	Cohort(ctx context.Context, role model.Role) ([]int64, error)
}

type roleService struct {
	users         repository.UserRepository
	initialAdmins map[int64]bool
	log           *logrus.Logger
}

// NewRoleService creates a new RoleService. Users listed in initialAdmins
// become admins when they first register.
func NewRoleService(users repository.UserRepository, initialAdmins []int64, log *logrus.Logger) RoleService {
	admins := make(map[int64]bool, len(initialAdmins))
	for _, id := range initialAdmins {
		admins[id] = true
	}
	return &roleService{users: users, initialAdmins: admins, log: log}
}

func (s *roleService) EnsureRegistered(ctx context.Context, userID int64, profile model.Profile) error {
	role := model.RoleCitizen
	if s.initialAdmins[userID] {
		role = model.RoleAdmin
	}

	created, err := s.users.Insert(ctx, &model.User{
		ID:        userID,
		Username:  profile.Username,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Role:      role,
	})
	if err != nil {
		return persistence("register user", err)
	}
	if created {
		s.log.WithFields(logrus.Fields{"user_id": userID, "role": role}).Info("New user registered")
	}
	return nil
}

func (s *roleService) RoleOf(ctx context.Context, userID int64) (model.Role, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", persistence("load user role", err)
	}
	if user == nil {
		return model.RoleCitizen, nil
	}
	return user.Role, nil
}

func (s *roleService) Get(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, persistence("load user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *roleService) SetRole(ctx context.Context, actorID, targetID int64, role string) (model.Role, error) {
	actorRole, err := s.RoleOf(ctx, actorID)
	if err != nil {
		return "", err
	}
	if actorRole != model.RoleAdmin {
		return "", ErrForbidden
	}

	newRole, ok := model.ParseRole(role)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	updated, err := s.users.UpdateRole(ctx, targetID, newRole)
	if err != nil {
		return "", persistence("update role", err)
	}
	if !updated {
		return "", ErrUserNotFound
	}

	s.log.WithFields(logrus.Fields{"user_id": targetID, "role": newRole, "actor_id": actorID}).Info("Role assigned")
	return newRole, nil
}

func (s *roleService) SelfAssign(ctx context.Context, userID int64, role model.Role) error {
	if role != model.RoleModerator && role != model.RoleOfficial {
		return fmt.Errorf("%w: %q cannot be self-assigned", ErrInvalidRole, role)
	}

	updated, err := s.users.UpdateRole(ctx, userID, role)
	if err != nil {
		return persistence("update role", err)
	}
	if !updated {
		return ErrUserNotFound
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "role": role}).Warn("Role self-assigned")
	return nil
}

func (s *roleService) Cohort(ctx context.Context, role model.Role) ([]int64, error) {
	ids, err := s.users.FindIDsByRole(ctx, role)
	if err != nil {
		return nil, persistence("load cohort", err)
	}
	return ids, nil
}
