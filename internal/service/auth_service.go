package service

import (
	"context"
	"fmt"

	"signal_kz/internal/model"
	"signal_kz/internal/utils"
)

// AuthService issues dashboard tokens to staff members
type AuthService interface {
	// IssueToken signs a token carrying the user's current role. Citizens are refused.
	IssueToken(ctx context.Context, userID int64) (string, *model.User, error)
	TokenLifetimeHours() int64
}

type authService struct {
	roles   RoleService
	jwtUtil *utils.JWTUtil
}

// NewAuthService creates a new AuthService
func NewAuthService(roles RoleService, jwtUtil *utils.JWTUtil) AuthService {
	return &authService{
		roles:   roles,
		jwtUtil: jwtUtil,
	}
}

func (s *authService) IssueToken(ctx context.Context, userID int64) (string, *model.User, error) {
	user, err := s.roles.Get(ctx, userID)
	if err != nil {
		return "", nil, err
	}
	if !user.Role.IsStaff() {
		return "", nil, ErrForbidden
	}

	token, err := s.jwtUtil.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return token, user, nil
}

func (s *authService) TokenLifetimeHours() int64 {
	return s.jwtUtil.ExpirationHours()
}
