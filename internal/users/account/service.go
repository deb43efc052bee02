// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/internal/users/auth"
	"github.com/taibuivan/quill/pkg/pagination"
	"github.com/taibuivan/quill/pkg/pointer"
	"github.com/taibuivan/quill/pkg/uuid"
)

// # Service Layer

// Service orchestrates account use cases.
type Service struct {
	accountRepository AccountRepository
	logger            *slog.Logger
}

// NewService constructs a new [Service] with its repository dependency.
func NewService(accountRepo AccountRepository, logger *slog.Logger) *Service {
	return &Service{accountRepository: accountRepo, logger: logger}
}

// # Profile Management

// GetProfile retrieves the full private profile of a user.
func (service *Service) GetProfile(context context.Context, userID string) (*auth.User, error) {
	user, err := service.accountRepository.FindByID(context, userID)
	if err != nil {
		return nil, fmt.Errorf("account_service_get_profile_failed: %w", err)
	}
	return user, nil
}

// GetPublicProfile returns what anyone may see of an account. Anything that is
// not a UUID cannot name an account and is reported as NotFound.
func (service *Service) GetPublicProfile(context context.Context, userID string) (*Profile, error) {
	if !uuid.Valid(userID) {
		return nil, apperr.NotFound("User")
	}

	user, err := service.accountRepository.FindByID(context, userID)
	if err != nil {
		return nil, fmt.Errorf("account_service_get_public_profile_failed: %w", err)
	}
	return NewProfile(user), nil
}

/*
UpdateProfile applies a partial update to the caller's own profile.

Returns:
  - *auth.User: The updated profile
  - error: NotFound, Conflict on a taken username, or storage failures
*/
func (service *Service) UpdateProfile(context context.Context, userID string, input UpdateProfileInput) (*auth.User, error) {
	user, err := service.accountRepository.FindByID(context, userID)
	if err != nil {
		return nil, fmt.Errorf("account_service_update_profile_failed: %w", err)
	}

	changed := pointer.Apply(&user.Username, trimmed(input.Username))
	changed = pointer.Apply(&user.DisplayName, trimmed(input.DisplayName)) || changed
	changed = pointer.Apply(&user.Bio, input.Bio) || changed

	if !changed {
		return user, nil
	}

	if err := service.accountRepository.Update(context, user); err != nil {
		return nil, fmt.Errorf("account_service_update_profile_failed: %w", err)
	}

	service.logger.InfoContext(context, "profile_updated", slog.String("user_id", user.ID))
	return user, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	return pointer.To(strings.TrimSpace(*value))
}

// # Administration

// ListUsers returns one page of the user directory.
func (service *Service) ListUsers(context context.Context, filter ListFilter, page pagination.Params) ([]*auth.User, int, error) {
	users, total, err := service.accountRepository.List(context, filter, page)
	if err != nil {
		return nil, 0, fmt.Errorf("account_service_list_failed: %w", err)
	}
	return users, total, nil
}

/*
ChangeRole assigns a role to another account.

The actor must be an admin and cannot change their own role, so the last
admin can never demote themselves by accident.
*/
func (service *Service) ChangeRole(context context.Context, actor *sec.Principal, userID string, role sec.UserRole) (*auth.User, error) {
	if !actor.Can(sec.RoleAdmin) {
		return nil, apperr.Forbidden("Only administrators can change roles")
	}
	if !role.Valid() {
		return nil, apperr.ValidationError("Invalid role", apperr.FieldError{Field: "role", Message: "Unknown role"})
	}
	if actor.UserID == userID {
		return nil, apperr.Unprocessable("You cannot change your own role")
	}

	user, err := service.accountRepository.UpdateRole(context, userID, role)
	if err != nil {
		return nil, fmt.Errorf("account_service_change_role_failed: %w", err)
	}

	service.logger.InfoContext(context, "role_changed",
		slog.String("actor_id", actor.UserID),
		slog.String("user_id", userID),
		slog.String("role", string(role)),
	)
	return user, nil
}
