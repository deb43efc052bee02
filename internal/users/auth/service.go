// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/pkg/uuid"
)

// # Contracts & Types

// Options tunes the auth flows.
type Options struct {
	// RevokeOnRotate makes every refresh token single-use.
	RevokeOnRotate bool

	// Now defaults to time.Now.
	Now func() time.Time
}

// Service implements the authentication use cases.
//
// # Review Process
//
// This service is security critical. Changes to hashing, token issuance or
// verification must keep the fail-closed behaviour of [Service.VerifyAccess].
type Service struct {
	userRepository  UserRepository
	revocationStore RevocationStore
	tokenService    *sec.TokenService
	options         Options
	logger          *slog.Logger
}

// NewService constructs a new [Service].
func NewService(
	userRepo UserRepository,
	revocations RevocationStore,
	tokens *sec.TokenService,
	options Options,
	logger *slog.Logger,
) *Service {
	if options.Now == nil {
		options.Now = time.Now
	}
	return &Service{
		userRepository:  userRepo,
		revocationStore: revocations,
		tokenService:    tokens,
		options:         options,
		logger:          logger,
	}
}

// # Registration Flow

// SignupInput holds the data required to create an account.
type SignupInput struct {
	Email    string
	Password string
	Username string
}

/*
Signup validates uniqueness, hashes the password, and persists a member account.

Returns:
  - *User: Created entity (never carries the hash over the wire)
  - error: Conflict if the email or username exists, or storage errors
*/
func (service *Service) Signup(context context.Context, input SignupInput) (*User, error) {
	email := strings.TrimSpace(input.Email)
	username := strings.TrimSpace(input.Username)

	if _, err := service.userRepository.FindByEmail(context, email); err == nil {
		return nil, apperr.Conflict("Email is already registered")
	} else if !apperr.HasStatus(err, http.StatusNotFound) {
		return nil, fmt.Errorf("auth_service_signup_lookup_failed: %w", err)
	}

	if _, err := service.userRepository.FindByUsername(context, username); err == nil {
		return nil, apperr.Conflict("Username is already taken")
	} else if !apperr.HasStatus(err, http.StatusNotFound) {
		return nil, fmt.Errorf("auth_service_signup_lookup_failed: %w", err)
	}

	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	user := &User{
		ID:           uuid.New(),
		Email:        email,
		Username:     username,
		PasswordHash: hashedPassword,
		DisplayName:  username,
		Role:         sec.RoleMember,
	}

	// A concurrent signup can still win the race; the unique index reports it as Conflict.
	if err := service.userRepository.Create(context, user); err != nil {
		return nil, fmt.Errorf("auth_service_signup_failed: %w", err)
	}

	service.logger.InfoContext(context, "user_signed_up", slog.String("user_id", user.ID))
	return user, nil
}

// # Authentication Flow

// LoginInput carries the credentials of a login attempt.
type LoginInput struct {
	Email    string
	Password string
}

/*
Login verifies credentials and issues a fresh token pair.

Returns:
  - sec.TokenPair: access and refresh tokens
  - error: NotFound when no account has the email, Unauthorized on a bad password
*/
func (service *Service) Login(context context.Context, input LoginInput) (sec.TokenPair, error) {
	user, err := service.userRepository.FindByEmail(context, strings.TrimSpace(input.Email))
	if err != nil {
		if apperr.HasStatus(err, http.StatusNotFound) {
			return sec.TokenPair{}, apperr.NotFound("User")
		}
		return sec.TokenPair{}, fmt.Errorf("auth_service_login_lookup_failed: %w", err)
	}

	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		service.logger.WarnContext(context, "login_rejected", slog.String("user_id", user.ID))
		return sec.TokenPair{}, apperr.Unauthorized("Invalid password")
	}

	pair, err := service.tokenService.Issue(user.ID, user.Email)
	if err != nil {
		return sec.TokenPair{}, fmt.Errorf("auth_service_issue_failed: %w", err)
	}

	service.logger.InfoContext(context, "user_logged_in", slog.String("user_id", user.ID))
	return pair, nil
}

// # Session Management

/*
Refresh rotates a refresh token into a brand-new pair.

Any verification failure (signature, algorithm, expiry, missing claims,
revoked jti, deleted account) yields Unauthorized and changes nothing.
*/
func (service *Service) Refresh(context context.Context, refreshToken string) (sec.TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return sec.TokenPair{}, apperr.BadRequest("Refresh token is required")
	}

	claims, err := service.tokenService.VerifyRefresh(refreshToken)
	if err != nil {
		service.logger.InfoContext(context, "refresh_rejected", slog.Any("reason", err))
		return sec.TokenPair{}, apperr.Unauthorized("Invalid or expired refresh token")
	}

	// With rotation on, the claim below doubles as the revocation check.
	if !service.options.RevokeOnRotate {
		if err := service.ensureNotRevoked(context, claims); err != nil {
			return sec.TokenPair{}, err
		}
	}

	if err := service.ensureAfterCutoff(context, claims, service.refreshIssuedAt(claims)); err != nil {
		return sec.TokenPair{}, err
	}

	user, err := service.userRepository.FindByID(context, claims.UserID)
	if err != nil {
		if apperr.HasStatus(err, http.StatusNotFound) {
			return sec.TokenPair{}, apperr.Unauthorized("Invalid or expired refresh token")
		}
		return sec.TokenPair{}, fmt.Errorf("auth_service_refresh_lookup_failed: %w", err)
	}

	if service.options.RevokeOnRotate {
		if err := service.claim(context, claims); err != nil {
			return sec.TokenPair{}, err
		}
	}

	pair, err := service.tokenService.Issue(user.ID, user.Email)
	if err != nil {
		return sec.TokenPair{}, fmt.Errorf("auth_service_issue_failed: %w", err)
	}

	return pair, nil
}

/*
Logout denylists the access token that authenticated the request and, when
given, the caller's refresh token. An unusable refresh token is ignored so
logout stays idempotent.
*/
func (service *Service) Logout(context context.Context, principal *sec.Principal, refreshToken string) error {
	if principal == nil {
		return apperr.Unauthorized("Authentication required")
	}

	if err := service.revokePresented(context, principal, refreshToken); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}

	service.logger.InfoContext(context, "user_logged_out", slog.String("user_id", principal.UserID))
	return nil
}

// revokePresented denylists the request's access token and, if it verifies
// and belongs to the same user, the given refresh token.
func (service *Service) revokePresented(context context.Context, principal *sec.Principal, refreshToken string) error {
	if principal.TokenID != "" {
		until := time.Unix(principal.TokenExpiresAt, 0)
		if err := service.revocationStore.Revoke(context, principal.TokenID, until); err != nil {
			return err
		}
	}

	if refreshToken != "" {
		claims, err := service.tokenService.VerifyRefresh(refreshToken)
		if err == nil && claims.UserID == principal.UserID {
			return service.revoke(context, claims)
		}
	}
	return nil
}

// # Credential Management

// ChangePasswordInput carries a password change request.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string

	// RefreshToken is the caller's own refresh token, revoked alongside the
	// access token. Optional.
	RefreshToken string
}

/*
ChangePassword replaces the caller's password and ends every session issued
before the change, on every device.

A wrong current password is Forbidden rather than Unauthorized: the bearer
token is fine, so clients must not treat it as a reason to refresh.
*/
func (service *Service) ChangePassword(context context.Context, principal *sec.Principal, input ChangePasswordInput) error {
	if principal == nil {
		return apperr.Unauthorized("Authentication required")
	}

	user, err := service.userRepository.FindByID(context, principal.UserID)
	if err != nil {
		if apperr.HasStatus(err, http.StatusNotFound) {
			return apperr.Unauthorized("Authentication required")
		}
		return fmt.Errorf("auth_service_change_password_lookup_failed: %w", err)
	}

	if !sec.CheckPasswordHash(input.CurrentPassword, user.PasswordHash) {
		service.logger.WarnContext(context, "password_change_rejected", slog.String("user_id", user.ID))
		return apperr.Forbidden("Current password is incorrect")
	}
	if input.NewPassword == input.CurrentPassword {
		return apperr.Unprocessable("New password must differ from the current one")
	}

	hashedPassword, err := sec.HashPassword(input.NewPassword)
	if err != nil {
		return fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	if err := service.userRepository.UpdatePassword(context, user.ID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_change_password_failed: %w", err)
	}

	// Tokens carry whole seconds, so the cutoff does too.
	cutoff := service.options.Now().Truncate(time.Second)
	until := cutoff.Add(service.tokenService.RefreshTTL())
	if err := service.revocationStore.RevokeBefore(context, user.ID, cutoff, until); err != nil {
		return fmt.Errorf("auth_service_change_password_revoke_failed: %w", err)
	}
	if err := service.revokePresented(context, principal, input.RefreshToken); err != nil {
		return fmt.Errorf("auth_service_change_password_revoke_failed: %w", err)
	}

	service.logger.InfoContext(context, "password_changed", slog.String("user_id", user.ID))
	return nil
}

// # Bearer Verification

/*
VerifyAccess is the bearer strategy behind the authentication middleware.

It checks the token, the denylist, and that the subject still exists. It
never returns a nil principal with a nil error.
*/
func (service *Service) VerifyAccess(context context.Context, token string) (*sec.Principal, error) {
	claims, err := service.tokenService.VerifyAccess(token)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired token").WithCause(err)
	}

	if err := service.ensureNotRevoked(context, claims); err != nil {
		return nil, err
	}

	var issuedAt time.Time
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time
	}
	if err := service.ensureAfterCutoff(context, claims, issuedAt); err != nil {
		return nil, err
	}

	user, err := service.userRepository.FindByID(context, claims.UserID)
	if err != nil {
		if apperr.HasStatus(err, http.StatusNotFound) {
			return nil, apperr.Unauthorized("Invalid or expired token")
		}
		return nil, apperr.ServiceUnavailable("Authentication is temporarily unavailable").WithCause(err)
	}

	return user.Principal(claims), nil
}

func (service *Service) ensureNotRevoked(context context.Context, claims *sec.Claims) error {
	if claims.ID == "" {
		return nil
	}

	revoked, err := service.revocationStore.IsRevoked(context, claims.ID)
	if err != nil {
		return apperr.ServiceUnavailable("Authentication is temporarily unavailable").WithCause(err)
	}
	if revoked {
		return apperr.Unauthorized("Token has been revoked")
	}
	return nil
}

// ensureAfterCutoff rejects tokens issued before the subject's last
// password change. A zero issuedAt never passes an active cutoff.
func (service *Service) ensureAfterCutoff(context context.Context, claims *sec.Claims, issuedAt time.Time) error {
	cutoff, err := service.revocationStore.RevokedBefore(context, claims.UserID)
	if err != nil {
		return apperr.ServiceUnavailable("Authentication is temporarily unavailable").WithCause(err)
	}
	if !cutoff.IsZero() && issuedAt.Before(cutoff) {
		return apperr.Unauthorized("Token has been revoked")
	}
	return nil
}

// refreshIssuedAt derives the issue time of a refresh token, which carries
// only an expiry.
func (service *Service) refreshIssuedAt(claims *sec.Claims) time.Time {
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Add(-service.tokenService.RefreshTTL())
}

func (service *Service) revoke(context context.Context, claims *sec.Claims) error {
	if claims.ID == "" || claims.ExpiresAt == nil {
		return errors.New("token has no jti or expiry")
	}
	return service.revocationStore.Revoke(context, claims.ID, claims.ExpiresAt.Time)
}

// claim consumes a single-use refresh token. Only one concurrent redemption
// of the same jti gets through.
func (service *Service) claim(context context.Context, claims *sec.Claims) error {
	if claims.ID == "" || claims.ExpiresAt == nil {
		return apperr.Unauthorized("Invalid or expired refresh token")
	}

	claimed, err := service.revocationStore.Claim(context, claims.ID, claims.ExpiresAt.Time)
	if err != nil {
		return apperr.ServiceUnavailable("Authentication is temporarily unavailable").WithCause(err)
	}
	if !claimed {
		service.logger.WarnContext(context, "refresh_token_reused", slog.String("user_id", claims.UserID))
		return apperr.Unauthorized("Token has been revoked")
	}
	return nil
}
