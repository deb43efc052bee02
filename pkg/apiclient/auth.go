// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// # Endpoints

const (
	SignupPath = "/api/auth/signup"
	LoginPath  = "/api/auth/login"
	LogoutPath = "/api/auth/logout"

	ChangePasswordPath = "/api/auth/change-password"
	MePath     = "/api/users/me"
)

// User is an account as the API returns it.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	Bio         string    `json:"bio"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SignupInput is the registration payload.
type SignupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// Signup creates an account. It does not log in.
func (client *Client) Signup(ctx context.Context, input SignupInput) (*User, error) {
	var created struct {
		User User `json:"user"`
	}

	err := client.Do(ctx, SignupPath, RequestOptions{
		Method:    http.MethodPost,
		Body:      input,
		Anonymous: true,
	}, &created)
	if err != nil {
		return nil, err
	}
	return &created.User, nil
}

// Login exchanges credentials for a token pair and stores it.
func (client *Client) Login(ctx context.Context, email, password string) error {
	var pair tokenPair

	err := client.Do(ctx, LoginPath, RequestOptions{
		Method:    http.MethodPost,
		Body:      map[string]string{"email": email, "password": password},
		Anonymous: true,
	}, &pair)
	if err != nil {
		return err
	}

	return client.store.SetPair(pair.AccessToken, pair.RefreshToken)
}

// SignupAndLogin registers the account and logs straight in.
func (client *Client) SignupAndLogin(ctx context.Context, input SignupInput) (*User, error) {
	user, err := client.Signup(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := client.Login(ctx, input.Email, input.Password); err != nil {
		return user, fmt.Errorf("apiclient: account created but login failed: %w", err)
	}
	return user, nil
}

/*
Logout asks the server to revoke both tokens, then clears the local session
and publishes [ReasonSignedOut].

The local session is cleared even when the server call fails; that failure
is still returned so callers can report it.
*/
func (client *Client) Logout(ctx context.Context) error {
	session, err := client.store.Get()
	if err != nil {
		return err
	}
	if !session.Active() {
		return nil
	}

	payload, err := json.Marshal(map[string]string{"refreshToken": session.RefreshToken})
	if err != nil {
		return err
	}

	var serverErr error
	response, err := client.send(ctx, LogoutPath, http.MethodPost, nil, nil, payload, contentTypeJSON, session.Token)
	if err != nil {
		serverErr = err
	} else {
		serverErr = decodeResponse(response, nil)
	}

	client.teardown(ReasonSignedOut, serverErr)
	return serverErr
}

/*
ChangePassword replaces the password. The server revokes every session on
success, so the local one is cleared and [ReasonPasswordChanged] published.

A wrong current password comes back as a 403 *[Error] and keeps the session.
*/
func (client *Client) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	session, err := client.store.Get()
	if err != nil {
		return err
	}
	if !session.Active() {
		return ErrNoSession
	}

	err = client.Do(ctx, ChangePasswordPath, RequestOptions{
		Method: http.MethodPost,
		Body: map[string]string{
			"currentPassword": currentPassword,
			"newPassword":     newPassword,
			"refreshToken":    session.RefreshToken,
		},
	}, nil)
	if err != nil {
		return err
	}

	client.teardown(ReasonPasswordChanged, nil)
	return nil
}

// CurrentUser loads the caller's profile.
func (client *Client) CurrentUser(ctx context.Context) (*User, error) {
	user, err := Fetch[User](ctx, client, MePath, RequestOptions{})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// # Local identity

// Identity is what the stored access token claims, read without verification.
type Identity struct {
	UserID    string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims

	UserID string `json:"id"`
	Email  string `json:"email"`
}

// DecodeToken reads the claims of an access token without checking its
// signature. Use it for display only.
func DecodeToken(token string) (*Identity, error) {
	claims := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("apiclient: decode token: %w", err)
	}
	if claims.UserID == "" || claims.Email == "" {
		return nil, fmt.Errorf("apiclient: decode token: missing id or email claim")
	}

	identity := &Identity{UserID: claims.UserID, Email: claims.Email}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}

/*
Identity decodes the stored access token.

  - No session: [ErrNoSession].
  - Undecodable or expired token: the session is cleared
    ([ReasonInvalidToken]) and [ErrNoSession] is returned.

With [WithIdentityRefresh], an expired token is refreshed instead; a refused
refresh then ends the session as any other failed refresh does.
*/
func (client *Client) Identity(ctx context.Context) (*Identity, error) {
	session, err := client.store.Get()
	if err != nil {
		return nil, err
	}
	if !session.Active() {
		return nil, ErrNoSession
	}

	identity, err := DecodeToken(session.Token)
	if err != nil {
		client.logger.Info("session_token_invalid", slog.Any("error", err))
		client.teardown(ReasonInvalidToken, err)
		return nil, fmt.Errorf("%w: %w", ErrNoSession, err)
	}

	if identity.ExpiresAt.IsZero() || identity.ExpiresAt.After(client.now()) {
		return identity, nil
	}

	if !client.identityRefresh {
		client.logger.Info("session_token_expired", slog.Time("expired_at", identity.ExpiresAt))
		client.teardown(ReasonInvalidToken, ErrTokenExpired)
		return nil, fmt.Errorf("%w: %w", ErrNoSession, ErrTokenExpired)
	}

	if err := client.renew(ctx, session.Token); err != nil {
		return nil, err
	}

	renewed, err := client.store.Get()
	if err != nil {
		return nil, err
	}
	return DecodeToken(renewed.Token)
}
