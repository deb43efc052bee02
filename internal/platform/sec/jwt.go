// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (hashing, JWT signing) from
// the domain logic. Access and refresh tokens live in two separate signing
// domains: each kind has its own HMAC secret and lifetime, so a token of one
// kind can never be accepted as the other.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrMissingSecret is returned by [NewTokenService] when a signing secret is empty.
	ErrMissingSecret = errors.New("sec: signing secret is empty")

	// ErrSharedSecret is returned when the access and refresh secrets are identical.
	ErrSharedSecret = errors.New("sec: access and refresh secrets must differ")

	// ErrInvalidToken wraps every verification failure (signature, expiry, algorithm).
	ErrInvalidToken = errors.New("sec: invalid token")

	// ErrMissingClaims is returned when a verified token lacks the id or email claim.
	ErrMissingClaims = errors.New("sec: token is missing required claims")
)

// Claims is the payload shared by access and refresh tokens.
//
// Access tokens carry iat; refresh tokens do not. Both carry a random jti so
// that two pairs issued in the same second are still distinct values, and so
// that a single token can be revoked.
type Claims struct {
	jwt.RegisteredClaims

	UserID string `json:"id"`
	Email  string `json:"email"`
}

// TokenPair is the wire shape returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenConfig configures a [TokenService].
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string

	// Now overrides the clock used for issuing and validating. Defaults to time.Now.
	Now func() time.Time
}

// TokenService signs and verifies HS256 token pairs.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// NewTokenService validates the configuration and returns a ready service.
//
// A missing secret is a startup error: the caller is expected to abort rather
// than run with an undefined security posture.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, ErrSharedSecret
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("sec: token lifetimes must be positive (access=%s, refresh=%s)", cfg.AccessTTL, cfg.RefreshTTL)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		now:           now,
	}, nil
}

// # Issuing

// Issue mints a fresh access/refresh pair for the subject. It has no side effects.
func (service *TokenService) Issue(subjectID, email string) (TokenPair, error) {
	if subjectID == "" || email == "" {
		return TokenPair{}, ErrMissingClaims
	}

	issuedAt := service.now()

	access := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subjectID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(service.accessTTL)),
		},
		UserID: subjectID,
		Email:  email,
	}

	refresh := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subjectID,
			Issuer:    service.issuer,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(service.refreshTTL)),
		},
		UserID: subjectID,
		Email:  email,
	}

	accessToken, err := sign(access, service.accessSecret)
	if err != nil {
		return TokenPair{}, err
	}

	refreshToken, err := sign(refresh, service.refreshSecret)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func sign(claims Claims, secret []byte) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}
	return signed, nil
}

// # Verification

// VerifyAccess checks an access token's signature, algorithm, issuer and expiry.
func (service *TokenService) VerifyAccess(tokenString string) (*Claims, error) {
	return service.verify(tokenString, service.accessSecret)
}

// VerifyRefresh checks a refresh token's signature, algorithm, issuer and expiry.
func (service *TokenService) VerifyRefresh(tokenString string) (*Claims, error) {
	return service.verify(tokenString, service.refreshSecret)
}

func (service *TokenService) verify(tokenString string, secret []byte) (*Claims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(service.now),
	}
	if service.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(service.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, parserOptions...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.UserID == "" || claims.Email == "" {
		return nil, ErrMissingClaims
	}

	return claims, nil
}

// AccessTTL reports the configured access-token lifetime.
func (service *TokenService) AccessTTL() time.Duration { return service.accessTTL }

// RefreshTTL reports the configured refresh-token lifetime.
func (service *TokenService) RefreshTTL() time.Duration { return service.refreshTTL }

// # Inspection

// Decode parses a token's claims WITHOUT verifying its signature or expiry.
//
// It is for display and client-side inspection only; never use the result to
// make an authorization decision.
func Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}
