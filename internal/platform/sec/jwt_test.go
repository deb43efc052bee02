// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/quill/internal/platform/sec"
)

const (
	testAccessSecret  = "access-secret-for-tests"
	testRefreshSecret = "refresh-secret-for-tests"
	testIssuer        = "quill.test"
)

// clock is a settable time source shared by issuing and verification.
type clock struct{ current time.Time }

func (c *clock) now() time.Time { return c.current }

func newService(t *testing.T, c *clock) *sec.TokenService {
	t.Helper()
	service, err := sec.NewTokenService(sec.TokenConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     7 * time.Hour,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        testIssuer,
		Now:           c.now,
	})
	require.NoError(t, err)
	return service
}

/*
TestNewTokenService_Secrets verifies that misconfigured secrets fail at construction.
*/
func TestNewTokenService_Secrets(t *testing.T) {
	tests := []struct {
		name    string
		access  string
		refresh string
		wantErr error
	}{
		{"missing_access", "", "r", sec.ErrMissingSecret},
		{"missing_refresh", "a", "", sec.ErrMissingSecret},
		{"shared_secret", "same", "same", sec.ErrSharedSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sec.NewTokenService(sec.TokenConfig{
				AccessSecret:  tt.access,
				RefreshSecret: tt.refresh,
				AccessTTL:     time.Hour,
				RefreshTTL:    time.Hour,
			})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

/*
TestTokenService_IssueAndVerify checks that a fresh access token resolves to the same subject.
*/
func TestTokenService_IssueAndVerify(t *testing.T) {
	c := &clock{current: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	service := newService(t, c)

	pair, err := service.Issue("user-1", "ana@example.com")
	require.NoError(t, err)

	claims, err := service.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, testIssuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)

	refreshClaims, err := service.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", refreshClaims.UserID)
	assert.Nil(t, refreshClaims.IssuedAt)
	assert.True(t, refreshClaims.ExpiresAt.After(claims.ExpiresAt.Time))
}

/*
TestTokenService_Expiry verifies that both kinds fail closed once their window has passed.
*/
func TestTokenService_Expiry(t *testing.T) {
	c := &clock{current: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	service := newService(t, c)

	pair, err := service.Issue("user-1", "ana@example.com")
	require.NoError(t, err)

	c.current = c.current.Add(7*time.Hour + time.Second)

	_, err = service.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, sec.ErrInvalidToken)

	// Refresh is still inside its window
	_, err = service.VerifyRefresh(pair.RefreshToken)
	assert.NoError(t, err)

	c.current = c.current.Add(7 * 24 * time.Hour)
	_, err = service.VerifyRefresh(pair.RefreshToken)
	assert.ErrorIs(t, err, sec.ErrInvalidToken)
}

/*
TestTokenService_KindsAreNotInterchangeable ensures the two signing domains stay separate.
*/
func TestTokenService_KindsAreNotInterchangeable(t *testing.T) {
	service := newService(t, &clock{current: time.Now()})

	pair, err := service.Issue("user-1", "ana@example.com")
	require.NoError(t, err)

	_, err = service.VerifyRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, sec.ErrInvalidToken)

	_, err = service.VerifyAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, sec.ErrInvalidToken)
}

/*
TestTokenService_RejectsForgedTokens covers tampering and algorithm confusion.
*/
func TestTokenService_RejectsForgedTokens(t *testing.T) {
	now := time.Now()
	service := newService(t, &clock{current: now})

	first, err := service.Issue("user-1", "ana@example.com")
	require.NoError(t, err)
	second, err := service.Issue("user-2", "bob@example.com")
	require.NoError(t, err)

	// Splice the payload of one token onto the signature of another
	a := strings.Split(first.RefreshToken, ".")
	b := strings.Split(second.RefreshToken, ".")
	spliced := strings.Join([]string{a[0], b[1], a[2]}, ".")

	claims := sec.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		UserID: "user-1",
		Email:  "ana@example.com",
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	otherAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testRefreshSecret))
	require.NoError(t, err)

	wrongSecret, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("not-the-secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"spliced_payload", spliced},
		{"alg_none", unsigned},
		{"alg_hs512", otherAlg},
		{"wrong_secret", wrongSecret},
		{"garbage", "not.a.jwt"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.VerifyRefresh(tt.token)
			assert.ErrorIs(t, err, sec.ErrInvalidToken)
		})
	}
}

/*
TestTokenService_MissingClaims rejects correctly signed tokens that lack id or email.
*/
func TestTokenService_MissingClaims(t *testing.T) {
	now := time.Now()
	service := newService(t, &clock{current: now})

	claims := sec.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		UserID: "user-1",
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testRefreshSecret))
	require.NoError(t, err)

	_, err = service.VerifyRefresh(token)
	assert.ErrorIs(t, err, sec.ErrMissingClaims)
}

/*
TestTokenService_IssueIsDistinct checks that two pairs for the same subject differ.
*/
func TestTokenService_IssueIsDistinct(t *testing.T) {
	service := newService(t, &clock{current: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)})

	first, err := service.Issue("user-1", "ana@example.com")
	require.NoError(t, err)
	second, err := service.Issue("user-1", "ana@example.com")
	require.NoError(t, err)

	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
}

/*
TestDecode_RoundTrip verifies that unverified decoding recovers exactly the issued identity.
*/
func TestDecode_RoundTrip(t *testing.T) {
	service := newService(t, &clock{current: time.Now()})

	subjects := []struct{ id, email string }{
		{"0195d7a0-0000-7000-8000-000000000001", "ana@example.com"},
		{"42", "Mixed.Case+tag@Example.org"},
	}

	for _, subject := range subjects {
		pair, err := service.Issue(subject.id, subject.email)
		require.NoError(t, err)

		for _, token := range []string{pair.AccessToken, pair.RefreshToken} {
			claims, err := sec.Decode(token)
			require.NoError(t, err)
			assert.Equal(t, subject.id, claims.UserID)
			assert.Equal(t, subject.email, claims.Email)
		}
	}

	_, err := sec.Decode("garbage")
	assert.ErrorIs(t, err, sec.ErrInvalidToken)
}
