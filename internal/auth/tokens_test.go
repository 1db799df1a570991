package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qtportal/internal/errors"
	"qtportal/pkg/contracts/domain"
)

func TestIssueAndVerify(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	token, err := svc.Issue(domain.Account{ID: "acct-1", IsAdmin: false})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	session, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", session.AccountID)
	assert.False(t, session.IsAdmin)
}

func TestAdminClaimRoundTrips(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	token, err := svc.Issue(domain.Account{ID: "admin-1", IsAdmin: true})
	require.NoError(t, err)

	session, err := svc.Verify(token)
	require.NoError(t, err)
	assert.True(t, session.IsAdmin)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := NewTokenService("test-secret", time.Minute)

	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	token, err := svc.Issue(domain.Account{ID: "acct-1"})
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(2 * time.Minute) }

	_, err = svc.Verify(token)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindInvalidCredentials), "got %v", err)
}

func TestVerifyRejectsTampering(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	token, err := svc.Issue(domain.Account{ID: "acct-1"})
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenService("different-secret", time.Hour)
		_, err := other.Verify(token)
		assert.True(t, errors.IsKind(err, errors.KindInvalidCredentials), "got %v", err)
	})

	t.Run("mangled payload", func(t *testing.T) {
		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		mangled := parts[0] + ".eyJzdWIiOiJhdHRhY2tlciJ9." + parts[2]
		_, err := svc.Verify(mangled)
		assert.True(t, errors.IsKind(err, errors.KindInvalidCredentials), "got %v", err)
	})

	t.Run("unsigned token", func(t *testing.T) {
		// alg=none style tokens must never pass.
		parts := strings.Split(token, ".")
		_, err := svc.Verify(parts[0] + "." + parts[1] + ".")
		assert.True(t, errors.IsKind(err, errors.KindInvalidCredentials), "got %v", err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Verify("not-a-token")
		assert.True(t, errors.IsKind(err, errors.KindInvalidCredentials), "got %v", err)
	})
}

func TestEmptySecretGetsRandomKey(t *testing.T) {
	first := NewTokenService("", time.Hour)
	second := NewTokenService("", time.Hour)

	token, err := first.Issue(domain.Account{ID: "acct-1"})
	require.NoError(t, err)

	_, err = first.Verify(token)
	assert.NoError(t, err)

	// A second process would mint a different key.
	_, err = second.Verify(token)
	assert.Error(t, err)
}

func TestGenerateSecret(t *testing.T) {
	a := GenerateSecret()
	b := GenerateSecret()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
