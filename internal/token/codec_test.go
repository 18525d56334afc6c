package token_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saasbackend/internal/token"
)

var testSecret = []byte("test-secret")

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

func newCodec(t *testing.T, clock *fakeClock) *token.Codec {
	t.Helper()
	c, err := token.NewCodec(testSecret, "HS256", 30*time.Minute)
	require.NoError(t, err)
	return c.WithClock(clock.Now)
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	codec := newCodec(t, clock)
	tenantID := uuid.New()

	cases := []token.Subject{
		{ID: uuid.NewString(), Kind: token.KindPlatformAdmin, Email: "root@example.com", Role: "super_admin"},
		{ID: tenantID.String(), Kind: token.KindTenantOwner, Email: "owner@acme.test", TenantID: &tenantID, Role: "tenant_admin"},
		{ID: uuid.NewString(), Kind: token.KindEndPrincipal, Email: "rep@acme.test", TenantID: &tenantID, Role: "employee"},
		{ID: uuid.NewString(), Kind: token.KindEndPrincipal, Email: "bare@acme.test"},
	}

	for _, s := range cases {
		t.Run(string(s.Kind)+"/"+s.Email, func(t *testing.T) {
			signed, err := codec.Issue(s)
			require.NoError(t, err)
			assert.Len(t, strings.Split(signed, "."), 3)

			clock.t = clock.t.Add(29 * time.Minute)
			defer func() { clock.t = clock.t.Add(-29 * time.Minute) }()

			claims, err := codec.Verify(signed)
			require.NoError(t, err)
			assert.Equal(t, s.ID, claims.SubjectID)
			assert.Equal(t, s.Kind, claims.Kind)
			assert.Equal(t, s.Email, claims.Email)
			assert.Equal(t, s.TenantID, claims.TenantID)
			assert.Equal(t, s.Role, claims.Role)
			assert.Equal(t, clock.t.Add(-29*time.Minute).Unix(), claims.IssuedAt.Unix())
			assert.Equal(t, clock.t.Add(time.Minute).Unix(), claims.ExpiresAt.Unix())
		})
	}
}

func TestVerifyExpired(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	codec := newCodec(t, clock)

	signed, err := codec.Issue(token.Subject{ID: "42", Kind: token.KindEndPrincipal, Email: "a@b.test"})
	require.NoError(t, err)

	clock.t = clock.t.Add(30*time.Minute + time.Second)
	_, err = codec.Verify(signed)
	require.Error(t, err)
	assert.True(t, errors.Is(err, token.ErrTokenExpired))
	assert.False(t, errors.Is(err, token.ErrTokenMalformed))

	clock.t = clock.t.Add(24 * time.Hour)
	_, err = codec.Verify(signed)
	assert.ErrorIs(t, err, token.ErrTokenExpired)
}

func TestVerifyTamperedCharacter(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	codec := newCodec(t, clock)
	tenantID := uuid.New()

	signed, err := codec.Issue(token.Subject{ID: "7", Kind: token.KindEndPrincipal, Email: "x@y.test", TenantID: &tenantID, Role: "manager"})
	require.NoError(t, err)

	for i := range signed {
		b := []byte(signed)
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		_, err := codec.Verify(string(b))
		require.Errorf(t, err, "flipping index %d should be rejected", i)
		assert.ErrorIsf(t, err, token.ErrTokenMalformed, "flipping index %d", i)
	}
}

func TestVerifyRejectsForeignSecretAndAlgorithm(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	codec := newCodec(t, clock)

	other, err := token.NewCodec([]byte("another-secret"), "HS256", time.Hour)
	require.NoError(t, err)
	signed, err := other.Issue(token.Subject{ID: "1", Kind: token.KindPlatformAdmin, Email: "a@b.test"})
	require.NoError(t, err)

	_, err = codec.Verify(signed)
	assert.ErrorIs(t, err, token.ErrTokenMalformed)

	hs512, err := token.NewCodec(testSecret, "HS512", time.Hour)
	require.NoError(t, err)
	signed, err = hs512.Issue(token.Subject{ID: "1", Kind: token.KindPlatformAdmin, Email: "a@b.test"})
	require.NoError(t, err)

	_, err = codec.Verify(signed)
	assert.ErrorIs(t, err, token.ErrTokenMalformed)
}

func TestVerifyRequiresExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	codec := newCodec(t, clock)

	unbounded := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":   "1",
		"user_type": "admin",
		"email":     "a@b.test",
	})
	signed, err := unbounded.SignedString(testSecret)
	require.NoError(t, err)

	_, err = codec.Verify(signed)
	assert.ErrorIs(t, err, token.ErrTokenMalformed)
}

func TestVerifyGarbage(t *testing.T) {
	codec := newCodec(t, &fakeClock{t: time.Now()})

	for _, raw := range []string{"", "abc", "a.b.c", "...."} {
		_, err := codec.Verify(raw)
		assert.ErrorIs(t, err, token.ErrTokenMalformed, raw)
	}
}

func TestNewCodecValidation(t *testing.T) {
	_, err := token.NewCodec(nil, "HS256", time.Minute)
	assert.Error(t, err)

	_, err = token.NewCodec(testSecret, "RS256", time.Minute)
	assert.Error(t, err)

	_, err = token.NewCodec(testSecret, "HS256", 0)
	assert.Error(t, err)
}

func TestIssueRejectsUnknownKind(t *testing.T) {
	codec := newCodec(t, &fakeClock{t: time.Now()})
	_, err := codec.Issue(token.Subject{ID: "1", Kind: "robot"})
	assert.Error(t, err)
}
