package auth

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/reelview/internal/model"
	"github.com/user/reelview/internal/session"
)

var fixedNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return tok
}

func raw(header, payload string) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(header)) + "." + enc.EncodeToString([]byte(payload)) + ".sig"
}

func TestIsValid(t *testing.T) {
	v := NewValidator(clock)

	cases := []struct {
		name  string
		token string
		want  bool
	}{
		{"empty", "", false},
		{"garbage", "not-a-token", false},
		{"two segments", "abc.def", false},
		{"bad base64", "a!.b!.c", false},
		{"payload not json", raw(`{"alg":"HS256"}`, `not json`), false},
		{"no exp", signed(t, jwt.MapClaims{"id": "u1"}), false},
		{"exp not numeric", raw(`{"alg":"HS256"}`, `{"exp":"tomorrow"}`), false},
		{"exp numeric string", raw(`{"alg":"HS256"}`, `{"exp":"4102444800"}`), false},
		{"expired 10s ago", signed(t, jwt.MapClaims{"exp": fixedNow.Add(-10 * time.Second).Unix()}), false},
		{"exp equals now", signed(t, jwt.MapClaims{"exp": fixedNow.Unix()}), false},
		{"valid", signed(t, jwt.MapClaims{"exp": fixedNow.Add(time.Hour).Unix()}), true},
		{"unknown alg still decoded", raw(`{"alg":"XX512"}`, `{"exp": 4102444800}`), true},
		{"wrong signature ignored", signed(t, jwt.MapClaims{"exp": fixedNow.Add(time.Minute).Unix()}) + "tampered", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, v.IsValid(tc.token))
		})
	}
}

func TestExpiry(t *testing.T) {
	v := NewValidator(clock)
	exp := fixedNow.Add(2 * time.Hour)

	got, err := v.Expiry(signed(t, jwt.MapClaims{"exp": exp.Unix()}))
	require.NoError(t, err)
	assert.True(t, got.Equal(exp))

	_, err = v.Expiry(signed(t, jwt.MapClaims{}))
	assert.ErrorIs(t, err, ErrNoExpiry)
}

func TestAccessGateCheck(t *testing.T) {
	g := NewAccessGate(NewValidator(clock))
	valid := signed(t, jwt.MapClaims{"exp": fixedNow.Add(time.Hour).Unix()})
	expired := signed(t, jwt.MapClaims{"exp": fixedNow.Add(-10 * time.Second).Unix()})

	assert.Equal(t, StateUnauthorized, g.Check(session.Session{}))
	assert.Equal(t, StateUnauthorized, g.Check(session.Session{Token: expired, User: &model.User{ID: "u1"}}))
	assert.Equal(t, StateAuthorized, g.Check(session.Session{Token: valid}))
	assert.Equal(t, "checking", StateChecking.String())
}

func TestCanAccess(t *testing.T) {
	g := NewAccessGate(NewValidator(clock))
	valid := signed(t, jwt.MapClaims{"exp": fixedNow.Add(time.Hour).Unix()})
	expired := signed(t, jwt.MapClaims{"exp": fixedNow.Add(-time.Hour).Unix()})
	admin := &model.User{ID: "a", Role: model.RoleAdmin}
	user := &model.User{ID: "u", Role: model.RoleUser}

	assert.True(t, g.CanAccess(session.Session{Token: valid, User: admin}, model.RoleAdmin))
	assert.False(t, g.CanAccess(session.Session{Token: valid, User: user}, model.RoleAdmin))
	assert.False(t, g.CanAccess(session.Session{Token: valid}, model.RoleAdmin))
	assert.False(t, g.CanAccess(session.Session{Token: expired, User: admin}, model.RoleAdmin))
	assert.True(t, CanAccess(session.Session{User: user}, model.RoleUser))
}

func TestLoginURL(t *testing.T) {
	assert.Equal(t, "/login?redirect=%2Fmovie%2F42%3Ftab%3Dreviews", LoginURL("/movie/42?tab=reviews"))
	assert.Equal(t, "/login", LoginURL("/"))
	assert.Equal(t, "/login", LoginURL("https://evil.example/x"))
}

func TestSafeRedirect(t *testing.T) {
	assert.Equal(t, "/watchlist", SafeRedirect("/watchlist"))
	assert.Equal(t, "/", SafeRedirect(""))
	assert.Equal(t, "/", SafeRedirect("//evil.example"))
	assert.Equal(t, "/", SafeRedirect(`/\evil.example`))
	assert.Equal(t, "/", SafeRedirect("http://evil.example"))
	assert.Equal(t, "/", SafeRedirect("movies"))
}
