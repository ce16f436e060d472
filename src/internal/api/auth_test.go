package api

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movieboxd/movieboxd/src/internal/adapters/memory"
	"github.com/movieboxd/movieboxd/src/internal/config"
	"github.com/movieboxd/movieboxd/src/internal/domain"
	"github.com/movieboxd/movieboxd/src/internal/services"
)

const testIssuer = "https://issuer.example"

// unsignedToken builds an alg=none JWT; the test verifier skips signatures
// but still checks issuer and expiry.
func unsignedToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`)) + "." +
		base64.RawURLEncoding.EncodeToString(payload) + "."
}

func testClaims(overrides map[string]any) map[string]any {
	c := map[string]any{
		"iss":            testIssuer,
		"sub":            "subject-1",
		"aud":            "movieboxd",
		"exp":            time.Now().Add(time.Hour).Unix(),
		"email":          "alice@example.com",
		"email_verified": true,
		"name":           "Alice",
	}
	for k, v := range overrides {
		if v == nil {
			delete(c, k)
			continue
		}
		c[k] = v
	}
	return c
}

func newTestOIDCVerifier(cfg config.OIDCConfig) *oidcVerifier {
	v := oidc.NewVerifier(testIssuer, &oidc.StaticKeySet{}, &oidc.Config{
		ClientID:                   cfg.ClientID,
		SkipClientIDCheck:          true,
		InsecureSkipSignatureCheck: true,
	})
	return newOIDCVerifier(v, cfg)
}

func TestOIDCVerifier_VerifyIdentity(t *testing.T) {
	base := config.OIDCConfig{ClientID: "movieboxd"}

	tests := []struct {
		name    string
		cfg     config.OIDCConfig
		claims  map[string]any
		want    domain.ExternalIdentity
		wantErr error
	}{
		{
			name:   "verified email for our client",
			cfg:    base,
			claims: testClaims(nil),
			want:   domain.ExternalIdentity{Email: "alice@example.com", Name: "Alice"},
		},
		{
			name:    "token for another client",
			cfg:     base,
			claims:  testClaims(map[string]any{"aud": "other-app"}),
			wantErr: errUntrustedAudience,
		},
		{
			name:   "authorized party is our client",
			cfg:    base,
			claims: testClaims(map[string]any{"aud": "account", "azp": "movieboxd"}),
			want:   domain.ExternalIdentity{Email: "alice@example.com", Name: "Alice"},
		},
		{
			name:   "our client among several audiences",
			cfg:    base,
			claims: testClaims(map[string]any{"aud": []string{"other-app", "movieboxd"}}),
			want:   domain.ExternalIdentity{Email: "alice@example.com", Name: "Alice"},
		},
		{
			name:   "allow-listed audience",
			cfg:    config.OIDCConfig{ClientID: "movieboxd", AllowedAudiences: []string{"movieboxd-mobile"}},
			claims: testClaims(map[string]any{"aud": "movieboxd-mobile"}),
			want:   domain.ExternalIdentity{Email: "alice@example.com", Name: "Alice"},
		},
		{
			name:    "email_verified false",
			cfg:     base,
			claims:  testClaims(map[string]any{"email_verified": false}),
			wantErr: errUnverifiedEmail,
		},
		{
			name:    "email_verified missing",
			cfg:     base,
			claims:  testClaims(map[string]any{"email_verified": nil}),
			wantErr: errUnverifiedEmail,
		},
		{
			name:   "email_verified missing but provider trusted",
			cfg:    config.OIDCConfig{ClientID: "movieboxd", TrustUnverifiedEmail: true},
			claims: testClaims(map[string]any{"email_verified": nil}),
			want:   domain.ExternalIdentity{Email: "alice@example.com", Name: "Alice"},
		},
		{
			name:   "no email falls back to preferred_username",
			cfg:    base,
			claims: testClaims(map[string]any{"email": nil, "email_verified": nil, "name": nil, "preferred_username": "al"}),
			want:   domain.ExternalIdentity{Name: "al"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestOIDCVerifier(tt.cfg)
			got, err := v.VerifyIdentity(context.Background(), unsignedToken(t, tt.claims))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOIDCVerifier_RejectsExpiredAndForeignIssuer(t *testing.T) {
	v := newTestOIDCVerifier(config.OIDCConfig{ClientID: "movieboxd"})

	_, err := v.VerifyIdentity(context.Background(),
		unsignedToken(t, testClaims(map[string]any{"exp": time.Now().Add(-time.Hour).Unix()})))
	assert.Error(t, err)

	_, err = v.VerifyIdentity(context.Background(),
		unsignedToken(t, testClaims(map[string]any{"iss": "https://evil.example"})))
	assert.Error(t, err)
}

func TestAuthenticate_DoesNotSignInAsExistingUserWithUntrustedToken(t *testing.T) {
	store := memory.NewStore()
	identity := services.NewIdentityService(store.Users(), memory.NewLockManager())
	alice, err := identity.SignIn(context.Background(), domain.ExternalIdentity{Email: "alice@example.com", Name: "Alice"})
	require.NoError(t, err)

	cfg := config.OIDCConfig{ClientID: "movieboxd"}
	auth := NewAuth(newTestOIDCVerifier(cfg), nil, identity.SignIn, cfg)
	h := auth.Authenticate(auth.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(UserFromContext(r.Context()).ID))
	})))

	call := func(claims map[string]any) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+unsignedToken(t, claims))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := call(testClaims(map[string]any{"aud": "other-app"}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(testClaims(map[string]any{"email_verified": false}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(testClaims(nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, alice.ID, rec.Body.String())
}
