package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/movieboxd/movieboxd/src/internal/config"
	"github.com/movieboxd/movieboxd/src/internal/domain"
	"github.com/movieboxd/movieboxd/src/internal/logging"
)

const (
	sessionCookie = "movieboxd_session"
	stateCookie   = "movieboxd_oauth_state"
	stateTTL      = 5 * time.Minute
)

var errAuthDisabled = errors.New("authentication is not configured")

// IdentityVerifier checks a raw token and returns who it belongs to.
type IdentityVerifier interface {
	VerifyIdentity(ctx context.Context, rawToken string) (domain.ExternalIdentity, error)
}

// SignInFunc resolves a verified identity to a local user, provisioning it
// on first sight.
type SignInFunc func(ctx context.Context, id domain.ExternalIdentity) (*domain.User, error)

var (
	errUntrustedAudience = errors.New("token was not issued for this application")
	errUnverifiedEmail   = errors.New("email address is not verified by the provider")
)

type idClaims struct {
	Email             string `json:"email"`
	EmailVerified     *bool  `json:"email_verified"`
	Name              string `json:"name"`
	Picture           string `json:"picture"`
	PreferredUsername string `json:"preferred_username"`
	AuthorizedParty   string `json:"azp"`
}

type oidcVerifier struct {
	verifier             *oidc.IDTokenVerifier
	audiences            []string
	trustUnverifiedEmail bool
}

// newOIDCVerifier accepts tokens whose audience or authorized party is the
// client id or one of cfg.AllowedAudiences.
func newOIDCVerifier(verifier *oidc.IDTokenVerifier, cfg config.OIDCConfig) *oidcVerifier {
	audiences := make([]string, 0, len(cfg.AllowedAudiences)+1)
	for _, a := range append([]string{cfg.ClientID}, cfg.AllowedAudiences...) {
		if a != "" {
			audiences = append(audiences, a)
		}
	}
	return &oidcVerifier{
		verifier:             verifier,
		audiences:            audiences,
		trustUnverifiedEmail: cfg.TrustUnverifiedEmail,
	}
}

func (v *oidcVerifier) VerifyIdentity(ctx context.Context, rawToken string) (domain.ExternalIdentity, error) {
	token, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return domain.ExternalIdentity{}, fmt.Errorf("verify token: %w", err)
	}
	var claims idClaims
	if err := token.Claims(&claims); err != nil {
		return domain.ExternalIdentity{}, fmt.Errorf("decode claims: %w", err)
	}
	return v.identityFromClaims(token.Audience, claims)
}

// identityFromClaims maps claims to an identity. Users are keyed by email,
// so an email the provider has not verified is never trusted.
func (v *oidcVerifier) identityFromClaims(audience []string, c idClaims) (domain.ExternalIdentity, error) {
	if !v.trustedAudience(audience, c.AuthorizedParty) {
		return domain.ExternalIdentity{}, errUntrustedAudience
	}
	if c.Email != "" && !v.trustUnverifiedEmail && (c.EmailVerified == nil || !*c.EmailVerified) {
		return domain.ExternalIdentity{}, errUnverifiedEmail
	}
	name := c.Name
	if name == "" {
		name = c.PreferredUsername
	}
	return domain.ExternalIdentity{Email: c.Email, Name: name, Avatar: c.Picture}, nil
}

func (v *oidcVerifier) trustedAudience(audience []string, azp string) bool {
	for _, a := range v.audiences {
		if a == azp || slices.Contains(audience, a) {
			return true
		}
	}
	return false
}

type Auth struct {
	verifier     IdentityVerifier
	oauth        *oauth2.Config
	signIn       SignInFunc
	postLoginURL string
	secureCookie bool
}

// NewAuth builds the auth layer from explicit parts. A nil verifier disables
// authentication; a nil oauth config disables the browser login flow.
func NewAuth(verifier IdentityVerifier, oauth *oauth2.Config, signIn SignInFunc, cfg config.OIDCConfig) *Auth {
	return &Auth{
		verifier:     verifier,
		oauth:        oauth,
		signIn:       signIn,
		postLoginURL: cfg.PostLoginURL,
		secureCookie: cfg.SecureCookie,
	}
}

// NewOIDCAuth discovers the provider and wires the verifier and code flow.
// When OIDC is not configured authentication stays disabled.
func NewOIDCAuth(ctx context.Context, cfg config.OIDCConfig, signIn SignInFunc) (*Auth, error) {
	if !cfg.Enabled() {
		logging.Warn().Msg("OIDC provider URL not set, authentication disabled")
		return NewAuth(nil, nil, signIn, cfg), nil
	}

	provider, err := oidc.NewProvider(ctx, cfg.ProviderURL)
	if err != nil {
		return nil, fmt.Errorf("failed to query OIDC provider: %w", err)
	}

	// Audience is checked by identityFromClaims so that azp and the
	// configured extra audiences are honoured too.
	verifier := provider.Verifier(&oidc.Config{
		ClientID:          cfg.ClientID,
		SkipClientIDCheck: true,
	})

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}
	return NewAuth(newOIDCVerifier(verifier, cfg), oauthCfg, signIn, cfg), nil
}

func (a *Auth) Enabled() bool {
	return a.verifier != nil
}

func (a *Auth) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if a.oauth == nil {
		http.Redirect(w, r, a.postLoginURL, http.StatusFound)
		return
	}
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   a.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, a.oauth.AuthCodeURL(state), http.StatusFound)
}

func (a *Auth) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if a.oauth == nil || a.verifier == nil {
		writeError(w, r, errAuthDisabled)
		return
	}

	state, err := r.Cookie(stateCookie)
	if err != nil || state.Value == "" || state.Value != r.URL.Query().Get("state") {
		writeError(w, r, fmt.Errorf("%w: state mismatch", errBadRequest))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/auth", MaxAge: -1, HttpOnly: true})

	token, err := a.oauth.Exchange(ctx, r.URL.Query().Get("code"))
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("OAuth code exchange failed")
		writeError(w, r, fmt.Errorf("%w: code exchange failed", errUnauthorized))
		return
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		writeError(w, r, fmt.Errorf("%w: no id_token in token response", errUnauthorized))
		return
	}

	identity, err := a.verifier.VerifyIdentity(ctx, rawIDToken)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("ID token verification failed")
		writeError(w, r, errUnauthorized)
		return
	}
	user, err := a.signIn(ctx, identity)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    rawIDToken,
		Path:     "/",
		Expires:  token.Expiry,
		HttpOnly: true,
		Secure:   a.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	logging.Ctx(ctx).Info().Str("user_id", user.ID).Msg("User signed in")
	http.Redirect(w, r, a.postLoginURL, http.StatusFound)
}

func (a *Auth) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secureCookie,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Authenticate resolves the caller from a Bearer token or the session
// cookie. Requests without a token pass through anonymously.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := tokenFromRequest(r)
		if raw == "" || a.verifier == nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		identity, err := a.verifier.VerifyIdentity(ctx, raw)
		if err != nil {
			logging.Ctx(ctx).Debug().Err(err).Msg("Token verification failed")
			writeError(w, r, errUnauthorized)
			return
		}
		user, err := a.signIn(ctx, identity)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithUser(ctx, user)))
	})
}

// RequireUser rejects requests that Authenticate did not resolve to a user.
func (a *Auth) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.verifier == nil {
			writeError(w, r, errAuthDisabled)
			return
		}
		if UserFromContext(r.Context()) == nil {
			writeError(w, r, errUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

type ctxKey int

const userKey ctxKey = iota

func contextWithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated caller, or nil.
func UserFromContext(ctx context.Context) *domain.User {
	u, _ := ctx.Value(userKey).(*domain.User)
	return u
}
