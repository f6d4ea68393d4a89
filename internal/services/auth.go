// Package services contains the application services built on top of the
// request client. This file defines the authentication helpers: login and
// logout, the persisted user record, preferences, encrypted form drafts and
// session introspection.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vormiaphp/vormiaquery/internal/cache"
	"github.com/vormiaphp/vormiaquery/internal/client"
	"github.com/vormiaphp/vormiaquery/internal/common"
	"github.com/vormiaphp/vormiaquery/internal/config"
	"github.com/vormiaphp/vormiaquery/internal/events"
	"github.com/vormiaphp/vormiaquery/internal/fielderrors"
	"github.com/vormiaphp/vormiaquery/internal/formx"
	"github.com/vormiaphp/vormiaquery/internal/logging"
	"github.com/vormiaphp/vormiaquery/internal/models"
	"github.com/vormiaphp/vormiaquery/internal/reactive"
	"github.com/vormiaphp/vormiaquery/internal/storage"
)

const (
	userKey        = "user"
	sessionKey     = "session"
	preferencesKey = "preferences"
	formKey        = "form"
)

// APIClient is the part of *client.Client the auth helpers need.
type APIClient interface {
	reactive.Requester
	AuthToken(ctx context.Context) (string, error)
	SetAuthToken(ctx context.Context, token string) error
	RemoveAuthToken(ctx context.Context) error
}

// AuthService defines the authentication helpers.
//
// Contract:
//   - Login: post credentials, persist token, user and session, emit
//     events.Authenticated.
//   - Logout: drop local auth state, emit events.Unauthenticated. The server
//     is only contacted when LogoutOptions.Remote is set.
//   - Restore: reload the persisted user when a token is present.
//   - User/Roles/Permissions/HasRole/HasPermission: read the current user.
//   - Preferences and form drafts live in the same store as the user.
//   - SessionInfo: describe the current session without exposing the token.
type AuthService interface {
	Login(ctx context.Context, credentials any, opts LoginOptions) (*models.User, error)
	Logout(ctx context.Context, opts LogoutOptions) error
	Restore(ctx context.Context) (*models.User, error)
	IsAuthenticated(ctx context.Context) bool

	User(ctx context.Context) (*models.User, error)
	Roles(ctx context.Context) []string
	Permissions(ctx context.Context) []string
	HasRole(ctx context.Context, role string) bool
	HasPermission(ctx context.Context, perm string) bool

	SetUserPreference(ctx context.Context, key string, value any) error
	UserPreference(ctx context.Context, key string, v any) error

	SaveFormData(ctx context.Context, form string, data any) error
	LoadFormData(ctx context.Context, form string, v any) error
	ClearFormData(ctx context.Context, form string) error

	SessionInfo(ctx context.Context) (models.SessionInfo, error)
}

type LoginOptions struct {
	// Endpoint overrides the configured login endpoint.
	Endpoint  string
	Transform formx.Spec
	Encrypt   bool

	FieldErrors  *fielderrors.Manager
	FieldMapping map[string]string
}

type LogoutOptions struct {
	// Remote also posts to the logout endpoint. A failed remote call is
	// logged and does not stop the local logout.
	Remote       bool
	Endpoint     string
	ClearCache   bool
	ClearStorage bool
}

type authService struct {
	api    APIClient
	store  storage.Store
	cache  *cache.Cache
	bus    *events.Bus
	logger logging.Logger

	namespace      string
	loginEndpoint  string
	logoutEndpoint string
	draftKey       []byte
	now            func() time.Time

	mu     sync.RWMutex
	user   *models.User
	loaded bool
}

type AuthOption func(*authService)

func WithCache(c *cache.Cache) AuthOption {
	return func(a *authService) { a.cache = c }
}

func WithEvents(bus *events.Bus) AuthOption {
	return func(a *authService) { a.bus = bus }
}

func WithLogger(l logging.Logger) AuthOption {
	return func(a *authService) { a.logger = l }
}

// WithEncryptionKey encrypts form drafts with key, a 32-byte AES key such as
// the output of cryptox.DeriveKey.
func WithEncryptionKey(key []byte) AuthOption {
	return func(a *authService) { a.draftKey = slices.Clone(key) }
}

// WithEndpoints overrides the login and logout endpoints; empty values keep
// the defaults.
func WithEndpoints(login, logout string) AuthOption {
	return func(a *authService) {
		if login != "" {
			a.loginEndpoint = login
		}
		if logout != "" {
			a.logoutEndpoint = logout
		}
	}
}

func WithNamespace(ns string) AuthOption {
	return func(a *authService) { a.namespace = ns }
}

func WithClock(now func() time.Time) AuthOption {
	return func(a *authService) { a.now = now }
}

// NewAuthService constructs an AuthService bound to the given API client and
// store.
func NewAuthService(api APIClient, store storage.Store, opts ...AuthOption) AuthService {
	a := &authService{
		api:            api,
		store:          store,
		logger:         logging.Discard(),
		namespace:      storage.DefaultNamespace,
		loginEndpoint:  config.DefaultAuthEndpoint,
		logoutEndpoint: config.DefaultLogoutEndpoint,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.bus != nil {
		a.bus.Subscribe(events.Unauthorized, a.onUnauthorized)
	}
	return a
}

// onUnauthorized drops the user and session once the client has cleared a
// rejected token.
func (a *authService) onUnauthorized(ctx context.Context, _ any) {
	a.setUser(nil)
	err := errors.Join(
		a.saveUser(ctx, nil),
		a.store.Remove(ctx, a.key(sessionKey)),
	)
	if err != nil {
		a.logger.Warn(ctx, "clear session after 401", "error", err)
		return
	}
	a.logger.Info(ctx, "session cleared after 401")
}

func (a *authService) key(parts ...string) string {
	k := a.namespace
	for _, p := range parts {
		k = storage.Key(k, p)
	}
	return k
}

// Login posts credentials to the login endpoint through a mutation, so
// validation errors land in opts.FieldErrors. The token is read from
// access_token or token, and the user from user, at the top level of the
// response or under data or response.
func (a *authService) Login(ctx context.Context, credentials any, opts LoginOptions) (*models.User, error) {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = a.loginEndpoint
	}

	mut := reactive.NewMutation(a.api, reactive.MutationOptions{
		Spec:         client.Spec{Endpoint: endpoint, Method: http.MethodPost},
		Transform:    opts.Transform,
		Encrypt:      opts.Encrypt,
		FieldErrors:  opts.FieldErrors,
		FieldMapping: opts.FieldMapping,
	})
	env, err := mut.MutateAsync(ctx, credentials)
	if err != nil {
		return nil, err
	}

	body, _ := env.Data.(map[string]any)
	raw := lookup(body, "access_token", "token")
	if raw == nil {
		return nil, common.ErrNoToken
	}
	token, ok := raw.(string)
	if !ok || strings.TrimSpace(token) == "" {
		return nil, common.ErrInvalidToken
	}
	user, err := models.UserFromAny(lookup(body, "user"))
	if err != nil {
		return nil, fmt.Errorf("login response: %w", err)
	}

	if err := a.api.SetAuthToken(ctx, token); err != nil {
		return nil, fmt.Errorf("save token: %w", err)
	}
	if err := a.saveUser(ctx, user); err != nil {
		return nil, err
	}
	session := models.Session{ID: uuid.NewString(), StartedAt: a.now().UTC()}
	if err := storage.SetJSON(ctx, a.store, a.key(sessionKey), session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	a.setUser(user)
	a.logger.Info(ctx, "logged in", "user", user.DisplayName(), "session", session.ID)
	a.bus.Emit(ctx, events.Authenticated, user)
	return user, nil
}

func (a *authService) Logout(ctx context.Context, opts LogoutOptions) error {
	if opts.Remote {
		endpoint := opts.Endpoint
		if endpoint == "" {
			endpoint = a.logoutEndpoint
		}
		if _, err := a.api.Request(ctx, client.Spec{Endpoint: endpoint, Method: http.MethodPost}); err != nil {
			a.logger.Warn(ctx, "remote logout failed", "endpoint", endpoint, "error", err)
		}
	}

	var errs []error
	if err := a.api.RemoveAuthToken(ctx); err != nil {
		errs = append(errs, fmt.Errorf("remove token: %w", err))
	}
	for _, k := range []string{userKey, sessionKey} {
		if err := a.store.Remove(ctx, a.key(k)); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", k, err))
		}
	}
	if opts.ClearCache && a.cache != nil {
		a.cache.Clear()
	}
	if opts.ClearStorage {
		if err := a.store.Clear(ctx, a.namespace); err != nil {
			errs = append(errs, fmt.Errorf("clear storage: %w", err))
		}
	}

	a.setUser(nil)
	a.logger.Info(ctx, "logged out", "remote", opts.Remote)
	a.bus.Emit(ctx, events.Unauthenticated, nil)
	return errors.Join(errs...)
}

func (a *authService) Restore(ctx context.Context) (*models.User, error) {
	token, err := a.api.AuthToken(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		a.setUser(nil)
		return nil, nil
	}
	user, err := a.loadUser(ctx)
	if err != nil {
		return nil, err
	}
	a.setUser(user)
	return user, nil
}

// IsAuthenticated reports whether a non-empty token is stored. Expiry is
// reported by SessionInfo.
func (a *authService) IsAuthenticated(ctx context.Context) bool {
	token, err := a.api.AuthToken(ctx)
	return err == nil && token != ""
}

// User returns the current user, or nil when no token is stored.
func (a *authService) User(ctx context.Context) (*models.User, error) {
	token, err := a.api.AuthToken(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		a.setUser(nil)
		return nil, nil
	}

	a.mu.RLock()
	user, loaded := a.user, a.loaded
	a.mu.RUnlock()
	if loaded {
		return user, nil
	}
	return a.Restore(ctx)
}

func (a *authService) Roles(ctx context.Context) []string {
	u, _ := a.User(ctx)
	if u == nil {
		return nil
	}
	return slices.Clone([]string(u.Roles))
}

func (a *authService) Permissions(ctx context.Context) []string {
	u, _ := a.User(ctx)
	if u == nil {
		return nil
	}
	return slices.Clone([]string(u.Permissions))
}

func (a *authService) HasRole(ctx context.Context, role string) bool {
	u, _ := a.User(ctx)
	return u.HasRole(role)
}

func (a *authService) HasPermission(ctx context.Context, perm string) bool {
	u, _ := a.User(ctx)
	return u.HasPermission(perm)
}

func (a *authService) SetUserPreference(ctx context.Context, key string, value any) error {
	return storage.SetJSON(ctx, a.store, a.key(preferencesKey, key), value)
}

// UserPreference decodes the preference into v; a missing preference
// yields common.ErrNotFound.
func (a *authService) UserPreference(ctx context.Context, key string, v any) error {
	return storage.GetJSON(ctx, a.store, a.key(preferencesKey, key), v)
}

func (a *authService) SessionInfo(ctx context.Context) (models.SessionInfo, error) {
	var info models.SessionInfo
	token, err := a.api.AuthToken(ctx)
	if err != nil {
		return info, err
	}
	if token == "" {
		return info, nil
	}

	if info.User, err = a.User(ctx); err != nil {
		return info, err
	}

	var sess models.Session
	switch err := storage.GetJSON(ctx, a.store, a.key(sessionKey), &sess); {
	case err == nil:
		info.SessionID = sess.ID
		started := sess.StartedAt
		info.StartedAt = &started
	case !storage.IsNotFound(err):
		return info, err
	}

	if exp, ok := tokenExpiry(token); ok {
		info.ExpiresAt = &exp
		info.Expired = !a.now().Before(exp)
	}
	info.Authenticated = !info.Expired
	return info, nil
}

func (a *authService) saveUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return a.store.Remove(ctx, a.key(userKey))
	}
	if err := storage.SetJSON(ctx, a.store, a.key(userKey), user); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (a *authService) loadUser(ctx context.Context) (*models.User, error) {
	var u models.User
	err := storage.GetJSON(ctx, a.store, a.key(userKey), &u)
	if storage.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &u, nil
}

func (a *authService) setUser(u *models.User) {
	a.mu.Lock()
	a.user, a.loaded = u, true
	a.mu.Unlock()
}

// lookup returns the first of keys found at the top level of body, then
// under body["data"], then under body["response"].
func lookup(body map[string]any, keys ...string) any {
	scopes := []map[string]any{body}
	for _, wrap := range []string{"data", "response"} {
		if m, ok := body[wrap].(map[string]any); ok {
			scopes = append(scopes, m)
		}
	}
	for _, scope := range scopes {
		for _, k := range keys {
			if v, ok := scope[k]; ok && v != nil {
				return v
			}
		}
	}
	return nil
}

// tokenExpiry reads the exp claim of a JWT without verifying it. Opaque
// tokens report false.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
