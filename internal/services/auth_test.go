package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vormiaphp/vormiaquery/internal/cache"
	"github.com/vormiaphp/vormiaquery/internal/client"
	"github.com/vormiaphp/vormiaquery/internal/common"
	"github.com/vormiaphp/vormiaquery/internal/config"
	"github.com/vormiaphp/vormiaquery/internal/cryptox"
	"github.com/vormiaphp/vormiaquery/internal/events"
	"github.com/vormiaphp/vormiaquery/internal/fielderrors"
	"github.com/vormiaphp/vormiaquery/internal/formx"
	"github.com/vormiaphp/vormiaquery/internal/models"
	"github.com/vormiaphp/vormiaquery/internal/reqerr"
	"github.com/vormiaphp/vormiaquery/internal/storage"
)

// ---- fake client ----

// fakeClient implements APIClient for unit tests of AuthService.
type fakeClient struct {
	mu    sync.Mutex
	token string

	// Respond answers every request; nil means an empty 200.
	Respond func(spec client.Spec) (*client.Envelope, error)

	Specs []client.Spec
}

func (f *fakeClient) Request(_ context.Context, spec client.Spec) (*client.Envelope, error) {
	f.mu.Lock()
	f.Specs = append(f.Specs, spec)
	respond := f.Respond
	f.mu.Unlock()
	if respond == nil {
		return &client.Envelope{Status: http.StatusOK, Success: true}, nil
	}
	return respond(spec)
}

func (f *fakeClient) AuthToken(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token, nil
}

func (f *fakeClient) SetAuthToken(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
	return nil
}

func (f *fakeClient) RemoveAuthToken(context.Context) error {
	return f.SetAuthToken(context.Background(), "")
}

func respondWith(body any) func(client.Spec) (*client.Envelope, error) {
	return func(client.Spec) (*client.Envelope, error) {
		return &client.Envelope{Data: body, Status: http.StatusOK, Success: true}, nil
	}
}

func loginBody(token string) map[string]any {
	return map[string]any{
		"data": map[string]any{
			"access_token": token,
			"user": map[string]any{
				"id":          int64(7),
				"name":        "Ada",
				"roles":       []any{map[string]any{"name": "admin"}, "editor"},
				"permissions": []any{"posts.edit"},
			},
		},
	}
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "7",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, fc *fakeClient, opts ...AuthOption) (AuthService, storage.Store) {
	t.Helper()
	store := storage.NewMemoryStore()
	opts = append([]AuthOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewAuthService(fc, store, opts...), store
}

// ---- tests ----

func TestLogin_PersistsTokenUserAndSession(t *testing.T) {
	ctx := context.Background()
	fc := &fakeClient{Respond: respondWith(loginBody("tok-1"))}
	bus := events.NewBus()
	var got []any
	bus.Subscribe(events.Authenticated, func(_ context.Context, payload any) { got = append(got, payload) })

	svc, store := newTestService(t, fc, WithEvents(bus))

	user, err := svc.Login(ctx, models.Credentials{Email: "ada@example.com", Password: "pw"}, LoginOptions{})
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, models.ID("7"), user.ID)
	assert.Equal(t, "tok-1", fc.token)

	require.Len(t, fc.Specs, 1)
	assert.Equal(t, http.MethodPost, fc.Specs[0].Method)
	assert.Equal(t, config.DefaultAuthEndpoint, fc.Specs[0].Endpoint)
	assert.Equal(t, models.Credentials{Email: "ada@example.com", Password: "pw"}, fc.Specs[0].Data)

	var stored models.User
	require.NoError(t, storage.GetJSON(ctx, store, "vormia:user", &stored))
	assert.Equal(t, models.Names{"admin", "editor"}, stored.Roles)

	var sess models.Session
	require.NoError(t, storage.GetJSON(ctx, store, "vormia:session", &sess))
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, fixedNow, sess.StartedAt)

	require.Len(t, got, 1)
	assert.Same(t, user, got[0])

	assert.True(t, svc.IsAuthenticated(ctx))
	assert.True(t, svc.HasRole(ctx, "ADMIN"))
	assert.True(t, svc.HasPermission(ctx, "posts.edit"))
	assert.False(t, svc.HasPermission(ctx, "posts.delete"))
	assert.Equal(t, []string{"admin", "editor"}, svc.Roles(ctx))
	assert.Equal(t, []string{"posts.edit"}, svc.Permissions(ctx))
}

func TestLogin_TokenLocations(t *testing.T) {
	tests := []struct {
		name string
		body any
		want string
	}{
		{"top-level token", map[string]any{"token": "a"}, "a"},
		{"top-level access_token wins", map[string]any{"token": "a", "access_token": "b"}, "b"},
		{"under response", map[string]any{"response": map[string]any{"token": "c"}}, "c"},
		{"top level before data", map[string]any{"token": "d", "data": map[string]any{"token": "e"}}, "d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeClient{Respond: respondWith(tt.body)}
			svc, _ := newTestService(t, fc)
			user, err := svc.Login(context.Background(), nil, LoginOptions{})
			require.NoError(t, err)
			assert.Nil(t, user)
			assert.Equal(t, tt.want, fc.token)
		})
	}
}

func TestLogin_NoToken(t *testing.T) {
	fc := &fakeClient{Respond: respondWith(map[string]any{"user": map[string]any{"id": "1"}})}
	svc, _ := newTestService(t, fc)

	_, err := svc.Login(context.Background(), nil, LoginOptions{})
	require.ErrorIs(t, err, common.ErrNoToken)
	assert.Empty(t, fc.token)
}

func TestLogin_InvalidToken(t *testing.T) {
	for name, token := range map[string]any{
		"number": 42,
		"blank":  "  ",
		"object": map[string]any{"value": "x"},
	} {
		t.Run(name, func(t *testing.T) {
			fc := &fakeClient{Respond: respondWith(map[string]any{"token": token})}
			svc, store := newTestService(t, fc)

			_, err := svc.Login(context.Background(), nil, LoginOptions{})
			require.ErrorIs(t, err, common.ErrInvalidToken)
			assert.Empty(t, fc.token)
			_, err = store.Get(context.Background(), storage.Key(storage.DefaultNamespace, userKey))
			assert.ErrorIs(t, err, common.ErrNotFound)
		})
	}
}

func TestLogin_ValidationErrorsReachFieldManager(t *testing.T) {
	fc := &fakeClient{Respond: func(client.Spec) (*client.Envelope, error) {
		return nil, reqerr.FromResponse(http.StatusUnprocessableEntity, "Unprocessable Entity", map[string]any{
			"message": "The given data was invalid.",
			"errors":  map[string]any{"email": []any{"The email field is required."}},
		})
	}}
	svc, _ := newTestService(t, fc)
	fields := fielderrors.New()

	_, err := svc.Login(context.Background(), map[string]any{"mail": ""}, LoginOptions{
		Endpoint:     "/auth/token",
		Transform:    formx.Spec{Rename: map[string]string{"mail": "email"}},
		FieldErrors:  fields,
		FieldMapping: map[string]string{"email": "mail"},
	})

	var re *reqerr.RequestError
	require.ErrorAs(t, err, &re)
	assert.True(t, re.IsValidationError())
	assert.Equal(t, "The email field is required.", fields.Error("mail"))
	assert.Equal(t, "/auth/token", fc.Specs[0].Endpoint)
	assert.Equal(t, map[string]any{"email": ""}, fc.Specs[0].Data)
	assert.Empty(t, fc.token)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	fc := &fakeClient{Respond: respondWith(loginBody("tok"))}
	bus := events.NewBus()
	var unauth int
	bus.Subscribe(events.Unauthenticated, func(context.Context, any) { unauth++ })
	c := cache.New()

	svc, store := newTestService(t, fc, WithEvents(bus), WithCache(c), WithEndpoints("", "/auth/logout"))
	_, err := svc.Login(ctx, nil, LoginOptions{})
	require.NoError(t, err)
	require.NoError(t, svc.SetUserPreference(ctx, "theme", "dark"))
	c.Set("users", []any{1}, cache.Options{})

	require.NoError(t, svc.Logout(ctx, LogoutOptions{}))
	assert.Len(t, fc.Specs, 1, "logout is local by default")
	assert.Empty(t, fc.token)
	assert.Equal(t, 1, unauth)
	assert.False(t, svc.IsAuthenticated(ctx))

	u, err := svc.User(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)
	_, err = store.Get(ctx, "vormia:user")
	assert.ErrorIs(t, err, common.ErrNotFound)

	var theme string
	require.NoError(t, svc.UserPreference(ctx, "theme", &theme), "preferences survive a plain logout")
	assert.Equal(t, 1, c.Stats().TotalItems)

	_, err = svc.Login(ctx, nil, LoginOptions{})
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, LogoutOptions{Remote: true, ClearCache: true, ClearStorage: true}))
	require.Len(t, fc.Specs, 3)
	assert.Equal(t, "/auth/logout", fc.Specs[2].Endpoint)
	assert.ErrorIs(t, svc.UserPreference(ctx, "theme", &theme), common.ErrNotFound)
	assert.Equal(t, 0, c.Stats().TotalItems)
}

func TestLogout_RemoteFailureStillLogsOut(t *testing.T) {
	ctx := context.Background()
	fc := &fakeClient{token: "tok", Respond: func(client.Spec) (*client.Envelope, error) {
		return nil, reqerr.Network("Network error: connection refused", nil)
	}}
	svc, _ := newTestService(t, fc)

	require.NoError(t, svc.Logout(ctx, LogoutOptions{Remote: true}))
	assert.Empty(t, fc.token)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	fc := &fakeClient{Respond: respondWith(loginBody("tok"))}
	store := storage.NewMemoryStore()

	_, err := NewAuthService(fc, store).Login(ctx, nil, LoginOptions{})
	require.NoError(t, err)

	// a fresh service over the same store and token picks the user up
	svc := NewAuthService(fc, store)
	u, err := svc.Restore(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Ada", u.Name)

	fc.token = ""
	u, err = svc.Restore(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.False(t, svc.HasRole(ctx, "admin"))
}

func TestSessionInfo(t *testing.T) {
	ctx := context.Background()

	t.Run("anonymous", func(t *testing.T) {
		svc, _ := newTestService(t, &fakeClient{})
		info, err := svc.SessionInfo(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.SessionInfo{}, info)
	})

	t.Run("jwt with expiry", func(t *testing.T) {
		exp := fixedNow.Add(time.Hour)
		fc := &fakeClient{Respond: respondWith(loginBody(signedToken(t, exp)))}
		svc, _ := newTestService(t, fc)
		_, err := svc.Login(ctx, nil, LoginOptions{})
		require.NoError(t, err)

		info, err := svc.SessionInfo(ctx)
		require.NoError(t, err)
		assert.True(t, info.Authenticated)
		assert.False(t, info.Expired)
		assert.NotEmpty(t, info.SessionID)
		require.NotNil(t, info.ExpiresAt)
		assert.True(t, exp.Equal(*info.ExpiresAt))
		require.NotNil(t, info.StartedAt)
		assert.Equal(t, fixedNow, *info.StartedAt)
		assert.Equal(t, "Ada", info.User.Name)

		b, err := json.Marshal(info)
		require.NoError(t, err)
		assert.NotContains(t, string(b), fc.token)
	})

	t.Run("expired jwt", func(t *testing.T) {
		fc := &fakeClient{token: signedToken(t, fixedNow.Add(-time.Minute))}
		svc, _ := newTestService(t, fc)

		info, err := svc.SessionInfo(ctx)
		require.NoError(t, err)
		assert.True(t, info.Expired)
		assert.False(t, info.Authenticated)
		assert.True(t, svc.IsAuthenticated(ctx), "a stored token counts until it is cleared")
	})

	t.Run("opaque token", func(t *testing.T) {
		svc, _ := newTestService(t, &fakeClient{token: "opaque"})
		info, err := svc.SessionInfo(ctx)
		require.NoError(t, err)
		assert.True(t, info.Authenticated)
		assert.Nil(t, info.ExpiresAt)
	})
}

func TestFormDrafts(t *testing.T) {
	ctx := context.Background()
	type draft struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	in := draft{Title: "Hello", Body: "secret text"}

	t.Run("plain", func(t *testing.T) {
		svc, store := newTestService(t, &fakeClient{})
		require.NoError(t, svc.SaveFormData(ctx, "post", in))

		raw, err := store.Get(ctx, "vormia:form:post")
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"encrypted":false`)

		var out draft
		require.NoError(t, svc.LoadFormData(ctx, "post", &out))
		assert.Equal(t, in, out)

		require.NoError(t, svc.ClearFormData(ctx, "post"))
		assert.ErrorIs(t, svc.LoadFormData(ctx, "post", &out), common.ErrNotFound)
	})

	t.Run("encrypted", func(t *testing.T) {
		key, err := cryptox.DeriveKey("drafts-passphrase")
		require.NoError(t, err)
		svc, store := newTestService(t, &fakeClient{}, WithEncryptionKey(key))
		require.NoError(t, svc.SaveFormData(ctx, "post", in))

		raw, err := store.Get(ctx, "vormia:form:post")
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"encrypted":true`)

		var out draft
		require.NoError(t, svc.LoadFormData(ctx, "post", &out))
		assert.Equal(t, in, out)

		// same store, no key
		plain := NewAuthService(&fakeClient{}, store)
		assert.ErrorIs(t, plain.LoadFormData(ctx, "post", &out), common.ErrNoEncryptionKey)
	})
}

func TestLogin_AgainstServer(t *testing.T) {
	ctx := context.Background()
	var gotAuth []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/login":
			_ = json.NewEncoder(w).Encode(map[string]any{"token": "srv-token", "user": map[string]any{"id": 1, "roles": []string{"user"}}})
		case "/api/logout":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.BaseURL = srv.URL
	c, err := client.New(cfg)
	require.NoError(t, err)
	defer c.Close()

	svc := NewAuthService(c, c.Store())
	u, err := svc.Login(ctx, models.Credentials{Email: "a@b.c", Password: "x"}, LoginOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.ID("1"), u.ID)

	tok, err := c.AuthToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "srv-token", tok)

	require.NoError(t, svc.Logout(ctx, LogoutOptions{Remote: true}))
	assert.Equal(t, []string{"", "Bearer srv-token"}, gotAuth)

	tok, err = c.AuthToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestUnauthorizedResponseClearsUser(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/login":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"token": "srv-token",
				"user":  map[string]any{"id": 1, "roles": []string{"admin"}},
			})
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"message": "Unauthenticated."})
		}
	}))
	defer srv.Close()

	bus := events.NewBus()
	cfg := config.Default()
	cfg.BaseURL = srv.URL
	c, err := client.New(cfg, client.WithEvents(bus))
	require.NoError(t, err)
	defer c.Close()

	svc := NewAuthService(c, c.Store(), WithEvents(bus))
	_, err = svc.Login(ctx, models.Credentials{Email: "a@b.c", Password: "x"}, LoginOptions{})
	require.NoError(t, err)
	require.True(t, svc.HasRole(ctx, "admin"))

	_, err = c.Get(ctx, "/api/me")
	re, ok := reqerr.As(err)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, re.Status)

	assert.False(t, svc.IsAuthenticated(ctx))
	u, err := svc.User(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.False(t, svc.HasRole(ctx, "admin"))
	assert.Empty(t, svc.Roles(ctx))

	_, err = c.Store().Get(ctx, storage.Key(storage.DefaultNamespace, userKey))
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = c.Store().Get(ctx, storage.Key(storage.DefaultNamespace, sessionKey))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUser_NilOnceTokenIsGone(t *testing.T) {
	ctx := context.Background()
	fc := &fakeClient{Respond: respondWith(loginBody("tok"))}
	svc, _ := newTestService(t, fc)

	_, err := svc.Login(ctx, nil, LoginOptions{})
	require.NoError(t, err)
	require.NotNil(t, mustUser(t, svc))

	require.NoError(t, fc.RemoveAuthToken(ctx))
	assert.Nil(t, mustUser(t, svc))
	assert.False(t, svc.HasPermission(ctx, "posts.edit"))
}

func mustUser(t *testing.T, svc AuthService) *models.User {
	t.Helper()
	u, err := svc.User(context.Background())
	require.NoError(t, err)
	return u
}
