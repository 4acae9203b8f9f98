package useCases

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larriantoniy/freelance_client/internal/adapters/api"
	"github.com/larriantoniy/freelance_client/internal/adapters/mainloop"
	"github.com/larriantoniy/freelance_client/internal/adapters/store"
	"github.com/larriantoniy/freelance_client/internal/domain"
	"github.com/larriantoniy/freelance_client/internal/ports"
)

const waitTimeout = 3 * time.Second

type harness struct {
	t        *testing.T
	srv      *httptest.Server
	store    *store.MemoryStore
	loop     *mainloop.Loop
	api      *api.Dispatcher
	sessions *SessionManager
}

func newHarness(t *testing.T, mux *http.ServeMux) *harness {
	t.Helper()

	log := discardLogger()
	srv := httptest.NewServer(mux)
	loop := mainloop.New(log)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(stopped)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
		srv.Close()
	})

	st := store.NewMemoryStore()
	d := api.NewDispatcher(srv.URL, srv.Client(), loop, log)
	return &harness{
		t:        t,
		srv:      srv,
		store:    st,
		loop:     loop,
		api:      d,
		sessions: NewSessionManager(d, st, loop, log),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// await returns a completion callback and a function blocking until it fires.
func await(t *testing.T) (func(error), func() error) {
	t.Helper()
	ch := make(chan error, 1)
	return func(err error) { ch <- err }, func() error {
		select {
		case err := <-ch:
			return err
		case <-time.After(waitTimeout):
			t.Fatal("completion did not fire")
			return nil
		}
	}
}

func (h *harness) login(identifier, secret string) error {
	done, wait := await(h.t)
	h.sessions.Login(context.Background(), identifier, secret, done)
	return wait()
}

func (h *harness) register(identifier, secret string) error {
	done, wait := await(h.t)
	h.sessions.Register(context.Background(), identifier, secret, done)
	return wait()
}

func (h *harness) stored(key string) (string, bool) {
	v, ok, err := h.store.Get(context.Background(), key)
	require.NoError(h.t, err)
	return v, ok
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func tokenHandler(t *testing.T, token string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		body, err := json.Marshal(domain.TokenResponse{AccessToken: token, TokenType: "bearer"})
		assert.NoError(t, err)
		writeJSON(w, http.StatusOK, string(body))
	}
}

func TestLoginSuccessDerivesIdentityAndPersists(t *testing.T) {
	jwtToken := makeToken(t, map[string]any{"id": "u-42", "sub": "bob"})

	var gotUser, gotPassword string
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		gotUser, gotPassword = r.PostForm.Get("username"), r.PostForm.Get("password")
		tokenHandler(t, " \"Bearer "+jwtToken+"\"\n")(w, r)
	})
	mux.HandleFunc("/users/info/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+jwtToken, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"tasksCompleted":3,"rating":4.5}`)
	})
	h := newHarness(t, mux)

	require.NoError(t, h.login("bob@example.com", "s3cret"))
	assert.Equal(t, "bob@example.com", gotUser)
	assert.Equal(t, "s3cret", gotPassword)

	st := h.sessions.State()
	assert.True(t, st.Authenticated)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Error)
	assert.Equal(t, "u-42", st.UserID)
	assert.Equal(t, "bob", st.Username)

	tok, _ := h.stored(ports.KeyAuthToken)
	assert.Equal(t, jwtToken, tok)
	id, _ := h.stored(ports.KeyCurrentUserID)
	assert.Equal(t, "u-42", id)

	header, ok := h.sessions.AuthorizationHeader(context.Background())
	require.True(t, ok)
	assert.Equal(t, "Bearer "+jwtToken, header)

	require.Eventually(t, func() bool {
		s := h.sessions.State()
		return s.TasksCompleted != nil && *s.TasksCompleted == 3 && s.Rating != nil && *s.Rating == 4.5
	}, waitTimeout, 10*time.Millisecond)
}

func TestLoginUsernameFallsBackToIdentifier(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token", tokenHandler(t, "opaque-token"))
	h := newHarness(t, mux)

	require.NoError(t, h.login("carol", "pw"))

	st := h.sessions.State()
	assert.True(t, st.Authenticated)
	assert.Equal(t, "carol", st.Username)
	assert.Empty(t, st.UserID)
	name, _ := h.stored(ports.KeyCurrentUsername)
	assert.Equal(t, "carol", name)
}

func TestLoginFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			name:    "unauthorized ignores body",
			status:  http.StatusUnauthorized,
			body:    `{"detail":"Incorrect username or password"}`,
			wantMsg: api.MsgAuthFailed,
		},
		{
			name:    "validation entries one per line",
			status:  http.StatusUnprocessableEntity,
			body:    `{"detail":[{"loc":["body","username"],"msg":"field required","type":"missing"},{"loc":["body","password",0],"msg":"too short"}]}`,
			wantMsg: "field required (at body.username)\ntoo short (at body.password.0)",
		},
		{
			name:    "undecodable validation",
			status:  http.StatusUnprocessableEntity,
			body:    `not json`,
			wantMsg: "Validation error occurred",
		},
		{
			name:    "raw body",
			status:  http.StatusBadRequest,
			body:    `user is blocked`,
			wantMsg: "user is blocked",
		},
		{
			name:    "empty body",
			status:  http.StatusInternalServerError,
			wantMsg: "Login failed: 500",
		},
		{
			name:    "bad token response",
			status:  http.StatusOK,
			body:    `{"access_token":`,
			wantMsg: "Failed to parse authentication response",
		},
		{
			name:    "blank token",
			status:  http.StatusOK,
			body:    `{"access_token":"  \"\" ","token_type":"bearer"}`,
			wantMsg: "Failed to parse authentication response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/auth/token", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			h := newHarness(t, mux)

			err := h.login("dave", "pw")
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, api.Message(err))

			st := h.sessions.State()
			assert.False(t, st.Authenticated)
			assert.False(t, st.Loading)
			assert.Equal(t, tt.wantMsg, st.Error)

			_, ok := h.sessions.AuthorizationHeader(context.Background())
			assert.False(t, ok)
		})
	}
}

func TestLoginTransportFailure(t *testing.T) {
	h := newHarness(t, http.NewServeMux())
	h.srv.Close()

	err := h.login("erin", "pw")
	require.Error(t, err)
	assert.NotEmpty(t, h.sessions.State().Error)
	assert.False(t, h.sessions.State().Authenticated)
}

func TestRegisterAutoLoginClearsPendingCredentials(t *testing.T) {
	var h *harness
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/register", func(w http.ResponseWriter, r *http.Request) {
		// credentials are saved before the request goes out
		user, ok := h.stored(ports.KeyLastUsername)
		assert.True(t, ok)
		assert.Equal(t, "frank", user)

		assert.Equal(t, "frank", r.URL.Query().Get("username"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "pw", r.PostForm.Get("password"))
		writeJSON(w, http.StatusCreated, `{"user_id":"u-7"}`)
	})
	mux.HandleFunc("/auth/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "frank", r.PostForm.Get("username"))
		assert.Equal(t, "pw", r.PostForm.Get("password"))
		writeJSON(w, http.StatusOK, `{"access_token":"abc.def","token_type":"bearer"}`)
	})
	h = newHarness(t, mux)

	require.NoError(t, h.register("frank", "pw"))

	assert.True(t, h.sessions.State().Authenticated)
	_, ok := h.stored(ports.KeyLastUsername)
	assert.False(t, ok)
	_, ok = h.stored(ports.KeyLastPassword)
	assert.False(t, ok)
}

func TestRegisterThenFailedLoginClearsPendingCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/register", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"user_id":"u-8"}`)
	})
	mux.HandleFunc("/auth/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{}`)
	})
	h := newHarness(t, mux)

	err := h.register("gina", "pw")
	assert.Equal(t, api.MsgAuthFailed, api.Message(err))
	assert.False(t, h.sessions.State().Authenticated)
	_, ok := h.stored(ports.KeyLastPassword)
	assert.False(t, ok)
}

func TestRegisterFailuresClearPendingCredentials(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"validation", http.StatusUnprocessableEntity, `{"detail":[{"loc":["query","username"],"msg":"invalid email"}]}`, "invalid email (at query.username)"},
		{"detail", http.StatusConflict, `{"detail":"User already exists"}`, "User already exists"},
		{"no detail", http.StatusInternalServerError, `oops`, "Registration failed: 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/auth/register", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			h := newHarness(t, mux)

			err := h.register("hank", "pw")
			assert.Equal(t, tt.wantMsg, api.Message(err))
			assert.Equal(t, tt.wantMsg, h.sessions.State().Error)

			_, ok := h.stored(ports.KeyLastUsername)
			assert.False(t, ok)
			_, ok = h.stored(ports.KeyLastPassword)
			assert.False(t, ok)
		})
	}
}

func TestRegisterTransportFailureClearsPendingCredentials(t *testing.T) {
	h := newHarness(t, http.NewServeMux())
	h.srv.Close()

	require.Error(t, h.register("ivan", "pw"))
	_, ok := h.stored(ports.KeyLastUsername)
	assert.False(t, ok)
}

func TestLogoutClearsEverything(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token", tokenHandler(t, makeToken(t, map[string]any{"id": "u-1", "sub": "jack"})))
	h := newHarness(t, mux)
	require.NoError(t, h.login("jack", "pw"))

	ctx := context.Background()
	require.NoError(t, h.store.Set(ctx, ports.KeyLastUsername, "jack"))
	require.NoError(t, h.sessions.Logout(ctx))

	assert.Equal(t, SessionState{}, h.sessions.State())
	for _, key := range persistedKeys {
		_, ok := h.stored(key)
		assert.False(t, ok, key)
	}
	_, ok := h.sessions.AuthorizationHeader(ctx)
	assert.False(t, ok)
}

func TestLogoutBeforeLoginCompletionWins(t *testing.T) {
	release := make(chan struct{})
	arrived := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token", func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-release
		writeJSON(w, http.StatusOK, `{"access_token":"late.token","token_type":"bearer"}`)
	})
	h := newHarness(t, mux)

	ctx := context.Background()
	done, wait := await(t)
	h.sessions.Login(ctx, "kate", "pw", done)

	select {
	case <-arrived:
	case <-time.After(waitTimeout):
		t.Fatal("login request never arrived")
	}
	require.NoError(t, h.sessions.Logout(ctx))
	close(release)

	assert.ErrorIs(t, wait(), ErrSessionSuperseded)
	assert.False(t, h.sessions.State().Authenticated)
	_, ok := h.stored(ports.KeyAuthToken)
	assert.False(t, ok)
}

// hookStore runs onSet after every successful write.
type hookStore struct {
	*store.MemoryStore
	onSet func(key, value string)
}

func (s *hookStore) Set(ctx context.Context, key, value string) error {
	if err := s.MemoryStore.Set(ctx, key, value); err != nil {
		return err
	}
	s.onSet(key, value)
	return nil
}

func TestNewerLoginDuringPersistKeepsStoreInLineWithMemory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		switch r.PostForm.Get("username") {
		case "alice":
			writeJSON(w, http.StatusOK, `{"access_token":"token-a","token_type":"bearer"}`)
		case "bob":
			writeJSON(w, http.StatusOK, `{"access_token":"token-b","token_type":"bearer"}`)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})
	h := newHarness(t, mux)
	ctx := context.Background()

	// carol starts logging in while bob's token is being written
	carolDone, carolWait := await(t)
	var once sync.Once
	st := &hookStore{MemoryStore: h.store, onSet: func(key, value string) {
		if key == ports.KeyAuthToken && value == "token-b" {
			once.Do(func() { h.sessions.Login(ctx, "carol", "pw", carolDone) })
		}
	}}
	h.sessions = NewSessionManager(h.api, st, h.loop, discardLogger())

	require.NoError(t, h.login("alice", "pw"))
	assert.ErrorIs(t, h.login("bob", "pw"), ErrSessionSuperseded)
	assert.Error(t, carolWait())

	state := h.sessions.State()
	assert.True(t, state.Authenticated)
	assert.Equal(t, "alice", state.Username)
	assert.Equal(t, api.MsgAuthFailed, state.Error)

	token, ok := h.stored(ports.KeyAuthToken)
	require.True(t, ok)
	assert.Equal(t, "token-a", token)
	username, _ := h.stored(ports.KeyCurrentUsername)
	assert.Equal(t, "alice", username)

	header, ok := h.sessions.AuthorizationHeader(ctx)
	require.True(t, ok)
	assert.Equal(t, "Bearer token-a", header)
}

func TestAuthorizationHeaderFallsBackToLegacyStoredToken(t *testing.T) {
	h := newHarness(t, http.NewServeMux())
	ctx := context.Background()

	_, ok := h.sessions.AuthorizationHeader(ctx)
	assert.False(t, ok)

	for _, legacy := range []string{`"Bearer abc.def"`, " token: abc.def\n", "abc.\ndef"} {
		require.NoError(t, h.store.Set(ctx, ports.KeyAuthToken, legacy))
		header, ok := h.sessions.AuthorizationHeader(ctx)
		require.True(t, ok, legacy)
		assert.Equal(t, "Bearer abc.def", header)
	}

	require.NoError(t, h.store.Set(ctx, ports.KeyAuthToken, ` "" `))
	_, ok = h.sessions.AuthorizationHeader(ctx)
	assert.False(t, ok)
}

func TestRestoreNormalizesAndDerivesIdentity(t *testing.T) {
	tok := makeToken(t, map[string]any{"id": "u-99", "sub": "liam"})
	mux := http.NewServeMux()
	mux.HandleFunc("/users/info/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"tasksCompleted":1}`)
	})
	h := newHarness(t, mux)

	ctx := context.Background()
	require.NoError(t, h.store.Set(ctx, ports.KeyAuthToken, "token: "+tok))
	require.NoError(t, h.store.Set(ctx, ports.KeyCurrentUsername, "old-name"))

	require.NoError(t, h.sessions.Restore(ctx))

	st := h.sessions.State()
	assert.True(t, st.Authenticated)
	assert.Equal(t, "u-99", st.UserID)
	assert.Equal(t, "liam", st.Username)
	id, _ := h.stored(ports.KeyCurrentUserID)
	assert.Equal(t, "u-99", id)

	require.Eventually(t, func() bool {
		s := h.sessions.State()
		return s.TasksCompleted != nil && *s.TasksCompleted == 1
	}, waitTimeout, 10*time.Millisecond)
}

func TestRestoreWithoutTokenStaysUnauthenticated(t *testing.T) {
	h := newHarness(t, http.NewServeMux())
	ctx := context.Background()
	require.NoError(t, h.store.Set(ctx, ports.KeyCurrentUsername, "mia"))

	require.NoError(t, h.sessions.Restore(ctx))

	st := h.sessions.State()
	assert.False(t, st.Authenticated)
	assert.Equal(t, "mia", st.Username)
}

func TestRefreshProfileSummaryFailureClearsFields(t *testing.T) {
	var mu sync.Mutex
	profileStatus := http.StatusOK
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token", tokenHandler(t, "opaque"))
	mux.HandleFunc("/users/info/me", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		status := profileStatus
		mu.Unlock()
		writeJSON(w, status, `{"tasksCompleted":5,"rating":3.0}`)
	})
	h := newHarness(t, mux)
	require.NoError(t, h.login("noah", "pw"))
	require.Eventually(t, func() bool { return h.sessions.State().TasksCompleted != nil }, waitTimeout, 10*time.Millisecond)

	mu.Lock()
	profileStatus = http.StatusInternalServerError
	mu.Unlock()
	h.sessions.RefreshProfileSummary(context.Background())

	require.Eventually(t, func() bool {
		s := h.sessions.State()
		return s.TasksCompleted == nil && s.Rating == nil
	}, waitTimeout, 10*time.Millisecond)
	assert.Empty(t, h.sessions.State().Error)
	assert.True(t, h.sessions.State().Authenticated)
}

func TestSaveProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token", tokenHandler(t, "opaque"))
	mux.HandleFunc("/users/info/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"tasksCompleted":1}`)
	})
	mux.HandleFunc("/users/info", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer opaque", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"firstName":"Olga","tasksCompleted":12}`)
	})
	h := newHarness(t, mux)
	ctx := context.Background()

	done, wait := await(t)
	h.sessions.SaveProfile(ctx, domain.ProfileInfo{FirstName: "Olga"}, done)
	assert.ErrorIs(t, wait(), api.ErrAuthRequired)

	require.NoError(t, h.login("olga", "pw"))
	require.Eventually(t, func() bool { return h.sessions.State().TasksCompleted != nil }, waitTimeout, 10*time.Millisecond)

	done, wait = await(t)
	h.sessions.SaveProfile(ctx, domain.ProfileInfo{FirstName: "Olga"}, done)
	require.NoError(t, wait())

	require.Eventually(t, func() bool {
		s := h.sessions.State()
		return s.TasksCompleted != nil && *s.TasksCompleted == 12
	}, waitTimeout, 10*time.Millisecond)
}

func TestSaveProfileAfterLogoutLeavesStateCleared(t *testing.T) {
	release := make(chan struct{})
	arrived := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token", tokenHandler(t, "opaque"))
	mux.HandleFunc("/users/info/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"tasksCompleted":1}`)
	})
	mux.HandleFunc("/users/info", func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-release
		writeJSON(w, http.StatusOK, `{"tasksCompleted":12,"rating":4.5}`)
	})
	h := newHarness(t, mux)
	ctx := context.Background()

	require.NoError(t, h.login("olga", "pw"))
	require.Eventually(t, func() bool { return h.sessions.State().TasksCompleted != nil }, waitTimeout, 10*time.Millisecond)

	done, wait := await(t)
	h.sessions.SaveProfile(ctx, domain.ProfileInfo{FirstName: "Olga"}, done)
	select {
	case <-arrived:
	case <-time.After(waitTimeout):
		t.Fatal("save request never arrived")
	}
	require.NoError(t, h.sessions.Logout(ctx))
	close(release)

	require.NoError(t, wait())
	assert.Equal(t, SessionState{}, h.sessions.State())
}

func TestSubscribeSeesLoadingTransitions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token", tokenHandler(t, "opaque"))
	h := newHarness(t, mux)

	var mu sync.Mutex
	var seen []SessionState
	unsubscribe := h.sessions.Subscribe(func(s SessionState) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	require.NoError(t, h.login("paul", "pw"))
	unsubscribe()

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(seen), 2)
	assert.True(t, seen[0].Loading)
	assert.False(t, seen[0].Authenticated)

	var authenticated bool
	for _, s := range seen {
		if s.Authenticated {
			authenticated = true
			assert.False(t, s.Loading)
		}
	}
	assert.True(t, authenticated)
}
