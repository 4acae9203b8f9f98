package useCases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/larriantoniy/freelance_client/internal/adapters/api"
	"github.com/larriantoniy/freelance_client/internal/domain"
	"github.com/larriantoniy/freelance_client/internal/ports"
)

// ErrSessionSuperseded is passed to completions whose attempt was overtaken
// by a Logout or a newer Login before the response arrived.
var ErrSessionSuperseded = errors.New("session attempt superseded")

const (
	msgValidationFailed  = "Validation error occurred"
	msgBadAuthResponse   = "Failed to parse authentication response"
	msgAutoLoginFailed   = "Failed to auto-login after registration"
	grantTypePassword    = "password"
	bearerPrefix         = "Bearer "
	registrationIDField  = "user_id"
	loginFailedFormat    = "Login failed: %d"
	registerFailedFormat = "Registration failed: %d"
)

var persistedKeys = []string{
	ports.KeyAuthToken,
	ports.KeyCurrentUsername,
	ports.KeyCurrentUserID,
	ports.KeyLastUsername,
	ports.KeyLastPassword,
}

// SessionManager owns the token lifecycle: login, registration with
// auto-login, logout, persistence and the Authorization header.
//
// Network completions are applied on the callback queue. Every Login,
// Register and Logout advances a generation counter; a completion that
// belongs to an older generation is dropped instead of overwriting state.
type SessionManager struct {
	api       *api.Dispatcher
	store     ports.SessionStore
	callbacks ports.CallbackQueue
	log       *slog.Logger

	mu           sync.Mutex
	session      domain.Session
	state        SessionState
	generation   uint64
	pendingOwner uint64 // generation of the Register that saved the pending credentials
	listeners    map[int]func(SessionState)
	nextListener int
}

func NewSessionManager(
	dispatcher *api.Dispatcher,
	store ports.SessionStore,
	callbacks ports.CallbackQueue,
	log *slog.Logger,
) *SessionManager {
	return &SessionManager{
		api:       dispatcher,
		store:     store,
		callbacks: callbacks,
		log:       log.With("component", "session"),
		listeners: map[int]func(SessionState){},
	}
}

// Restore loads a previously persisted session. Tokens written before
// normalization existed are normalized here.
func (m *SessionManager) Restore(ctx context.Context) error {
	username, _, err := m.store.Get(ctx, ports.KeyCurrentUsername)
	if err != nil {
		return fmt.Errorf("restore username: %w", err)
	}
	userID, _, err := m.store.Get(ctx, ports.KeyCurrentUserID)
	if err != nil {
		return fmt.Errorf("restore user id: %w", err)
	}
	saved, _, err := m.store.Get(ctx, ports.KeyAuthToken)
	if err != nil {
		return fmt.Errorf("restore token: %w", err)
	}

	token := NormalizeToken(saved)
	sess := domain.Session{AccessToken: token, Username: username, UserID: userID}
	if token != "" && userID == "" && applyPayload(&sess) {
		m.persist(ctx, ports.KeyCurrentUserID, sess.UserID)
		m.persist(ctx, ports.KeyCurrentUsername, sess.Username)
	}

	m.update(func(s *SessionState) {
		m.session = sess
		s.Authenticated = token != ""
		s.Username = sess.Username
		s.UserID = sess.UserID
	})

	if token != "" {
		m.log.Info("session restored", "username", sess.Username)
		m.RefreshProfileSummary(ctx)
	}
	return nil
}

// Login exchanges credentials for a token. It returns immediately; the
// outcome is published to subscribers and passed to done (which may be nil)
// on the callback queue.
func (m *SessionManager) Login(ctx context.Context, identifier, secret string, done func(error)) {
	gen := m.beginAttempt()
	m.login(ctx, identifier, secret, gen, done)
}

func (m *SessionManager) login(ctx context.Context, identifier, secret string, gen uint64, done func(error)) {
	values := credentialsForm(identifier, secret)

	go func() {
		resp, err := m.api.PostForm(ctx, api.EndpointLogin, values, false)
		m.callbacks.Post(func() {
			notify(done, m.finishLogin(ctx, identifier, gen, resp, err))
		})
	}()
}

func (m *SessionManager) finishLogin(ctx context.Context, identifier string, gen uint64, resp *api.FormResponse, err error) error {
	if m.stale(gen) {
		m.log.Info("dropping stale login completion")
		return ErrSessionSuperseded
	}
	if err != nil {
		return m.fail(gen, api.Message(err))
	}

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		var verr domain.ValidationError
		if err := json.Unmarshal(resp.Body, &verr); err != nil {
			return m.fail(gen, msgValidationFailed)
		}
		return m.fail(gen, verr.Message())

	case resp.OK():
		var tr domain.TokenResponse
		if err := json.Unmarshal(resp.Body, &tr); err != nil {
			m.log.Warn("token response decode failed", "error", err)
			return m.fail(gen, msgBadAuthResponse)
		}
		token := NormalizeToken(tr.AccessToken)
		if token == "" {
			return m.fail(gen, msgBadAuthResponse)
		}
		return m.establish(ctx, gen, domain.Session{
			AccessToken: token,
			TokenType:   tr.TokenType,
			Username:    identifier,
		})

	case resp.StatusCode == http.StatusUnauthorized:
		return m.fail(gen, api.MsgAuthFailed)

	default:
		if body := strings.TrimSpace(string(resp.Body)); body != "" {
			return m.fail(gen, body)
		}
		return m.fail(gen, fmt.Sprintf(loginFailedFormat, resp.StatusCode))
	}
}

// establish persists sess and makes it the current session.
func (m *SessionManager) establish(ctx context.Context, gen uint64, sess domain.Session) error {
	applyPayload(&sess)
	m.persistSession(ctx, sess)

	applied := m.updateIf(gen, func(s *SessionState) {
		m.session = sess
		*s = SessionState{
			Authenticated: true,
			Username:      sess.Username,
			UserID:        sess.UserID,
		}
	})
	if !applied {
		// A Logout or a newer attempt started while the fields above were
		// written. Put back whatever session memory still holds: nothing
		// after a logout, the previous session while a newer login runs.
		m.mu.Lock()
		current := m.session
		m.mu.Unlock()
		m.persistSession(ctx, current)
		return ErrSessionSuperseded
	}

	m.log.Info("logged in", "username", sess.Username, "user_id", sess.UserID, "token_type", sess.TokenType)
	m.RefreshProfileSummary(ctx)
	return nil
}

// Register creates an account and, on success, logs in with the same
// credentials. The credentials are saved before the attempt so the login
// needs no second input, and are removed on every outcome.
func (m *SessionManager) Register(ctx context.Context, identifier, secret string, done func(error)) {
	gen := m.beginAttempt()
	m.mu.Lock()
	m.pendingOwner = gen
	m.mu.Unlock()
	m.savePendingCredentials(ctx, identifier, secret)

	values := credentialsForm(identifier, secret)
	go func() {
		resp, err := m.api.PostForm(ctx, api.EndpointRegister, values, true)
		m.callbacks.Post(func() {
			m.finishRegister(ctx, gen, resp, err, done)
		})
	}()
}

func (m *SessionManager) finishRegister(ctx context.Context, gen uint64, resp *api.FormResponse, err error, done func(error)) {
	if m.stale(gen) {
		// a newer Register may own the pending credentials by now
		if m.ownsPending(gen) {
			m.clearPendingCredentials(ctx)
		}
		notify(done, ErrSessionSuperseded)
		return
	}

	failWith := func(msg string) {
		m.clearPendingCredentials(ctx)
		notify(done, m.fail(gen, msg))
	}

	if err != nil {
		failWith(api.Message(err))
		return
	}

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		var verr domain.ValidationError
		if err := json.Unmarshal(resp.Body, &verr); err != nil {
			failWith("Failed to decode response: " + err.Error())
			return
		}
		failWith(verr.Message())

	case resp.OK():
		var reg map[string]any
		if err := json.Unmarshal(resp.Body, &reg); err != nil {
			failWith("Failed to decode response: " + err.Error())
			return
		}
		m.log.Info("registered", "user_id", reg[registrationIDField])

		username, secret, ok := m.pendingCredentials(ctx)
		if !ok {
			failWith(msgAutoLoginFailed)
			return
		}
		// loading stays on while the login runs
		loginGen := m.advance()
		m.login(ctx, username, secret, loginGen, func(err error) {
			if m.ownsPending(gen) {
				m.clearPendingCredentials(ctx)
			}
			notify(done, err)
		})

	default:
		var payload struct {
			Detail *string `json:"detail"`
		}
		if err := json.Unmarshal(resp.Body, &payload); err == nil && payload.Detail != nil {
			failWith(*payload.Detail)
			return
		}
		failWith(fmt.Sprintf(registerFailedFormat, resp.StatusCode))
	}
}

// Logout drops the session in memory and in the store, including any
// pending registration credentials.
func (m *SessionManager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.generation++
	m.mu.Unlock()

	m.update(func(s *SessionState) {
		m.session = domain.Session{}
		*s = SessionState{}
	})

	if err := m.store.Delete(ctx, persistedKeys...); err != nil {
		return fmt.Errorf("clear persisted session: %w", err)
	}
	m.log.Info("logged out")
	return nil
}

// AuthorizationHeader returns "Bearer <token>", preferring the in-memory
// token and falling back to the persisted one.
func (m *SessionManager) AuthorizationHeader(ctx context.Context) (string, bool) {
	m.mu.Lock()
	token := m.session.AccessToken
	m.mu.Unlock()

	if token == "" {
		saved, ok, err := m.store.Get(ctx, ports.KeyAuthToken)
		if err != nil {
			m.log.Warn("read persisted token", "error", err)
			return "", false
		}
		if ok {
			token = saved
		}
	}

	token = NormalizeToken(token)
	if token == "" {
		return "", false
	}
	return bearerPrefix + token, true
}

// RefreshProfileSummary reloads tasksCompleted and rating in the
// background. Failures clear both fields and are never reported.
func (m *SessionManager) RefreshProfileSummary(ctx context.Context) {
	header, ok := m.AuthorizationHeader(ctx)
	if !ok {
		return
	}
	gen := m.currentGeneration()

	api.RequestAsync(ctx, m.api, api.RequestSpec{
		Endpoint:   api.EndpointMyUserInfo,
		AuthHeader: header,
	}, func(info domain.ProfileInfo, err error) {
		m.updateIf(gen, func(s *SessionState) {
			if err != nil {
				s.TasksCompleted = nil
				s.Rating = nil
				return
			}
			s.TasksCompleted = info.TasksCompleted
			s.Rating = info.Rating
		})
		if err != nil {
			m.log.Debug("profile summary refresh failed", "error", err)
		}
	})
}

// SaveProfile posts the editable profile fields. done runs on the
// callback queue, or immediately when there is no token.
func (m *SessionManager) SaveProfile(ctx context.Context, info domain.ProfileInfo, done func(error)) {
	header, ok := m.AuthorizationHeader(ctx)
	if !ok {
		notify(done, api.ErrAuthRequired)
		return
	}
	gen := m.currentGeneration()

	api.RequestAsync(ctx, m.api, api.RequestSpec{
		Endpoint:   api.EndpointUserInfo,
		Method:     api.MethodPost,
		Body:       info.Fields(),
		AuthHeader: header,
	}, func(saved domain.ProfileInfo, err error) {
		if err != nil {
			notify(done, err)
			return
		}
		// the save itself went through even if the session has moved on
		m.updateIf(gen, func(s *SessionState) {
			if saved.TasksCompleted != nil {
				s.TasksCompleted = saved.TasksCompleted
			}
			if saved.Rating != nil {
				s.Rating = saved.Rating
			}
		})
		notify(done, nil)
	})
}

// applyPayload overrides identity with the token's "id" and "sub" claims
// and reports whether anything changed.
func applyPayload(sess *domain.Session) bool {
	payload := DecodeTokenPayload(sess.AccessToken)
	if payload == nil {
		return false
	}
	userID, username := payloadIdentity(payload)
	if userID != "" {
		sess.UserID = userID
	}
	if username != "" {
		sess.Username = username
	}
	return userID != "" || username != ""
}

func (m *SessionManager) beginAttempt() uint64 {
	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	m.update(func(s *SessionState) {
		s.Loading = true
		s.Error = ""
	})
	return gen
}

// advance starts a new generation without touching the state.
func (m *SessionManager) advance() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
	return m.generation
}

func (m *SessionManager) currentGeneration() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

func (m *SessionManager) ownsPending(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pendingOwner == gen
}

func (m *SessionManager) stale(gen uint64) bool {
	return m.currentGeneration() != gen
}

// updateIf is update guarded by the generation; it reports whether fn ran.
func (m *SessionManager) updateIf(gen uint64, fn func(s *SessionState)) bool {
	applied := false
	m.update(func(s *SessionState) {
		if m.generation != gen {
			return
		}
		fn(s)
		applied = true
	})
	return applied
}

// fail records msg as the visible error and returns it as an error.
func (m *SessionManager) fail(gen uint64, msg string) error {
	m.updateIf(gen, func(s *SessionState) {
		s.Loading = false
		s.Error = msg
	})
	m.log.Warn("auth attempt failed", "error", msg)
	return &api.CustomError{Message: msg}
}

func (m *SessionManager) persist(ctx context.Context, key, value string) {
	if err := m.store.Set(ctx, key, value); err != nil {
		m.log.Error("persist session field", "key", key, "error", err)
	}
}

// persistSession writes the identity of sess, or removes it when sess has
// no token.
func (m *SessionManager) persistSession(ctx context.Context, sess domain.Session) {
	if sess.AccessToken == "" {
		if err := m.store.Delete(ctx, ports.KeyAuthToken, ports.KeyCurrentUsername, ports.KeyCurrentUserID); err != nil {
			m.log.Warn("clear persisted session", "error", err)
		}
		return
	}

	m.persist(ctx, ports.KeyAuthToken, sess.AccessToken)
	m.persist(ctx, ports.KeyCurrentUsername, sess.Username)
	if sess.UserID != "" {
		m.persist(ctx, ports.KeyCurrentUserID, sess.UserID)
	} else if err := m.store.Delete(ctx, ports.KeyCurrentUserID); err != nil {
		m.log.Warn("clear stale user id", "error", err)
	}
}

func (m *SessionManager) savePendingCredentials(ctx context.Context, username, secret string) {
	m.persist(ctx, ports.KeyLastUsername, username)
	m.persist(ctx, ports.KeyLastPassword, secret)
}

func (m *SessionManager) pendingCredentials(ctx context.Context) (string, string, bool) {
	username, okUser, err := m.store.Get(ctx, ports.KeyLastUsername)
	if err != nil {
		m.log.Warn("read pending username", "error", err)
		return "", "", false
	}
	secret, okSecret, err := m.store.Get(ctx, ports.KeyLastPassword)
	if err != nil {
		m.log.Warn("read pending secret", "error", err)
		return "", "", false
	}
	return username, secret, okUser && okSecret
}

func (m *SessionManager) clearPendingCredentials(ctx context.Context) {
	if err := m.store.Delete(ctx, ports.KeyLastUsername, ports.KeyLastPassword); err != nil {
		m.log.Warn("clear pending credentials", "error", err)
	}
}

func credentialsForm(identifier, secret string) url.Values {
	return url.Values{
		"grant_type": {grantTypePassword},
		"username":   {identifier},
		"password":   {secret},
	}
}

func notify(done func(error), err error) {
	if done != nil {
		done(err)
	}
}
