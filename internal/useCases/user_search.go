package useCases

import (
	"context"
	"log/slog"
	"net/url"
	"sync"

	"github.com/larriantoniy/freelance_client/internal/adapters/api"
	"github.com/larriantoniy/freelance_client/internal/domain"
	"github.com/larriantoniy/freelance_client/internal/ports"
)

// UserSearch backs the "find a user" box: keystrokes are debounced, a query
// equal to the previous one is dropped unless that one failed, and an empty
// query clears the results without a request.
type UserSearch struct {
	api       *api.Dispatcher
	auth      ports.Authorizer
	callbacks ports.CallbackQueue
	debounce  *Debouncer
	log       *slog.Logger
	onResults func([]domain.UserSummary, error)

	mu        sync.Mutex
	lastQuery string
	failed    bool // lastQuery ended in an error and may be retried
	results   []domain.UserSummary
}

// NewUserSearch delivers every result set (or failure) to onResults on the
// callback queue.
func NewUserSearch(
	dispatcher *api.Dispatcher,
	auth ports.Authorizer,
	callbacks ports.CallbackQueue,
	debounce *Debouncer,
	log *slog.Logger,
	onResults func([]domain.UserSummary, error),
) *UserSearch {
	return &UserSearch{
		api:       dispatcher,
		auth:      auth,
		callbacks: callbacks,
		debounce:  debounce,
		log:       log.With("component", "user_search"),
		onResults: onResults,
	}
}

// SetQuery records the current text of the search box.
func (s *UserSearch) SetQuery(ctx context.Context, query string) {
	s.debounce.Trigger(func() { s.search(ctx, query) })
}

// Results returns the last successful result set.
func (s *UserSearch) Results() []domain.UserSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.UserSummary(nil), s.results...)
}

// Close drops a pending query.
func (s *UserSearch) Close() {
	s.debounce.Stop()
}

func (s *UserSearch) search(ctx context.Context, query string) {
	s.mu.Lock()
	if query == s.lastQuery && !s.failed {
		s.mu.Unlock()
		return
	}
	s.lastQuery = query
	s.failed = false
	if query == "" {
		s.results = nil
		s.mu.Unlock()
		s.callbacks.Post(func() { s.deliver(nil, nil) })
		return
	}
	s.mu.Unlock()

	s.log.Debug("searching users", "query", query)
	api.RequestAsync(ctx, s.api, api.RequestSpec{
		Endpoint:   api.EndpointUserSearch + "?" + url.Values{"q": {query}}.Encode(),
		AuthHeader: optionalAuth(ctx, s.auth),
	}, func(users []domain.UserSummary, err error) {
		s.mu.Lock()
		if query != s.lastQuery {
			// overtaken by a newer query
			s.mu.Unlock()
			return
		}
		if err != nil {
			s.failed = true
		} else {
			s.results = users
		}
		s.mu.Unlock()
		s.deliver(users, err)
	})
}

func (s *UserSearch) deliver(users []domain.UserSummary, err error) {
	if s.onResults != nil {
		s.onResults(users, err)
	}
}
