package useCases

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/larriantoniy/freelance_client/internal/adapters/api"
	"github.com/larriantoniy/freelance_client/internal/domain"
	"github.com/larriantoniy/freelance_client/internal/ports"
)

type ChatService struct {
	api  *api.Dispatcher
	auth ports.Authorizer
	log  *slog.Logger
}

func NewChatService(dispatcher *api.Dispatcher, auth ports.Authorizer, log *slog.Logger) *ChatService {
	return &ChatService{api: dispatcher, auth: auth, log: log.With("component", "chats")}
}

func (s *ChatService) List(ctx context.Context) ([]domain.ChatSummary, error) {
	header, err := requireAuth(ctx, s.auth)
	if err != nil {
		return nil, err
	}
	return api.Request[[]domain.ChatSummary](ctx, s.api, api.RequestSpec{
		Endpoint:   api.EndpointChats,
		AuthHeader: header,
	})
}

// Start opens a chat with userID by sending the first message.
func (s *ChatService) Start(ctx context.Context, userID, message string) error {
	header, err := requireAuth(ctx, s.auth)
	if err != nil {
		return err
	}
	_, err = api.Request[api.Empty](ctx, s.api, api.RequestSpec{
		Endpoint:   api.EndpointChats,
		Method:     api.MethodPost,
		Body:       map[string]string{"userId": userID, "message": message},
		AuthHeader: header,
	})
	return err
}

func (s *ChatService) Messages(ctx context.Context, chatID string) ([]domain.ChatMessage, error) {
	header, err := requireAuth(ctx, s.auth)
	if err != nil {
		return nil, err
	}
	return api.Request[[]domain.ChatMessage](ctx, s.api, api.RequestSpec{
		Endpoint:   api.ChatMessages(chatID),
		AuthHeader: header,
	})
}

func (s *ChatService) Send(ctx context.Context, chatID, text string) (domain.ChatMessage, error) {
	header, err := requireAuth(ctx, s.auth)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	return api.Request[domain.ChatMessage](ctx, s.api, api.RequestSpec{
		Endpoint:   api.SendChatMessage(chatID),
		Method:     api.MethodPost,
		Body:       map[string]string{"content": text},
		AuthHeader: header,
	})
}

// MarkViewed tells the backend the chat was opened. The answer is ignored
// and the call does not wait for it.
func (s *ChatService) MarkViewed(ctx context.Context, chatID string) {
	header, ok := s.auth.AuthorizationHeader(ctx)
	if !ok {
		return
	}
	api.Fire(ctx, s.api, markViewedSpec(chatID, header))
}

// MarkViewedWait is MarkViewed for callers that exit right after it, such
// as the CLI. Whatever the backend answers counts as success.
func (s *ChatService) MarkViewedWait(ctx context.Context, chatID string) error {
	header, err := requireAuth(ctx, s.auth)
	if err != nil {
		return err
	}
	_, err = api.Request[json.RawMessage](ctx, s.api, markViewedSpec(chatID, header))
	if err != nil && !errors.Is(err, api.ErrNoData) {
		return err
	}
	return nil
}

func markViewedSpec(chatID, header string) api.RequestSpec {
	return api.RequestSpec{
		Endpoint:   api.MarkChatViewed(chatID),
		Method:     api.MethodPost,
		AuthHeader: header,
	}
}
