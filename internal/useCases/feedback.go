package useCases

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/larriantoniy/freelance_client/internal/adapters/api"
	"github.com/larriantoniy/freelance_client/internal/domain"
	"github.com/larriantoniy/freelance_client/internal/ports"
)

type FeedbackService struct {
	api  *api.Dispatcher
	auth ports.Authorizer
	log  *slog.Logger
}

func NewFeedbackService(dispatcher *api.Dispatcher, auth ports.Authorizer, log *slog.Logger) *FeedbackService {
	return &FeedbackService{api: dispatcher, auth: auth, log: log.With("component", "feedback")}
}

func (s *FeedbackService) Leave(ctx context.Context, fb domain.NewFeedback) error {
	header, err := requireAuth(ctx, s.auth)
	if err != nil {
		return err
	}
	if _, err := api.Request[api.Empty](ctx, s.api, api.RequestSpec{
		Endpoint:   api.EndpointFeedback,
		Method:     api.MethodPost,
		Body:       fb,
		AuthHeader: header,
	}); err != nil {
		return err
	}
	s.log.Info("feedback left", "user_id", fb.UserID, "rating", fb.Rating)
	return nil
}

func (s *FeedbackService) ForUser(ctx context.Context, userID string) ([]domain.Review, error) {
	return s.reviews(ctx, api.FeedbackForUser(userID))
}

// Mine returns the reviews other users left about the current user.
func (s *FeedbackService) Mine(ctx context.Context) ([]domain.Review, error) {
	return s.reviews(ctx, api.EndpointFeedbackMine)
}

func (s *FeedbackService) reviews(ctx context.Context, endpoint string) ([]domain.Review, error) {
	header, err := requireAuth(ctx, s.auth)
	if err != nil {
		return nil, err
	}
	return api.Request[[]domain.Review](ctx, s.api, api.RequestSpec{
		Endpoint:   endpoint,
		AuthHeader: header,
	})
}

// UserInfo is the public card of another user.
func (s *FeedbackService) UserInfo(ctx context.Context, userID string) (domain.UserInfo, error) {
	header, err := requireAuth(ctx, s.auth)
	if err != nil {
		return domain.UserInfo{}, err
	}
	return api.Request[domain.UserInfo](ctx, s.api, api.RequestSpec{
		Endpoint:   api.EndpointUserInfo + "?" + url.Values{"userId": {userID}}.Encode(),
		AuthHeader: header,
	})
}
