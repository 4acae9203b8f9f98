package useCases

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/larriantoniy/freelance_client/internal/adapters/api"
	"github.com/larriantoniy/freelance_client/internal/domain"
	"github.com/larriantoniy/freelance_client/internal/ports"
)

type TaskService struct {
	api  *api.Dispatcher
	auth ports.Authorizer
	log  *slog.Logger
}

func NewTaskService(dispatcher *api.Dispatcher, auth ports.Authorizer, log *slog.Logger) *TaskService {
	return &TaskService{api: dispatcher, auth: auth, log: log.With("component", "tasks")}
}

// List returns the public task feed.
func (s *TaskService) List(ctx context.Context) ([]domain.Task, error) {
	return api.Request[[]domain.Task](ctx, s.api, api.RequestSpec{
		Endpoint:   api.EndpointTasks,
		AuthHeader: optionalAuth(ctx, s.auth),
	})
}

// Mine returns the tasks created by the current user.
func (s *TaskService) Mine(ctx context.Context) ([]domain.Task, error) {
	header, err := requireAuth(ctx, s.auth)
	if err != nil {
		return nil, err
	}
	return api.Request[[]domain.Task](ctx, s.api, api.RequestSpec{
		Endpoint:   api.EndpointMyTasks,
		AuthHeader: header,
	})
}

func (s *TaskService) Get(ctx context.Context, id string) (domain.Task, error) {
	return api.Request[domain.Task](ctx, s.api, api.RequestSpec{
		Endpoint:   api.TaskDetail(id),
		AuthHeader: optionalAuth(ctx, s.auth),
	})
}

// Create posts a new open task. A 422 answer is turned into one
// "<field>: <msg>" line per rejected field.
func (s *TaskService) Create(ctx context.Context, task domain.NewTask) (domain.Task, error) {
	header, err := requireAuth(ctx, s.auth)
	if err != nil {
		return domain.Task{}, err
	}
	task.Status = domain.StatusOpen
	task.HasResponses = false

	created, err := api.Request[domain.Task](ctx, s.api, api.RequestSpec{
		Endpoint:   api.EndpointTasks,
		Method:     api.MethodPost,
		Body:       task,
		AuthHeader: header,
	})
	if err != nil {
		return domain.Task{}, createTaskError(err)
	}
	s.log.Info("task created", "task_id", created.ID)
	return created, nil
}

func createTaskError(err error) error {
	var srv *api.ServerError
	if !errors.As(err, &srv) || srv.StatusCode != http.StatusUnprocessableEntity {
		return err
	}

	var verr domain.ValidationError
	if json.Unmarshal(srv.Body, &verr) == nil && len(verr.Detail) > 0 {
		return &api.CustomError{Message: verr.FieldMessage(), Err: err}
	}
	if body := strings.TrimSpace(string(srv.Body)); body != "" {
		return &api.CustomError{Message: body, Err: err}
	}
	return &api.CustomError{Message: msgValidationFailed, Err: err}
}

func (s *TaskService) Delete(ctx context.Context, id string) error {
	header, err := requireAuth(ctx, s.auth)
	if err != nil {
		return err
	}
	if _, err := api.Request[api.Empty](ctx, s.api, api.RequestSpec{
		Endpoint:   api.TaskDetail(id),
		Method:     api.MethodDelete,
		AuthHeader: header,
	}); err != nil {
		return err
	}
	s.log.Info("task deleted", "task_id", id)
	return nil
}

// Proposals lists the responses freelancers sent to the task.
func (s *TaskService) Proposals(ctx context.Context, id string) ([]domain.Proposal, error) {
	header, err := requireAuth(ctx, s.auth)
	if err != nil {
		return nil, err
	}
	return api.Request[[]domain.Proposal](ctx, s.api, api.RequestSpec{
		Endpoint:   api.TaskProposals(id),
		AuthHeader: header,
	})
}

// FilterTasks applies the local search box query.
func FilterTasks(tasks []domain.Task, query string) []domain.Task {
	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Matches(query) {
			out = append(out, t)
		}
	}
	return out
}

// IsOwnedBy matches by user id first and falls back to the username.
func IsOwnedBy(task domain.Task, st SessionState) bool {
	if task.OwnerID != "" && st.UserID != "" && task.OwnerID == st.UserID {
		return true
	}
	if task.OwnerUsername != "" && st.Username != "" {
		return task.OwnerUsername == st.Username
	}
	return false
}
