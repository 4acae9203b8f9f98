package useCases

import (
	"context"
	"log/slog"

	"github.com/larriantoniy/freelance_client/internal/adapters/api"
	"github.com/larriantoniy/freelance_client/internal/domain"
	"github.com/larriantoniy/freelance_client/internal/ports"
)

type ContractService struct {
	api  *api.Dispatcher
	auth ports.Authorizer
	log  *slog.Logger
}

func NewContractService(dispatcher *api.Dispatcher, auth ports.Authorizer, log *slog.Logger) *ContractService {
	return &ContractService{api: dispatcher, auth: auth, log: log.With("component", "contracts")}
}

func (s *ContractService) Mine(ctx context.Context) ([]domain.Contract, error) {
	return s.list(ctx, api.EndpointMyContracts)
}

func (s *ContractService) List(ctx context.Context) ([]domain.Contract, error) {
	return s.list(ctx, api.EndpointContracts)
}

func (s *ContractService) list(ctx context.Context, endpoint string) ([]domain.Contract, error) {
	header, err := requireAuth(ctx, s.auth)
	if err != nil {
		return nil, err
	}
	return api.Request[[]domain.Contract](ctx, s.api, api.RequestSpec{
		Endpoint:   endpoint,
		AuthHeader: header,
	})
}

func (s *ContractService) Get(ctx context.Context, id string) (domain.Contract, error) {
	header, err := requireAuth(ctx, s.auth)
	if err != nil {
		return domain.Contract{}, err
	}
	return api.Request[domain.Contract](ctx, s.api, api.RequestSpec{
		Endpoint:   api.ContractDetail(id),
		AuthHeader: header,
	})
}

// Propose offers a contract for a task to a freelancer.
func (s *ContractService) Propose(ctx context.Context, c domain.NewContract) (domain.Contract, error) {
	header, err := requireAuth(ctx, s.auth)
	if err != nil {
		return domain.Contract{}, err
	}
	created, err := api.Request[domain.Contract](ctx, s.api, api.RequestSpec{
		Endpoint:   api.EndpointContracts,
		Method:     api.MethodPost,
		Body:       c,
		AuthHeader: header,
	})
	if err != nil {
		return domain.Contract{}, err
	}
	s.log.Info("contract proposed", "contract_id", created.ID, "task_id", c.TaskID)
	return created, nil
}

func (s *ContractService) Accept(ctx context.Context, id string) (domain.Contract, error) {
	header, err := requireAuth(ctx, s.auth)
	if err != nil {
		return domain.Contract{}, err
	}
	accepted, err := api.Request[domain.Contract](ctx, s.api, api.RequestSpec{
		Endpoint:   api.ContractAccept(id),
		Method:     api.MethodPost,
		AuthHeader: header,
	})
	if err != nil {
		return domain.Contract{}, err
	}
	s.log.Info("contract accepted", "contract_id", id)
	return accepted, nil
}
