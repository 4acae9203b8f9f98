package useCases

import (
	"context"
	"log/slog"
	"sync"

	"github.com/larriantoniy/freelance_client/internal/domain"
)

// Overview is the landing screen: the user's own tasks, chats and
// contracts. A failed section keeps its error and leaves the others intact.
type Overview struct {
	Tasks     []domain.Task
	Chats     []domain.ChatSummary
	Contracts []domain.Contract

	TasksErr     error
	ChatsErr     error
	ContractsErr error
}

type OverviewLoader struct {
	tasks     *TaskService
	chats     *ChatService
	contracts *ContractService
	log       *slog.Logger
}

func NewOverviewLoader(tasks *TaskService, chats *ChatService, contracts *ContractService, log *slog.Logger) *OverviewLoader {
	return &OverviewLoader{tasks: tasks, chats: chats, contracts: contracts, log: log.With("component", "overview")}
}

// Load fetches all sections concurrently and waits for every one of them.
func (l *OverviewLoader) Load(ctx context.Context) *Overview {
	var (
		out Overview
		wg  sync.WaitGroup
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		out.Tasks, out.TasksErr = l.tasks.Mine(ctx)
	}()
	go func() {
		defer wg.Done()
		out.Chats, out.ChatsErr = l.chats.List(ctx)
	}()
	go func() {
		defer wg.Done()
		out.Contracts, out.ContractsErr = l.contracts.Mine(ctx)
	}()
	wg.Wait()

	for section, err := range map[string]error{"tasks": out.TasksErr, "chats": out.ChatsErr, "contracts": out.ContractsErr} {
		if err != nil {
			l.log.Warn("overview section failed", "section", section, "error", err)
		}
	}
	return &out
}
