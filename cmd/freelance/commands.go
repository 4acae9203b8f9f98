package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/larriantoniy/freelance_client/internal/adapters/api"
	"github.com/larriantoniy/freelance_client/internal/adapters/mainloop"
	"github.com/larriantoniy/freelance_client/internal/domain"
	"github.com/larriantoniy/freelance_client/internal/useCases"
)

const (
	usage = `usage: freelance [-config path] <command> [args]

commands:
  ping                      check that the backend is reachable
  login <user> <password>   log in and remember the session
  register <user> <password>
  logout
  whoami                    current session and profile summary
  tasks [query]             task feed, optionally filtered
  my-tasks
  task <id>
  proposals <task-id>
  delete-task <id>
  chats
  messages <chat-id>
  send <chat-id> <text>
  contracts
  accept <contract-id>
  reviews <user-id>
  user <user-id>
  search <query>            find users by name
  overview                  my tasks, chats and contracts at once`

	waitTimeout = 35 * time.Second
)

var errUsage = errors.New(usage)

type app struct {
	log        *slog.Logger
	dispatcher *api.Dispatcher
	loop       *mainloop.Loop
	sessions   *useCases.SessionManager
	tasks      *useCases.TaskService
	chats      *useCases.ChatService
	contracts  *useCases.ContractService
	feedback   *useCases.FeedbackService
	clock      clockwork.Clock
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, args := args[0], args[1:]

	need := func(n int) error {
		if len(args) < n {
			return errUsage
		}
		return nil
	}

	switch cmd {
	case "ping":
		if err := a.dispatcher.CheckReachable(ctx); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil

	case "login", "register":
		if err := need(2); err != nil {
			return err
		}
		return a.authenticate(ctx, cmd, args[0], args[1])

	case "logout":
		return a.sessions.Logout(ctx)

	case "whoami":
		return a.whoami(ctx)

	case "tasks":
		tasks, err := a.tasks.List(ctx)
		if err != nil {
			return err
		}
		return a.printTasks(useCases.FilterTasks(tasks, strings.Join(args, " ")))

	case "my-tasks":
		tasks, err := a.tasks.Mine(ctx)
		if err != nil {
			return err
		}
		return a.printTasks(tasks)

	case "task":
		if err := need(1); err != nil {
			return err
		}
		task, err := a.tasks.Get(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(task)

	case "proposals":
		if err := need(1); err != nil {
			return err
		}
		return printResult(a.tasks.Proposals(ctx, args[0]))

	case "delete-task":
		if err := need(1); err != nil {
			return err
		}
		return a.tasks.Delete(ctx, args[0])

	case "chats":
		return printResult(a.chats.List(ctx))

	case "messages":
		if err := need(1); err != nil {
			return err
		}
		msgs, err := a.chats.Messages(ctx, args[0])
		if err != nil {
			return err
		}
		// the process exits right after printing, so this one is waited for
		if err := a.chats.MarkViewedWait(ctx, args[0]); err != nil {
			a.log.Debug("mark chat viewed", "chat_id", args[0], "error", err)
		}
		for _, m := range msgs {
			fmt.Printf("[%s] %s: %s\n", domain.FormatTimestamp(m.CreatedAt), firstNonEmpty(m.SenderName, m.SenderID), m.Content)
		}
		return nil

	case "send":
		if err := need(2); err != nil {
			return err
		}
		return printResult(a.chats.Send(ctx, args[0], strings.Join(args[1:], " ")))

	case "contracts":
		return printResult(a.contracts.Mine(ctx))

	case "accept":
		if err := need(1); err != nil {
			return err
		}
		return printResult(a.contracts.Accept(ctx, args[0]))

	case "reviews":
		if err := need(1); err != nil {
			return err
		}
		reviews, err := a.feedback.ForUser(ctx, args[0])
		if err != nil {
			return err
		}
		for _, r := range reviews {
			fmt.Printf("%s %s: %s\n", strings.Repeat("★", r.DisplayRating()), r.ReviewerName, r.ReviewContent)
		}
		return nil

	case "user":
		if err := need(1); err != nil {
			return err
		}
		return printResult(a.feedback.UserInfo(ctx, args[0]))

	case "search":
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			return errUsage
		}
		return a.search(ctx, query)

	case "overview":
		loader := useCases.NewOverviewLoader(a.tasks, a.chats, a.contracts, a.log)
		return a.printOverview(loader.Load(ctx))
	}

	return errUsage
}

func (a *app) authenticate(ctx context.Context, cmd, user, password string) error {
	done := make(chan error, 1)
	report := func(err error) { done <- err }

	if cmd == "register" {
		a.sessions.Register(ctx, user, password, report)
	} else {
		a.sessions.Login(ctx, user, password, report)
	}

	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	case <-a.clock.After(waitTimeout):
		return fmt.Errorf("%s timed out", cmd)
	}

	st := a.sessions.State()
	fmt.Printf("logged in as %s (%s)\n", st.Username, st.UserID)
	return nil
}

// whoami waits briefly for the profile summary started by Restore.
func (a *app) whoami(ctx context.Context) error {
	st := a.sessions.State()
	if !st.Authenticated {
		fmt.Println("not logged in")
		return nil
	}

	changed := make(chan useCases.SessionState, 1)
	unsubscribe := a.sessions.Subscribe(func(s useCases.SessionState) {
		select {
		case changed <- s:
		default:
		}
	})
	defer unsubscribe()

	a.sessions.RefreshProfileSummary(ctx)
	select {
	case st = <-changed:
	case <-ctx.Done():
		return ctx.Err()
	case <-a.clock.After(waitTimeout):
	}
	return printJSON(st)
}

func (a *app) search(ctx context.Context, query string) error {
	type outcome struct {
		users []domain.UserSummary
		err   error
	}
	done := make(chan outcome, 1)

	search := useCases.NewUserSearch(a.dispatcher, a.sessions, a.loop,
		useCases.NewDebouncer(a.clock, useCases.SearchDebounce), a.log,
		func(users []domain.UserSummary, err error) {
			done <- outcome{users: users, err: err}
		})
	defer search.Close()

	search.SetQuery(ctx, query)
	select {
	case out := <-done:
		if out.err != nil {
			return out.err
		}
		return printJSON(out.users)
	case <-ctx.Done():
		return ctx.Err()
	case <-a.clock.After(useCases.SearchDebounce + waitTimeout):
		return errors.New("search timed out")
	}
}

func (a *app) printTasks(tasks []domain.Task) error {
	st := a.sessions.State()
	for _, t := range tasks {
		mark := " "
		if useCases.IsOwnedBy(t, st) {
			mark = "*"
		}
		fmt.Printf("%s %-12s %-40s %10s  %s\n", mark, t.ID, t.Title, t.FormattedPrice(), t.Category.DisplayName())
	}
	return nil
}

func (a *app) printOverview(ov *useCases.Overview) error {
	section := func(name string, n int, err error) {
		if err != nil {
			fmt.Printf("%-10s error: %s\n", name, api.Message(err))
			return
		}
		fmt.Printf("%-10s %d\n", name, n)
	}
	section("tasks", len(ov.Tasks), ov.TasksErr)
	section("chats", len(ov.Chats), ov.ChatsErr)
	section("contracts", len(ov.Contracts), ov.ContractsErr)
	return a.printTasks(ov.Tasks)
}

func printResult[T any](v T, err error) error {
	if err != nil {
		return err
	}
	return printJSON(v)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
