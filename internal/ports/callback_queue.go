package ports

// CallbackQueue is the single context on which request completions run.
// Callers mutate observable state from these callbacks, so posted
// functions must run one at a time in the order they were posted.
type CallbackQueue interface {
	Post(fn func())
}
