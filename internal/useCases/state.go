package useCases

// SessionState is what the UI layer observes about the session.
type SessionState struct {
	Authenticated bool
	Loading       bool
	Error         string

	Username string
	UserID   string

	TasksCompleted *int
	Rating         *float64
}

// Subscribe registers fn to receive a copy of the state after every change
// and returns a function that removes it.
func (m *SessionManager) Subscribe(fn func(SessionState)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// State returns a copy of the current state.
func (m *SessionManager) State() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// update applies fn under the lock and then notifies listeners outside it.
func (m *SessionManager) update(fn func(s *SessionState)) {
	m.mu.Lock()
	fn(&m.state)
	snapshot := m.state
	listeners := make([]func(SessionState), 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}
