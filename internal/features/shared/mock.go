package shared

import "sync"

// MockResponder records what a handler sent. Err is returned from every call.
type MockResponder struct {
	mu       sync.Mutex
	Replies  []string
	Edits    []string
	Deferred bool
	Deleted  bool
	Err      error
}

func (m *MockResponder) Reply(content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Replies = append(m.Replies, content)
	return m.Err
}

func (m *MockResponder) Defer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deferred = true
	return m.Err
}

func (m *MockResponder) Edit(content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Edits = append(m.Edits, content)
	return m.Err
}

func (m *MockResponder) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = true
	return m.Err
}

// Last returns the most recent message the user would see.
func (m *MockResponder) Last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := len(m.Edits); n > 0 {
		return m.Edits[n-1]
	}
	if n := len(m.Replies); n > 0 {
		return m.Replies[n-1]
	}
	return ""
}
