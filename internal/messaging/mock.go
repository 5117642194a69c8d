package messaging

import (
	"context"
	"sync"

	"lina/internal/identity"
	"lina/internal/models"
)

// SentMessage records one outbound text for inspection in tests.
type SentMessage struct {
	To   string
	Body string
}

// MockService implements Service in memory for tests.
type MockService struct {
	mu       sync.Mutex
	Sent     []SentMessage
	Media    map[string][]byte
	SendErr  error
	FetchErr error
}

// NewMockService creates an empty mock gateway.
func NewMockService() *MockService {
	return &MockService{Media: make(map[string][]byte)}
}

// ValidateAndCanonicalizeRecipient applies the shared identity normalization.
func (m *MockService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	if recipient == "" {
		return "", models.ErrEmptyRecipient
	}
	return identity.Normalize(recipient)
}

// SendText records the outbound message, or fails with SendErr when set.
func (m *MockService) SendText(ctx context.Context, to string, body string) error {
	if m.SendErr != nil {
		return m.SendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentMessage{To: to, Body: body})
	return nil
}

// FetchMedia serves bytes registered under the reference id or URL.
func (m *MockService) FetchMedia(ctx context.Context, ref models.MediaRef) ([]byte, error) {
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if data, ok := m.Media[ref.ID]; ok {
		return data, nil
	}
	if data, ok := m.Media[ref.URL]; ok {
		return data, nil
	}
	return nil, ErrAllFetchStrategiesFailed
}

// SentMessages returns a snapshot of recorded outbound messages.
func (m *MockService) SentMessages() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.Sent))
	copy(out, m.Sent)
	return out
}
