package conversation

import (
	"fmt"
	"sync"
	"testing"

	"lina/internal/models"
)

func appendExchange(s *Store, identity, userText, assistantText string) {
	s.AppendTurn(identity, models.RoleUser, userText)
	s.AppendTurn(identity, models.RoleAssistant, assistantText)
}

func TestGetOrCreate_LazyCreation(t *testing.T) {
	s := NewStore()

	if !s.IsFirstContact("5511999999999") {
		t.Error("unknown identity should be first contact")
	}
	if s.ActiveSessionCount() != 0 {
		t.Errorf("expected 0 sessions, got %d", s.ActiveSessionCount())
	}

	sess := s.GetOrCreate("5511999999999")
	if sess == nil {
		t.Fatal("GetOrCreate returned nil session")
	}
	if sess.CreatedAt.IsZero() {
		t.Error("session CreatedAt should be set")
	}
	if s.IsFirstContact("5511999999999") {
		t.Error("identity should no longer be first contact")
	}
	if s.ActiveSessionCount() != 1 {
		t.Errorf("expected 1 session, got %d", s.ActiveSessionCount())
	}

	if got := s.GetOrCreate("5511999999999"); got != sess {
		t.Error("GetOrCreate should return the existing session")
	}
	if s.ActiveSessionCount() != 1 {
		t.Errorf("expected 1 session after repeat GetOrCreate, got %d", s.ActiveSessionCount())
	}
}

func TestHistory_UnknownIdentity(t *testing.T) {
	s := NewStore()
	if got := s.History("unknown", 10); len(got) != 0 {
		t.Errorf("expected empty history, got %d turns", len(got))
	}
	if s.ActiveSessionCount() != 0 {
		t.Error("History should not create sessions")
	}
}

func TestAppendTurn_PairingInvariant(t *testing.T) {
	s := NewStore()
	for i := 0; i < 7; i++ {
		appendExchange(s, "id1", fmt.Sprintf("question %d", i), fmt.Sprintf("answer %d", i))
	}

	history := s.History("id1", 0)
	if len(history)%2 != 0 {
		t.Fatalf("history length should be even, got %d", len(history))
	}
	for i, turn := range history {
		want := models.RoleUser
		if i%2 == 1 {
			want = models.RoleAssistant
		}
		if turn.Role != want {
			t.Errorf("turn %d role = %q, want %q", i, turn.Role, want)
		}
	}
}

func TestAppendTurn_CapEvictsOldestPairs(t *testing.T) {
	s := NewStore()

	// 11 exchanges against a cap of 20 turns: the oldest exchange is evicted.
	for i := 0; i < 11; i++ {
		appendExchange(s, "id1", fmt.Sprintf("question %d", i), fmt.Sprintf("answer %d", i))
	}

	history := s.History("id1", 0)
	if len(history) != DefaultMaxTurns {
		t.Fatalf("history length = %d, want %d", len(history), DefaultMaxTurns)
	}
	if history[0].Content != "question 1" {
		t.Errorf("oldest retained turn = %q, want %q", history[0].Content, "question 1")
	}
	if history[0].Role != models.RoleUser {
		t.Errorf("capped history should start with a user turn, got %q", history[0].Role)
	}
	if last := history[len(history)-1]; last.Content != "answer 10" || last.Role != models.RoleAssistant {
		t.Errorf("newest turn = %q (%q), want %q", last.Content, last.Role, "answer 10")
	}
}

func TestWithMaxTurns(t *testing.T) {
	s := NewStore(WithMaxTurns(4))
	for i := 0; i < 5; i++ {
		appendExchange(s, "id1", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}
	history := s.History("id1", 0)
	if len(history) != 4 {
		t.Fatalf("history length = %d, want 4", len(history))
	}
	if history[0].Content != "q3" {
		t.Errorf("oldest retained turn = %q, want %q", history[0].Content, "q3")
	}
}

func TestHistory_Window(t *testing.T) {
	s := NewStore()
	for i := 0; i < 8; i++ {
		appendExchange(s, "id1", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	window := s.History("id1", 10)
	if len(window) != 10 {
		t.Fatalf("window length = %d, want 10", len(window))
	}
	if window[0].Content != "q3" {
		t.Errorf("window should start at q3, got %q", window[0].Content)
	}
	if window[9].Content != "a7" {
		t.Errorf("window should end at a7, got %q", window[9].Content)
	}
}

func TestHistory_ReturnsSnapshot(t *testing.T) {
	s := NewStore()
	appendExchange(s, "id1", "oi", "olá")

	snapshot := s.History("id1", 0)
	snapshot[0].Content = "mutated"

	fresh := s.History("id1", 0)
	if fresh[0].Content != "oi" {
		t.Error("mutating a History snapshot must not affect the store")
	}
}

func TestConcurrentAppends_DifferentIdentities(t *testing.T) {
	s := NewStore()
	const identities = 8
	const exchanges = 25

	var wg sync.WaitGroup
	for i := 0; i < identities; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for j := 0; j < exchanges; j++ {
				s.Do(id, func() {
					appendExchange(s, id, fmt.Sprintf("q%d", j), fmt.Sprintf("a%d", j))
				})
			}
		}(fmt.Sprintf("55119999999%02d", i))
	}
	wg.Wait()

	if s.ActiveSessionCount() != identities {
		t.Errorf("expected %d sessions, got %d", identities, s.ActiveSessionCount())
	}
	for i := 0; i < identities; i++ {
		history := s.History(fmt.Sprintf("55119999999%02d", i), 0)
		if len(history) != DefaultMaxTurns {
			t.Errorf("identity %d history length = %d, want %d", i, len(history), DefaultMaxTurns)
		}
		for j, turn := range history {
			want := models.RoleUser
			if j%2 == 1 {
				want = models.RoleAssistant
			}
			if turn.Role != want {
				t.Fatalf("identity %d turn %d role = %q, want %q", i, j, turn.Role, want)
			}
		}
	}
}

func TestDo_SerializesSameIdentity(t *testing.T) {
	s := NewStore()
	var inSection, maxInSection int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Do("id1", func() {
				mu.Lock()
				inSection++
				if inSection > maxInSection {
					maxInSection = inSection
				}
				mu.Unlock()

				appendExchange(s, "id1", "q", "a")

				mu.Lock()
				inSection--
				mu.Unlock()
			})
		}()
	}
	wg.Wait()

	if maxInSection != 1 {
		t.Errorf("critical sections for the same identity interleaved: max concurrency %d", maxInSection)
	}
}
