// Package responder turns an inbound user message into the assistant's reply.
//
// It assembles the prompt (persona, recent history window, new user turn),
// invokes the chat backend, and records the completed exchange in the
// conversation store. Generation failure never surfaces to the caller: the
// contract is that every well-formed inbound turn gets some reply, so failures
// degrade to a fixed fallback string and leave history untouched.
package responder

import (
	"context"
	"log/slog"

	"lina/internal/conversation"
	"lina/internal/models"
	"lina/internal/persona"
)

// HistoryWindow is the number of recent turns (5 exchanges) included in the prompt.
const HistoryWindow = 10

// ChatBackend is the minimal chat-completion interface the responder needs.
type ChatBackend interface {
	Chat(ctx context.Context, systemPrompt string, history []models.Turn, userText string) (string, error)
}

// Responder generates assistant replies using a chat backend and the
// conversation store.
type Responder struct {
	backend ChatBackend
	store   *conversation.Store
}

// NewResponder creates a Responder. A nil backend is permitted: it models a
// backend that was unavailable at startup (e.g. missing credential), in which
// case every Reply returns the fallback string without a network call.
func NewResponder(backend ChatBackend, store *conversation.Store) *Responder {
	if backend == nil {
		slog.Warn("Responder: no chat backend configured, all replies will use the fallback string")
	}
	return &Responder{backend: backend, store: store}
}

// Reply produces the assistant's reply to userText for the given identity.
// On success the user and assistant turns are appended to the session; on any
// backend failure the fallback string is returned and history is not mutated.
// The read-generate-append sequence is serialized per identity.
func (r *Responder) Reply(ctx context.Context, identity, userText string) string {
	if r.backend == nil {
		slog.Error("Responder.Reply: chat backend unavailable, returning fallback", "identity", identity)
		return persona.FallbackReply
	}

	var reply string
	r.store.Do(identity, func() {
		firstContact := r.store.IsFirstContact(identity)
		r.store.GetOrCreate(identity)
		history := r.store.History(identity, HistoryWindow)

		text, err := r.backend.Chat(ctx, persona.SystemPrompt, history, userText)
		if err != nil {
			slog.Error("Responder.Reply: generation failed, returning fallback", "error", err, "identity", identity)
			reply = persona.FallbackReply
			return
		}

		r.store.AppendTurn(identity, models.RoleUser, userText)
		r.store.AppendTurn(identity, models.RoleAssistant, text)
		slog.Info("Responder.Reply: reply generated", "identity", identity, "first_contact", firstContact, "history_turns", len(history), "reply_length", len(text))
		reply = text
	})
	return reply
}
