// Package relay drives one inbound message through the conversational
// pipeline: media fetch and transcription for voice notes, reply generation,
// and delivery back to the originating chat.
//
// Every event runs to a terminal outcome; no failure propagates as a panic or
// crashes the process. Voice pipeline failures are reported to the user as an
// apology message and stop the event before a reply is generated. Generation
// itself never fails from the relay's perspective (the responder degrades to
// its fallback string), and delivery failure is surfaced in the outcome for
// the webhook acknowledgement rather than shown to the user.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lina/internal/messaging"
	"lina/internal/models"
	"lina/internal/persona"
)

// Timeouts guarding outbound calls so a slow upstream cannot starve a handler.
const (
	// DefaultGatewayTimeout bounds gateway send and media fetch calls.
	DefaultGatewayTimeout = 30 * time.Second
	// DefaultBackendTimeout bounds transcription and generation calls.
	DefaultBackendTimeout = 60 * time.Second
)

// DefaultLanguageHint is the fixed transcription language hint.
const DefaultLanguageHint = "pt"

// State is the terminal state of a processed event.
type State string

const (
	// StateDelivered means a reply was generated and handed to the gateway.
	StateDelivered State = "delivered"
	// StateFailed means the event terminated before a reply was generated.
	StateFailed State = "failed"
)

// Failure reasons carried by failed outcomes.
const (
	ReasonNoMediaID           = "no-media-id"
	ReasonDownloadFailed      = "download-failed"
	ReasonTranscriptionFailed = "transcription-failed"
)

// Outcome is the terminal result of processing one inbound message.
type Outcome struct {
	State     State
	Reason    string // set when State == StateFailed
	Reply     string // the text handed to the gateway
	Delivered bool   // whether the gateway accepted the reply
}

// Transcriber converts raw audio bytes to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, language string) (string, error)
}

// Replier produces the assistant's reply for a user turn.
type Replier interface {
	Reply(ctx context.Context, identity, userText string) string
}

// Opts holds configuration options for the Relay.
type Opts struct {
	LanguageHint   string
	GatewayTimeout time.Duration
	BackendTimeout time.Duration
}

// Option defines a configuration option for the Relay.
type Option func(*Opts)

// WithLanguageHint overrides the transcription language hint.
func WithLanguageHint(lang string) Option {
	return func(o *Opts) { o.LanguageHint = lang }
}

// WithGatewayTimeout overrides the gateway call timeout.
func WithGatewayTimeout(d time.Duration) Option {
	return func(o *Opts) { o.GatewayTimeout = d }
}

// WithBackendTimeout overrides the language-model call timeout.
func WithBackendTimeout(d time.Duration) Option {
	return func(o *Opts) { o.BackendTimeout = d }
}

// Relay processes canonical inbound messages end to end.
type Relay struct {
	gateway        messaging.Service
	transcriber    Transcriber
	replier        Replier
	languageHint   string
	gatewayTimeout time.Duration
	backendTimeout time.Duration
}

// NewRelay creates a Relay. A nil transcriber models a backend without a
// transcription capability; voice messages then fail with the transcription
// apology while text messages keep working.
func NewRelay(gateway messaging.Service, transcriber Transcriber, replier Replier, opts ...Option) *Relay {
	cfg := Opts{
		LanguageHint:   DefaultLanguageHint,
		GatewayTimeout: DefaultGatewayTimeout,
		BackendTimeout: DefaultBackendTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Relay{
		gateway:        gateway,
		transcriber:    transcriber,
		replier:        replier,
		languageHint:   cfg.LanguageHint,
		gatewayTimeout: cfg.GatewayTimeout,
		backendTimeout: cfg.BackendTimeout,
	}
}

// Process runs one inbound message to a terminal outcome.
func (r *Relay) Process(ctx context.Context, msg models.InboundMessage) Outcome {
	userText := msg.Text

	if msg.Kind == models.KindAudio {
		transcript, outcome := r.resolveAudio(ctx, msg)
		if outcome != nil {
			return *outcome
		}
		userText = transcript
	}

	replyCtx, cancel := context.WithTimeout(ctx, r.backendTimeout)
	reply := r.replier.Reply(replyCtx, msg.From, userText)
	cancel()

	delivered := r.send(ctx, msg.From, reply)
	slog.Info("Relay.Process: event completed", "from", msg.From, "kind", msg.Kind, "delivered", delivered)
	return Outcome{State: StateDelivered, Reply: reply, Delivered: delivered}
}

// resolveAudio fetches and transcribes a voice message. It returns the
// transcript, or a terminal outcome when the audio pipeline failed.
func (r *Relay) resolveAudio(ctx context.Context, msg models.InboundMessage) (string, *Outcome) {
	if msg.Media.ID == "" && msg.Media.URL == "" {
		slog.Warn("Relay.resolveAudio: audio message without media reference", "from", msg.From)
		return "", &Outcome{State: StateFailed, Reason: ReasonNoMediaID}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.gatewayTimeout)
	audio, err := r.gateway.FetchMedia(fetchCtx, msg.Media)
	cancel()
	if err != nil {
		slog.Error("Relay.resolveAudio: media fetch failed", "error", err, "from", msg.From, "media_id", msg.Media.ID)
		r.send(ctx, msg.From, persona.DownloadApology)
		return "", &Outcome{State: StateFailed, Reason: ReasonDownloadFailed}
	}

	transcript, err := r.transcribe(ctx, audio)
	if err != nil {
		slog.Error("Relay.resolveAudio: transcription failed", "error", err, "from", msg.From)
		r.send(ctx, msg.From, persona.TranscriptionApology)
		return "", &Outcome{State: StateFailed, Reason: ReasonTranscriptionFailed}
	}

	// Confirm to the user what was understood before answering.
	r.send(ctx, msg.From, fmt.Sprintf(persona.TranscriptEchoFormat, transcript))
	slog.Info("Relay.resolveAudio: voice message transcribed", "from", msg.From, "transcript_length", len(transcript))
	return transcript, nil
}

func (r *Relay) transcribe(ctx context.Context, audio []byte) (string, error) {
	if r.transcriber == nil {
		return "", fmt.Errorf("no transcription backend configured")
	}
	tctx, cancel := context.WithTimeout(ctx, r.backendTimeout)
	defer cancel()
	return r.transcriber.Transcribe(tctx, audio, r.languageHint)
}

// send delivers text to the user. Failures are logged and reported as a
// boolean; retry policy is left to the caller (none here).
func (r *Relay) send(ctx context.Context, to, body string) bool {
	sctx, cancel := context.WithTimeout(ctx, r.gatewayTimeout)
	defer cancel()
	if err := r.gateway.SendText(sctx, to, body); err != nil {
		slog.Error("Relay.send: delivery failed", "error", err, "to", to)
		return false
	}
	return true
}
