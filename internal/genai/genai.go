// Package genai wraps the language-model backend for Lina.
//
// It provides chat completions for reply generation and Whisper transcription
// for voice messages through the OpenAI API surface. Any OpenAI-compatible
// backend (e.g. Groq) is reached by overriding the base URL and model names.
package genai

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"lina/internal/models"
)

// Sampling policy constants applied to every chat completion.
const (
	// DefaultTemperature is the fixed sampling temperature.
	DefaultTemperature = 0.7
	// DefaultMaxTokens caps the generated reply length.
	DefaultMaxTokens = 1000
)

// chatService defines the minimal interface for chat completions.
type chatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// transcriptionService defines the minimal interface for audio transcriptions.
type transcriptionService interface {
	New(ctx context.Context, params openai.AudioTranscriptionNewParams, opts ...option.RequestOption) (*openai.Transcription, error)
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey          string
	BaseURL         string
	Model           string
	TranscribeModel string
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the API key for the backend.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL points the client at an OpenAI-compatible backend.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithModel sets the chat completion model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithTranscriptionModel sets the audio transcription model.
func WithTranscriptionModel(model string) Option {
	return func(o *Opts) { o.TranscribeModel = model }
}

// Client wraps the chat and transcription services of the backend.
type Client struct {
	chat            chatService
	transcriptions  transcriptionService
	model           openai.ChatModel
	transcribeModel openai.AudioModel
	temperature     float64
	maxTokens       int64
}

// NewClient initializes a GenAI client. The API key falls back to the
// OPENAI_API_KEY environment variable when not provided via options.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key not set")
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	cli := openai.NewClient(reqOpts...)

	c := &Client{
		chat:            &cli.Chat.Completions,
		transcriptions:  &cli.Audio.Transcriptions,
		model:           openai.ChatModelGPT4oMini,
		transcribeModel: openai.AudioModelWhisper1,
		temperature:     DefaultTemperature,
		maxTokens:       DefaultMaxTokens,
	}
	if cfg.Model != "" {
		c.model = openai.ChatModel(cfg.Model)
	}
	if cfg.TranscribeModel != "" {
		c.transcribeModel = openai.AudioModel(cfg.TranscribeModel)
	}
	slog.Debug("genai.NewClient: client configured", "model", c.model, "transcribe_model", c.transcribeModel, "base_url_set", cfg.BaseURL != "")
	return c, nil
}

// Chat generates a reply for the given system prompt, prior turns, and new
// user message using the fixed sampling policy.
func (c *Client) Chat(ctx context.Context, systemPrompt string, history []models.Turn, userText string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(systemPrompt))
	for _, turn := range history {
		switch turn.Role {
		case models.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}
	messages = append(messages, openai.UserMessage(userText))

	resp, err := c.chat.New(ctx, openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    messages,
		Temperature: openai.Float(c.temperature),
		MaxTokens:   openai.Int(c.maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", models.ErrNoChoicesReturned
	}
	return resp.Choices[0].Message.Content, nil
}

// Transcribe converts raw audio bytes to text with the given language hint.
// The audio is spooled to a temporary file for the duration of the call; the
// file is removed on every exit path. Empty or whitespace-only results are an
// error: callers must never treat them as a valid transcript.
func (c *Client) Transcribe(ctx context.Context, audio []byte, language string) (string, error) {
	tmp, err := os.CreateTemp("", "lina-audio-*.ogg")
	if err != nil {
		return "", fmt.Errorf("failed to create temp audio file: %w", err)
	}
	defer func() {
		tmp.Close()
		if rmErr := os.Remove(tmp.Name()); rmErr != nil {
			slog.Warn("genai.Transcribe: failed to remove temp audio file", "error", rmErr, "path", tmp.Name())
		}
	}()

	if _, err := tmp.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write temp audio file: %w", err)
	}
	if _, err := tmp.Seek(0, 0); err != nil {
		return "", fmt.Errorf("failed to rewind temp audio file: %w", err)
	}

	params := openai.AudioTranscriptionNewParams{
		Model: c.transcribeModel,
		File:  tmp,
	}
	if language != "" {
		params.Language = openai.String(language)
	}
	resp, err := c.transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", models.ErrEmptyTranscript
	}
	return text, nil
}
