package messaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"lina/internal/identity"
	"lina/internal/models"
)

// Constants for Z-API client configuration
const (
	// DefaultZAPIBaseURL is the public Z-API endpoint.
	DefaultZAPIBaseURL = "https://api.z-api.io"
	// DefaultHTTPTimeout bounds every outbound gateway call.
	DefaultHTTPTimeout = 30 * time.Second
	// maxMediaBytes caps a media download (voice notes are far smaller).
	maxMediaBytes = 32 << 20
)

// ZAPIOpts holds configuration options for the Z-API client.
type ZAPIOpts struct {
	BaseURL  string
	Instance string
	Token    string
	Client   *http.Client
}

// ZAPIOption defines a configuration option for the Z-API client.
type ZAPIOption func(*ZAPIOpts)

// WithZAPIBaseURL overrides the Z-API base URL (mainly for tests).
func WithZAPIBaseURL(u string) ZAPIOption {
	return func(o *ZAPIOpts) { o.BaseURL = u }
}

// WithZAPIInstance sets the Z-API instance id.
func WithZAPIInstance(instance string) ZAPIOption {
	return func(o *ZAPIOpts) { o.Instance = instance }
}

// WithZAPIToken sets the Z-API instance token.
func WithZAPIToken(token string) ZAPIOption {
	return func(o *ZAPIOpts) { o.Token = token }
}

// WithZAPIHTTPClient injects a custom HTTP client.
func WithZAPIHTTPClient(c *http.Client) ZAPIOption {
	return func(o *ZAPIOpts) { o.Client = c }
}

// ZAPIService implements Service against the Z-API HTTP gateway. The instance
// token doubles as the Client-Token authentication header.
type ZAPIService struct {
	baseURL  string
	instance string
	token    string
	client   *http.Client
}

// NewZAPIService creates a Z-API gateway service. Instance and token fall back
// to the Z_API_INSTANCE and Z_API_TOKEN environment variables.
func NewZAPIService(opts ...ZAPIOption) (*ZAPIService, error) {
	var cfg ZAPIOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Instance == "" {
		cfg.Instance = os.Getenv("Z_API_INSTANCE")
	}
	if cfg.Token == "" {
		cfg.Token = os.Getenv("Z_API_TOKEN")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("Z_API_BASE_URL")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultZAPIBaseURL
	}
	slog.Debug("ZAPIService config loaded",
		"instance_set", cfg.Instance != "",
		"token_set", cfg.Token != "",
		"base_url", cfg.BaseURL)

	if cfg.Instance == "" || cfg.Token == "" {
		return nil, fmt.Errorf("Z-API instance and token must be provided")
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	return &ZAPIService{
		baseURL:  cfg.BaseURL,
		instance: cfg.Instance,
		token:    cfg.Token,
		client:   cfg.Client,
	}, nil
}

// ValidateAndCanonicalizeRecipient applies the shared identity normalization.
func (s *ZAPIService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	if recipient == "" {
		return "", models.ErrEmptyRecipient
	}
	return identity.Normalize(recipient)
}

// SendText sends a text message through the Z-API send-text endpoint.
func (s *ZAPIService) SendText(ctx context.Context, to string, body string) error {
	canonicalTo, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}

	payload, err := json.Marshal(map[string]string{
		"phone":   canonicalTo,
		"message": body,
	})
	if err != nil {
		return fmt.Errorf("failed to encode send-text payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/instances/%s/token/%s/send-text", s.baseURL, s.instance, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build send-text request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Client-Token", s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Error("ZAPIService.SendText: request failed", "error", err, "to", canonicalTo)
		return fmt.Errorf("send-text request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Error("ZAPIService.SendText: gateway returned non-success status", "status", resp.StatusCode, "to", canonicalTo)
		return fmt.Errorf("send-text returned status %d", resp.StatusCode)
	}

	slog.Info("ZAPIService.SendText: message sent", "to", canonicalTo, "body_length", len(body))
	return nil
}

// FetchMedia retrieves raw media bytes. Strategies are attempted in fixed
// priority order: the direct media URL first, then lookup by message id via
// the download-media endpoint (which answers base64).
func (s *ZAPIService) FetchMedia(ctx context.Context, ref models.MediaRef) ([]byte, error) {
	var firstErr error

	if ref.URL != "" {
		data, err := s.fetchByURL(ctx, ref.URL)
		if err == nil {
			return data, nil
		}
		firstErr = err
		slog.Warn("ZAPIService.FetchMedia: direct URL fetch failed, trying lookup by id", "error", err, "media_id", ref.ID)
	}

	if ref.ID != "" {
		data, err := s.fetchByMessageID(ctx, ref.ID)
		if err == nil {
			return data, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		slog.Error("ZAPIService.FetchMedia: lookup by id failed", "error", err, "media_id", ref.ID)
	}

	if firstErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrAllFetchStrategiesFailed, firstErr)
	}
	return nil, models.ErrNoMediaRef
}

func (s *ZAPIService) fetchByURL(ctx context.Context, mediaURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build media request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("media download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read media body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("media download returned empty body")
	}
	return data, nil
}

func (s *ZAPIService) fetchByMessageID(ctx context.Context, messageID string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/instances/%s/token/%s/download-media?%s",
		s.baseURL, s.instance, s.token, url.Values{"messageId": {messageID}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download-media request: %w", err)
	}
	req.Header.Set("Client-Token", s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download-media request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("download-media returned status %d", resp.StatusCode)
	}

	var body struct {
		Base64 string `json:"base64"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxMediaBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode download-media response: %w", err)
	}
	if body.Base64 == "" {
		return nil, fmt.Errorf("download-media response carries no base64 payload")
	}

	data, err := base64.StdEncoding.DecodeString(body.Base64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 media payload: %w", err)
	}
	return data, nil
}
