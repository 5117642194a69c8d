// Package messaging provides the gateway abstraction for Lina.
//
// A Service sends outbound text and retrieves message media from one WhatsApp
// gateway provider. The package also contains the inbound webhook normalizer,
// which maps each provider's payload shape into the canonical
// models.InboundMessage.
package messaging

import (
	"context"
	"errors"

	"lina/internal/models"
)

// ErrAllFetchStrategiesFailed is returned when every media retrieval strategy
// was attempted without success.
var ErrAllFetchStrategiesFailed = errors.New("all media fetch strategies failed")

// Service defines a pluggable message gateway abstraction.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a recipient
	// identifier. Returns the canonical identity or an error if validation fails.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendText pushes a plain-text message to a recipient. Failures are
	// reported to the caller for logging; no automatic retry is performed.
	SendText(ctx context.Context, to string, body string) error

	// FetchMedia retrieves the raw bytes behind a media reference. Gateways
	// without media retrieval return models.ErrMediaUnsupported.
	FetchMedia(ctx context.Context, ref models.MediaRef) ([]byte, error)
}
