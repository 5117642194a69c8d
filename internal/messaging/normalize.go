package messaging

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"lina/internal/identity"
	"lina/internal/models"
)

// NormalizeConfig carries the settings the normalizer matches payloads against.
type NormalizeConfig struct {
	// Instance is the configured gateway instance id. When set, payloads
	// addressed to a different instance are ignored.
	Instance string
}

// schemaParser attempts to extract an inbound message from one provider's
// payload shape. claimed reports whether the payload belongs to this schema;
// only a claimed payload produces a result or a hard ignore.
type schemaParser func(raw []byte, cfg NormalizeConfig) (msg models.InboundMessage, claimed bool, err error)

// Parsers are attempted in fixed priority order. Adding a gateway provider
// means adding a schema case here, not branching inside existing ones.
var schemaParsers = []schemaParser{
	parseZAPIPayload,
	parseFlatPayload,
	parseEventEnvelopePayload,
}

// Normalize maps a provider-specific webhook payload into the canonical
// InboundMessage. Payloads that are empty, self-sent, addressed to a different
// instance, of an unknown shape, or otherwise not a processable user message
// return models.ErrIgnored. Normalization has no side effects.
func Normalize(raw []byte, cfg NormalizeConfig) (models.InboundMessage, error) {
	if len(raw) == 0 {
		return models.InboundMessage{}, fmt.Errorf("%w: empty payload", models.ErrIgnored)
	}

	for _, parse := range schemaParsers {
		msg, claimed, err := parse(raw, cfg)
		if !claimed {
			continue
		}
		if err != nil {
			return models.InboundMessage{}, err
		}
		return msg, nil
	}

	return models.InboundMessage{}, fmt.Errorf("%w: unrecognized payload shape", models.ErrIgnored)
}

// finishMessage applies identity normalization and the common text/audio
// validity rules shared by all schemas.
func finishMessage(rawFrom string, kind models.MessageKind, text string, media models.MediaRef) (models.InboundMessage, error) {
	from, err := identity.Normalize(rawFrom)
	if err != nil {
		slog.Debug("Normalize: sender identity rejected", "error", err, "raw_from", rawFrom)
		return models.InboundMessage{}, fmt.Errorf("%w: invalid sender identity", models.ErrIgnored)
	}

	if kind == models.KindText {
		text = strings.TrimSpace(text)
		if text == "" {
			return models.InboundMessage{}, fmt.Errorf("%w: empty text message", models.ErrIgnored)
		}
		return models.InboundMessage{From: from, Kind: models.KindText, Text: text}, nil
	}
	return models.InboundMessage{From: from, Kind: models.KindAudio, Media: media}, nil
}

// Z-API "ReceivedCallback" schema: instance-keyed, text under text.message,
// voice notes under audio or ptt.

type zapiMedia struct {
	MessageID string `json:"messageId"`
	AudioURL  string `json:"audioUrl"`
	MimeType  string `json:"mimeType"`
}

type zapiPayload struct {
	Type        string     `json:"type"`
	InstanceID  string     `json:"instanceId"`
	Phone       string     `json:"phone"`
	FromMe      bool       `json:"fromMe"`
	MessageType string     `json:"messageType"`
	Text        *struct {
		Message string `json:"message"`
	} `json:"text"`
	Audio *zapiMedia `json:"audio"`
	Ptt   *zapiMedia `json:"ptt"`
}

func parseZAPIPayload(raw []byte, cfg NormalizeConfig) (models.InboundMessage, bool, error) {
	var p zapiPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.Type == "" {
		return models.InboundMessage{}, false, nil
	}
	if p.Type != "ReceivedCallback" {
		return models.InboundMessage{}, true, fmt.Errorf("%w: event type %q", models.ErrIgnored, p.Type)
	}
	if p.FromMe {
		return models.InboundMessage{}, true, fmt.Errorf("%w: self-sent message", models.ErrIgnored)
	}
	if cfg.Instance != "" && p.InstanceID != "" && p.InstanceID != cfg.Instance {
		return models.InboundMessage{}, true, fmt.Errorf("%w: instance mismatch", models.ErrIgnored)
	}
	if p.Phone == "" {
		return models.InboundMessage{}, true, fmt.Errorf("%w: missing phone", models.ErrIgnored)
	}

	if audio := firstZAPIMedia(p.Audio, p.Ptt); audio != nil {
		msg, err := finishMessage(p.Phone, models.KindAudio, "", models.MediaRef{
			ID:       audio.MessageID,
			URL:      audio.AudioURL,
			MimeType: audio.MimeType,
		})
		return msg, true, err
	}
	if p.Text != nil {
		msg, err := finishMessage(p.Phone, models.KindText, p.Text.Message, models.MediaRef{})
		return msg, true, err
	}
	return models.InboundMessage{}, true, fmt.Errorf("%w: no text or audio content", models.ErrIgnored)
}

func firstZAPIMedia(candidates ...*zapiMedia) *zapiMedia {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return nil
}

// Flat "from"/"messageType" schema: message body at the top level, media
// referenced by mediaId/mediaUrl.

type flatPayload struct {
	From        string `json:"from"`
	MessageType string `json:"messageType"`
	FromMe      bool   `json:"fromMe"`
	Body        string `json:"body"`
	Text        string `json:"text"`
	MediaID     string `json:"mediaId"`
	MediaURL    string `json:"mediaUrl"`
	MimeType    string `json:"mimeType"`
}

func parseFlatPayload(raw []byte, cfg NormalizeConfig) (models.InboundMessage, bool, error) {
	var p flatPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.From == "" || p.MessageType == "" {
		return models.InboundMessage{}, false, nil
	}
	if p.FromMe {
		return models.InboundMessage{}, true, fmt.Errorf("%w: self-sent message", models.ErrIgnored)
	}

	switch p.MessageType {
	case "text", "chat":
		body := p.Body
		if body == "" {
			body = p.Text
		}
		msg, err := finishMessage(p.From, models.KindText, body, models.MediaRef{})
		return msg, true, err
	case "audio", "ptt", "voice":
		msg, err := finishMessage(p.From, models.KindAudio, "", models.MediaRef{
			ID:       p.MediaID,
			URL:      p.MediaURL,
			MimeType: p.MimeType,
		})
		return msg, true, err
	default:
		return models.InboundMessage{}, true, fmt.Errorf("%w: message type %q", models.ErrIgnored, p.MessageType)
	}
}

// Event-envelope schema mirroring the multi-device protocol: "messages.upsert"
// events with the message nested under data, sender under data.key.remoteJid.

type eventEnvelopePayload struct {
	Event    string `json:"event"`
	Instance string `json:"instance"`
	Data     struct {
		Key struct {
			RemoteJid string `json:"remoteJid"`
			FromMe    bool   `json:"fromMe"`
			ID        string `json:"id"`
		} `json:"key"`
		MessageType string `json:"messageType"`
		Message     struct {
			Conversation        string `json:"conversation"`
			ExtendedTextMessage *struct {
				Text string `json:"text"`
			} `json:"extendedTextMessage"`
			AudioMessage *struct {
				URL      string `json:"url"`
				Mimetype string `json:"mimetype"`
				Ptt      bool   `json:"ptt"`
			} `json:"audioMessage"`
		} `json:"message"`
	} `json:"data"`
}

func parseEventEnvelopePayload(raw []byte, cfg NormalizeConfig) (models.InboundMessage, bool, error) {
	var p eventEnvelopePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.Event == "" {
		return models.InboundMessage{}, false, nil
	}
	if p.Event != "messages.upsert" {
		return models.InboundMessage{}, true, fmt.Errorf("%w: event %q", models.ErrIgnored, p.Event)
	}
	if p.Data.Key.FromMe {
		return models.InboundMessage{}, true, fmt.Errorf("%w: self-sent message", models.ErrIgnored)
	}
	if cfg.Instance != "" && p.Instance != "" && p.Instance != cfg.Instance {
		return models.InboundMessage{}, true, fmt.Errorf("%w: instance mismatch", models.ErrIgnored)
	}
	if p.Data.Key.RemoteJid == "" {
		return models.InboundMessage{}, true, fmt.Errorf("%w: missing remoteJid", models.ErrIgnored)
	}

	if audio := p.Data.Message.AudioMessage; audio != nil {
		msg, err := finishMessage(p.Data.Key.RemoteJid, models.KindAudio, "", models.MediaRef{
			ID:       p.Data.Key.ID,
			URL:      audio.URL,
			MimeType: audio.Mimetype,
		})
		return msg, true, err
	}

	text := p.Data.Message.Conversation
	if text == "" && p.Data.Message.ExtendedTextMessage != nil {
		text = p.Data.Message.ExtendedTextMessage.Text
	}
	msg, err := finishMessage(p.Data.Key.RemoteJid, models.KindText, text, models.MediaRef{})
	return msg, true, err
}
