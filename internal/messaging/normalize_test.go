package messaging

import (
	"errors"
	"testing"

	"lina/internal/models"
)

func mustNormalize(t *testing.T, payload string, cfg NormalizeConfig) models.InboundMessage {
	t.Helper()
	msg, err := Normalize([]byte(payload), cfg)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	return msg
}

func mustIgnore(t *testing.T, payload string, cfg NormalizeConfig) {
	t.Helper()
	_, err := Normalize([]byte(payload), cfg)
	if !errors.Is(err, models.ErrIgnored) {
		t.Fatalf("expected ErrIgnored, got %v", err)
	}
}

func TestNormalize_ZAPIText(t *testing.T) {
	payload := `{
		"type": "ReceivedCallback",
		"instanceId": "inst-1",
		"phone": "5511999999999",
		"fromMe": false,
		"messageType": "text",
		"text": {"message": "oi"}
	}`
	msg := mustNormalize(t, payload, NormalizeConfig{Instance: "inst-1"})
	if msg.Kind != models.KindText {
		t.Errorf("kind = %q, want text", msg.Kind)
	}
	if msg.From != "5511999999999" {
		t.Errorf("from = %q, want normalized phone", msg.From)
	}
	if msg.Text != "oi" {
		t.Errorf("text = %q, want 'oi'", msg.Text)
	}
}

func TestNormalize_ZAPIAudio(t *testing.T) {
	payload := `{
		"type": "ReceivedCallback",
		"instanceId": "inst-1",
		"phone": "5511999999999",
		"messageType": "audio",
		"audio": {"messageId": "msg-42", "audioUrl": "https://cdn.example.com/a.ogg", "mimeType": "audio/ogg"}
	}`
	msg := mustNormalize(t, payload, NormalizeConfig{Instance: "inst-1"})
	if msg.Kind != models.KindAudio {
		t.Fatalf("kind = %q, want audio", msg.Kind)
	}
	if msg.Media.ID != "msg-42" || msg.Media.URL != "https://cdn.example.com/a.ogg" {
		t.Errorf("media ref = %+v", msg.Media)
	}
}

func TestNormalize_ZAPIPtt(t *testing.T) {
	payload := `{
		"type": "ReceivedCallback",
		"phone": "5511999999999",
		"messageType": "ptt",
		"ptt": {"messageId": "msg-43"}
	}`
	msg := mustNormalize(t, payload, NormalizeConfig{})
	if msg.Kind != models.KindAudio {
		t.Fatalf("kind = %q, want audio", msg.Kind)
	}
	if msg.Media.ID != "msg-43" {
		t.Errorf("media id = %q, want msg-43", msg.Media.ID)
	}
}

func TestNormalize_ZAPIIgnoreRules(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		cfg     NormalizeConfig
	}{
		{"wrong event type", `{"type": "DeliveryCallback", "phone": "5511999999999"}`, NormalizeConfig{}},
		{"self sent", `{"type": "ReceivedCallback", "phone": "5511999999999", "fromMe": true, "text": {"message": "eco"}}`, NormalizeConfig{}},
		{"instance mismatch", `{"type": "ReceivedCallback", "instanceId": "other", "phone": "5511999999999", "text": {"message": "oi"}}`, NormalizeConfig{Instance: "inst-1"}},
		{"missing phone", `{"type": "ReceivedCallback", "text": {"message": "oi"}}`, NormalizeConfig{}},
		{"empty text", `{"type": "ReceivedCallback", "phone": "5511999999999", "text": {"message": "   "}}`, NormalizeConfig{}},
		{"no content", `{"type": "ReceivedCallback", "phone": "5511999999999"}`, NormalizeConfig{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mustIgnore(t, tt.payload, tt.cfg)
		})
	}
}

func TestNormalize_FlatText(t *testing.T) {
	payload := `{"from": "+55 11 9999-9999", "messageType": "chat", "body": "tudo bem?"}`
	msg := mustNormalize(t, payload, NormalizeConfig{})
	if msg.Kind != models.KindText {
		t.Fatalf("kind = %q, want text", msg.Kind)
	}
	if msg.From != "5511999999999" {
		t.Errorf("from = %q, want normalized identity", msg.From)
	}
	if msg.Text != "tudo bem?" {
		t.Errorf("text = %q", msg.Text)
	}
}

func TestNormalize_FlatAudio(t *testing.T) {
	payload := `{"from": "5511999999999", "messageType": "ptt", "mediaId": "m-7", "mediaUrl": "https://cdn.example.com/m7.ogg"}`
	msg := mustNormalize(t, payload, NormalizeConfig{})
	if msg.Kind != models.KindAudio {
		t.Fatalf("kind = %q, want audio", msg.Kind)
	}
	if msg.Media.ID != "m-7" {
		t.Errorf("media id = %q", msg.Media.ID)
	}
}

func TestNormalize_FlatIgnoreRules(t *testing.T) {
	mustIgnore(t, `{"from": "5511999999999", "messageType": "sticker"}`, NormalizeConfig{})
	mustIgnore(t, `{"from": "5511999999999", "messageType": "text", "fromMe": true, "body": "eco"}`, NormalizeConfig{})
	mustIgnore(t, `{"from": "5511999999999", "messageType": "text", "body": ""}`, NormalizeConfig{})
}

func TestNormalize_EventEnvelopeText(t *testing.T) {
	payload := `{
		"event": "messages.upsert",
		"instance": "lina-prod",
		"data": {
			"key": {"remoteJid": "5511999999999@s.whatsapp.net", "fromMe": false, "id": "ABCD"},
			"messageType": "conversation",
			"message": {"conversation": "oi lina"}
		}
	}`
	msg := mustNormalize(t, payload, NormalizeConfig{Instance: "lina-prod"})
	if msg.Kind != models.KindText {
		t.Fatalf("kind = %q, want text", msg.Kind)
	}
	if msg.From != "5511999999999" {
		t.Errorf("from = %q, want JID user part", msg.From)
	}
	if msg.Text != "oi lina" {
		t.Errorf("text = %q", msg.Text)
	}
}

func TestNormalize_EventEnvelopeExtendedText(t *testing.T) {
	payload := `{
		"event": "messages.upsert",
		"data": {
			"key": {"remoteJid": "5511999999999@s.whatsapp.net"},
			"message": {"extendedTextMessage": {"text": "com link https://example.com"}}
		}
	}`
	msg := mustNormalize(t, payload, NormalizeConfig{})
	if msg.Text != "com link https://example.com" {
		t.Errorf("text = %q", msg.Text)
	}
}

func TestNormalize_EventEnvelopeAudio(t *testing.T) {
	payload := `{
		"event": "messages.upsert",
		"data": {
			"key": {"remoteJid": "5511999999999@s.whatsapp.net", "id": "WA-99"},
			"message": {"audioMessage": {"url": "https://mmg.whatsapp.net/audio.enc", "mimetype": "audio/ogg; codecs=opus", "ptt": true}}
		}
	}`
	msg := mustNormalize(t, payload, NormalizeConfig{})
	if msg.Kind != models.KindAudio {
		t.Fatalf("kind = %q, want audio", msg.Kind)
	}
	if msg.Media.ID != "WA-99" || msg.Media.URL != "https://mmg.whatsapp.net/audio.enc" {
		t.Errorf("media ref = %+v", msg.Media)
	}
}

func TestNormalize_EventEnvelopeIgnoreRules(t *testing.T) {
	mustIgnore(t, `{"event": "connection.update", "data": {}}`, NormalizeConfig{})
	mustIgnore(t, `{"event": "messages.upsert", "data": {"key": {"remoteJid": "5511999999999@s.whatsapp.net", "fromMe": true}, "message": {"conversation": "eco"}}}`, NormalizeConfig{})
	mustIgnore(t, `{"event": "messages.upsert", "instance": "other", "data": {"key": {"remoteJid": "5511999999999@s.whatsapp.net"}, "message": {"conversation": "oi"}}}`, NormalizeConfig{Instance: "lina-prod"})
	mustIgnore(t, `{"event": "messages.upsert", "data": {"message": {"conversation": "oi"}}}`, NormalizeConfig{})
}

func TestNormalize_BrazilNinthDigitApplied(t *testing.T) {
	payload := `{"type": "ReceivedCallback", "phone": "557112345678", "text": {"message": "oi"}}`
	msg := mustNormalize(t, payload, NormalizeConfig{})
	if msg.From != "5571912345678" {
		t.Errorf("from = %q, want ninth-digit corrected identity", msg.From)
	}
}

func TestNormalize_UnrecognizedPayloads(t *testing.T) {
	mustIgnore(t, ``, NormalizeConfig{})
	mustIgnore(t, `not json`, NormalizeConfig{})
	mustIgnore(t, `{}`, NormalizeConfig{})
	mustIgnore(t, `{"hello": "world"}`, NormalizeConfig{})
}
