// Package models defines the core data structures for Lina.
//
// It includes conversation turns, the canonical inbound message envelope, and the
// JSON response envelopes shared across modules.
package models

import (
	"errors"
	"time"
)

// Role identifies the speaker of a conversation turn.
type Role string

const (
	// RoleUser marks a turn authored by the end user.
	RoleUser Role = "user"
	// RoleAssistant marks a turn authored by the assistant.
	RoleAssistant Role = "assistant"
)

// MessageKind identifies the content type of an inbound message.
type MessageKind string

const (
	// KindText is a plain text message.
	KindText MessageKind = "text"
	// KindAudio is a voice message that needs transcription.
	KindAudio MessageKind = "audio"
)

// Error variables for better error handling and testability
var (
	ErrIgnored           = errors.New("payload is not a processable inbound message")
	ErrNoMediaRef        = errors.New("audio message carries no media reference")
	ErrEmptyTranscript   = errors.New("transcription returned empty text")
	ErrMediaUnsupported  = errors.New("media download is not supported by this gateway")
	ErrEmptyRecipient    = errors.New("recipient cannot be empty")
	ErrNoChoicesReturned = errors.New("no choices returned")
)

// Turn is one dialogue exchange unit. Immutable once created.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// MediaRef is an opaque handle to gateway-hosted media. Either field may be
// empty depending on which webhook schema produced it.
type MediaRef struct {
	ID       string `json:"id,omitempty"`
	URL      string `json:"url,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// InboundMessage is the canonical envelope produced by the webhook normalizer.
// Transient, never persisted.
type InboundMessage struct {
	From  string      `json:"from"` // normalized conversation identity
	Kind  MessageKind `json:"kind"`
	Text  string      `json:"text,omitempty"`
	Media MediaRef    `json:"media,omitempty"`
}

// API response types for consistent JSON responses

// APIStatus represents the status field of an API response.
type APIStatus string

const (
	// APIStatusOK indicates a successful operation.
	APIStatusOK APIStatus = "success"
	// APIStatusError indicates a failed operation.
	APIStatusError APIStatus = "error"
	// APIStatusIgnored indicates the webhook payload was acknowledged but skipped.
	APIStatusIgnored APIStatus = "ignored"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}

// Ignored creates the acknowledgement body for webhook payloads that are skipped.
func Ignored() APIResponse {
	return APIResponse{Status: string(APIStatusIgnored)}
}
