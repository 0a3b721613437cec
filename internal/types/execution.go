package types

import "encoding/json"

// ExecKind classifies an execution result by response content type.
type ExecKind string

const (
	ExecPDF          ExecKind = "pdf"
	ExecJSON         ExecKind = "json"
	ExecText         ExecKind = "text"
	ExecConversation ExecKind = "conversation"
)

// ExecutionResult is the loosely-shaped outcome of one endpoint call.
// Backends return heterogeneous envelopes, so every field is optional here;
// the adapt package collapses this into a NormalizedResponse with fixed
// precedence rules.
type ExecutionResult struct {
	Kind ExecKind `json:"kind"`

	// Failure signalled by the response body itself (HTTP was 2xx).
	Failed       bool     `json:"failed,omitempty"`
	ErrorMessage string   `json:"error,omitempty"`
	ErrorCode    string   `json:"error_code,omitempty"`
	Suggestions  []string `json:"suggestions,omitempty"`

	// Content by kind.
	Blob    []byte          `json:"-"`
	Data    json.RawMessage `json:"data,omitempty"`
	Content string          `json:"content,omitempty"`

	// Envelope fields some backends include alongside the payload.
	Message    string   `json:"message,omitempty"`
	ActionName string   `json:"action,omitempty"`
	FollowUps  []string `json:"follow_ups,omitempty"`
	Filename   string   `json:"filename,omitempty"`
}
