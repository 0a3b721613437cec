// Package types provides type definitions for structured data used throughout the cvchat system.
package types

import (
	"fmt"
	"strings"
)

// Intent classifies what the analysis service believes the user wants.
type Intent string

const (
	// IntentActionable means the sentence resolved to a concrete backend call.
	IntentActionable Intent = "actionable"
	// IntentGeneralQuestion means the sentence is a question answered inline by the service.
	IntentGeneralQuestion Intent = "general_question"
	// IntentHelp means the user asked what the system can do.
	IntentHelp Intent = "help"
)

// Verb is an HTTP method allowed for endpoint dispatch.
type Verb string

const (
	VerbGet    Verb = "GET"
	VerbPost   Verb = "POST"
	VerbPut    Verb = "PUT"
	VerbPatch  Verb = "PATCH"
	VerbDelete Verb = "DELETE"
)

// ParseVerb validates a verb string supplied by the analysis service.
// Dispatch is dynamic, so the verb must be checked before any request is built.
func ParseVerb(s string) (Verb, error) {
	v := Verb(strings.ToUpper(strings.TrimSpace(s)))
	switch v {
	case VerbGet, VerbPost, VerbPut, VerbPatch, VerbDelete:
		return v, nil
	default:
		return "", fmt.Errorf("unsupported endpoint verb: %q", s)
	}
}

// HasBody reports whether the verb carries a JSON request body.
func (v Verb) HasBody() bool {
	return v == VerbPost || v == VerbPut || v == VerbPatch
}

// EndpointRef identifies the backend call a candidate resolved to.
// All fields come from the analysis service and are untrusted until validated.
type EndpointRef struct {
	Base         string `json:"base"`
	Path         string `json:"path"`
	Verb         string `json:"verb"`
	EndpointID   string `json:"endpoint_id"`
	EndpointName string `json:"endpoint_name"`
	APIGroupID   string `json:"api_group_id"`
}

// IsConversation reports whether the endpoint belongs to the pure-chat group,
// which is answered from the candidate payload without a backend call.
func (e EndpointRef) IsConversation() bool {
	return strings.Contains(strings.ToLower(e.EndpointID), "conversation") ||
		strings.Contains(strings.ToLower(e.APIGroupID), "conversation")
}

// URL joins base and path for dispatch.
func (e EndpointRef) URL() string {
	return strings.TrimSuffix(e.Base, "/") + "/" + strings.TrimPrefix(e.Path, "/")
}

// Completion describes how many of the endpoint's parameters the service
// extracted from the conversation so far.
type Completion struct {
	Percent         int      `json:"percent"`
	MissingRequired []string `json:"missing_required"`
	MissingOptional []string `json:"missing_optional"`
}

// Ready reports whether the candidate has everything required for execution.
func (c Completion) Ready() bool {
	return c.Percent >= 100 && len(c.MissingRequired) == 0
}

// ParameterBinding is one extracted parameter. The service may supply both the
// raw span from the sentence and a normalized semantic value.
type ParameterBinding struct {
	Name          string  `json:"name"`
	RawValue      *string `json:"value"`
	SemanticValue *string `json:"semantic_value"`
}

// EffectiveValue returns the semantic value when present, otherwise the raw
// value. The second return is false when the binding is absent and must be
// dropped from the call payload.
func (p ParameterBinding) EffectiveValue() (string, bool) {
	if p.SemanticValue != nil {
		return *p.SemanticValue, true
	}
	if p.RawValue != nil {
		return *p.RawValue, true
	}
	return "", false
}

// AnalysisCandidate is one interpretation of a user sentence returned by the
// analysis service. Only the first candidate is acted on.
type AnalysisCandidate struct {
	Intent        Intent             `json:"intent"`
	Endpoint      EndpointRef        `json:"endpoint"`
	Completion    Completion         `json:"completion"`
	Parameters    []ParameterBinding `json:"parameters"`
	PromptForUser string             `json:"prompt_for_user"`
	// Payload is an opaque JSON document the service attaches for
	// conversational intents (fields "response" or "content").
	Payload string `json:"payload"`
}

// Params flattens the candidate's bindings into a call payload map.
// Absent bindings are dropped.
func (c AnalysisCandidate) Params() map[string]string {
	params := make(map[string]string, len(c.Parameters))
	for _, b := range c.Parameters {
		if v, ok := b.EffectiveValue(); ok {
			params[b.Name] = v
		}
	}
	return params
}
