package types

import "encoding/json"

// ResponseKind discriminates the NormalizedResponse union.
type ResponseKind string

const (
	ResponseText   ResponseKind = "text"
	ResponseFile   ResponseKind = "file"
	ResponseData   ResponseKind = "data"
	ResponseAction ResponseKind = "action"
	ResponseError  ResponseKind = "error"
)

// NormalizedResponse is the single output contract of the command pipeline.
// Exactly one Kind is set; success kinds never carry ErrorMessage and the
// error kind never carries Message. Construct via the helpers below rather
// than literals so the invariant holds.
type NormalizedResponse struct {
	Kind ResponseKind `json:"kind"`

	// Success fields.
	Message    string          `json:"message,omitempty"`
	FileKind   string          `json:"file_kind,omitempty"`
	Filename   string          `json:"filename,omitempty"`
	Payload    []byte          `json:"payload,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	ActionName string          `json:"action_name,omitempty"`
	FollowUps  []string        `json:"follow_ups,omitempty"`

	// Error fields.
	ErrorMessage string   `json:"error_message,omitempty"`
	ErrorCode    string   `json:"error_code,omitempty"`
	Suggestions  []string `json:"suggestions,omitempty"`

	// ConversationID echoes the session so callers can track continuity.
	ConversationID string `json:"conversation_id,omitempty"`
}

// IsError reports whether the response is the error variant.
func (r *NormalizedResponse) IsError() bool {
	return r.Kind == ResponseError
}

// WithConversation sets the conversation echo and returns the response.
func (r *NormalizedResponse) WithConversation(id string) *NormalizedResponse {
	r.ConversationID = id
	return r
}

// TextResponse builds the plain-text variant.
func TextResponse(message string) *NormalizedResponse {
	return &NormalizedResponse{Kind: ResponseText, Message: message}
}

// FileResponse builds the file variant. Payload may be nil when the caller
// only needs the download metadata.
func FileResponse(message, fileKind, filename string, payload []byte) *NormalizedResponse {
	return &NormalizedResponse{
		Kind:     ResponseFile,
		Message:  message,
		FileKind: fileKind,
		Filename: filename,
		Payload:  payload,
	}
}

// DataResponse builds the structured-data variant.
func DataResponse(message string, data json.RawMessage) *NormalizedResponse {
	return &NormalizedResponse{Kind: ResponseData, Message: message, Data: data}
}

// ActionResponse builds the resolved-but-not-executed variant.
func ActionResponse(message, actionName string, followUps []string) *NormalizedResponse {
	return &NormalizedResponse{
		Kind:       ResponseAction,
		Message:    message,
		ActionName: actionName,
		FollowUps:  followUps,
	}
}

// ErrorResponse builds the error variant.
func ErrorResponse(errorMessage, errorCode string, suggestions []string) *NormalizedResponse {
	return &NormalizedResponse{
		Kind:         ResponseError,
		ErrorMessage: errorMessage,
		ErrorCode:    errorCode,
		Suggestions:  suggestions,
	}
}
