package types

import "github.com/go-playground/validator/v10"

// AttachmentUpload is the wire form of one attachment in a chat command.
type AttachmentUpload struct {
	Name     string `json:"name" validate:"required,min=1"`
	MimeType string `json:"mime_type,omitempty"`
	Data     string `json:"data" validate:"required,base64"`
}

// CommandRequest is the request body for POST /chat/command.
type CommandRequest struct {
	Sentence    string             `json:"sentence" validate:"required,min=1"`
	Attachments []AttachmentUpload `json:"attachments,omitempty" validate:"dive"`
}

// Validate validates the CommandRequest using the validator.
func (r *CommandRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
