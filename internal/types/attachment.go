package types

import "strings"

// FileAttachment is a fully-buffered file submitted with a command.
// It exists only for the duration of one command and is never persisted.
type FileAttachment struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	MimeType       string `json:"mime_type"`
	SizeBytes      int64  `json:"size_bytes"`
	Base64Data     string `json:"data"`
	PreviewDataURL string `json:"preview_data_url,omitempty"`
}

// IsImage reports whether the attachment should be forwarded to the analysis
// service. Non-image attachments are only ever seen by the executed endpoint.
func (a FileAttachment) IsImage() bool {
	return strings.HasPrefix(a.MimeType, "image/")
}
