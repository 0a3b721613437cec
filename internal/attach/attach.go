// Package attach prepares file attachments for one chat command. Files are
// fully buffered and base64-encoded before submission; nothing is streamed
// and nothing is persisted.
package attach

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/careerkit/cvchat/internal/types"
)

// DefaultMaxBytes caps a single attachment at 10 MiB.
const DefaultMaxBytes int64 = 10 << 20

// Error represents a failure preparing one attachment.
type Error struct {
	Name    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("attachment error for %s: %s: %v", e.Name, e.Message, e.Cause)
	}
	return fmt.Sprintf("attachment error for %s: %s", e.Name, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// FromBytes builds a FileAttachment from in-memory data. The mime type is
// sniffed when the caller does not supply one.
func FromBytes(name, mimeType string, data []byte, maxBytes int64) (types.FileAttachment, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if int64(len(data)) > maxBytes {
		return types.FileAttachment{}, &Error{
			Name:    name,
			Message: fmt.Sprintf("exceeds size limit of %d bytes", maxBytes),
		}
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	att := types.FileAttachment{
		ID:         uuid.NewString(),
		Name:       name,
		MimeType:   mimeType,
		SizeBytes:  int64(len(data)),
		Base64Data: base64.StdEncoding.EncodeToString(data),
	}
	if att.IsImage() {
		att.PreviewDataURL = "data:" + mimeType + ";base64," + att.Base64Data
	}
	return att, nil
}

// FromUpload decodes one wire-form attachment.
func FromUpload(upload types.AttachmentUpload, maxBytes int64) (types.FileAttachment, error) {
	data, err := base64.StdEncoding.DecodeString(upload.Data)
	if err != nil {
		return types.FileAttachment{}, &Error{Name: upload.Name, Message: "invalid base64 data", Cause: err}
	}
	return FromBytes(upload.Name, strings.TrimSpace(upload.MimeType), data, maxBytes)
}

// LoadFiles reads local files into attachments, concurrently. Order follows
// the input paths. Any single failure fails the whole batch: a command either
// gets all its attachments or none.
func LoadFiles(ctx context.Context, paths []string, maxBytes int64) ([]types.FileAttachment, error) {
	attachments := make([]types.FileAttachment, len(paths))

	g, gCtx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return &Error{Name: path, Message: "failed to read file", Cause: err}
			}
			att, err := FromBytes(filepath.Base(path), "", data, maxBytes)
			if err != nil {
				return err
			}
			attachments[i] = att
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return attachments, nil
}
