package server

import (
	"encoding/json"
	"net/http"

	"github.com/careerkit/cvchat/internal/attach"
	"github.com/careerkit/cvchat/internal/types"
)

// defaultSessionID groups callers that do not name a chat session.
const defaultSessionID = "default"

func chatSessionID(r *http.Request) string {
	if id := r.Header.Get("X-Chat-Session"); id != "" {
		return id
	}
	return defaultSessionID
}

// handleCommand runs one sentence through the pipeline and returns the
// wrapper Result. Pipeline failures are part of the Result and answered with
// 200; only transport-level problems get error statuses.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req types.CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, &ErrValidation{Message: "invalid JSON body"})
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, &ErrValidation{Message: err.Error()})
		return
	}

	attachments := make([]types.FileAttachment, 0, len(req.Attachments))
	for _, upload := range req.Attachments {
		att, err := attach.FromUpload(upload, s.maxAttachment)
		if err != nil {
			s.errorResponse(w, err)
			return
		}
		attachments = append(attachments, att)
	}

	sess, err := s.session(chatSessionID(r))
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	result, err := sess.ExecuteCommand(r.Context(), req.Sentence, attachments)
	if err != nil {
		// ErrBusy maps to 409; the session never queues commands.
		s.errorResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, result)
}

// handleReset abandons the current conversation for the caller's session.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(chatSessionID(r))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	sess.ResetConversation()
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleState returns the session snapshot for UI state restoration.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(chatSessionID(r))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sess.State())
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
