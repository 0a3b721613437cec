// Package intent provides the HTTP client for the external natural-language
// analysis service and hides its conversation-session bookkeeping.
package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/careerkit/cvchat/internal/schemas"
	"github.com/careerkit/cvchat/internal/types"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

const (
	startPath   = "/api/analyze/start"
	analyzePath = "/api/analyze"
)

// TokenSource supplies the end-user bearer token for executed endpoints.
// It is distinct from the service API key used on the analyze paths.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Options configures the client.
type Options struct {
	BaseURL    string
	APIKey     string
	UserID     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the analysis service. It owns at most one conversation
// session at a time; the id is assigned by the service on the first start
// call and replaced transparently when the service invalidates it.
//
// The client is not designed for concurrent in-flight analyze calls: callers
// must serialize commands per instance.
type Client struct {
	baseURL string
	apiKey  string
	userID  string
	httpc   *http.Client
	logger  *zap.Logger

	mu             sync.Mutex
	conversationID string
}

// NewClient creates a client for the analysis service at opts.BaseURL.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("intent service base URL is required")
	}
	httpc := opts.HTTPClient
	if httpc == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		httpc = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		userID:  opts.UserID,
		httpc:   httpc,
		logger:  logger,
	}, nil
}

// ConversationID returns the current session id, or "" when none is active.
func (c *Client) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversationID
}

// SetConversationID installs a session id obtained elsewhere.
func (c *Client) SetConversationID(id string) {
	c.mu.Lock()
	c.conversationID = id
	c.mu.Unlock()
}

// ResetConversation clears the stored session id. The server-side session is
// abandoned, not closed; no network call is made.
func (c *Client) ResetConversation() {
	c.SetConversationID("")
}

type startRequest struct {
	UserID  string            `json:"user_id,omitempty"`
	Context map[string]string `json:"context,omitempty"`
}

type startResponse struct {
	ConversationID string `json:"conversation_id"`
	Success        bool   `json:"success"`
	Message        string `json:"message,omitempty"`
}

// StartConversation opens a new session and stores its id.
func (c *Client) StartConversation(ctx context.Context, extra map[string]string) (string, error) {
	body, status, err := c.postJSON(ctx, c.baseURL+startPath, startRequest{
		UserID:  c.userID,
		Context: extra,
	})
	if err != nil {
		return "", &ServiceError{Op: "start", Reason: "request failed", Cause: err}
	}
	if status < 200 || status >= 300 {
		return "", &ServiceError{Op: "start", StatusCode: status, Reason: reasonFromBody(body, status)}
	}

	var decoded startResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", &ServiceError{Op: "start", Reason: "malformed start response", Cause: err}
	}
	if decoded.ConversationID == "" {
		return "", &ServiceError{Op: "start", Reason: "start response carried no conversation id"}
	}

	c.SetConversationID(decoded.ConversationID)
	c.logger.Debug("conversation started", zap.String("conversation_id", decoded.ConversationID))
	return decoded.ConversationID, nil
}

type imagePayload struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Data string `json:"data"`
}

type analyzeRequest struct {
	ConversationID string         `json:"conversation_id"`
	Sentence       string         `json:"sentence"`
	Images         []imagePayload `json:"images,omitempty"`
	HasImages      bool           `json:"has_images,omitempty"`
}

// AnalyzeSentence submits a sentence for analysis, lazily starting a session
// first. Every analyze call operates within a session. When the service
// invalidates the session mid-conversation, the call restarts a session and
// retries exactly once; a second failure propagates.
func (c *Client) AnalyzeSentence(ctx context.Context, sentence string, attachments []types.FileAttachment) ([]types.AnalysisCandidate, error) {
	// Bounded loop, not recursion: at most one transparent restart.
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		convID := c.ConversationID()
		if convID == "" {
			id, err := c.StartConversation(ctx, nil)
			if err != nil {
				return nil, err
			}
			convID = id
		}

		candidates, err := c.analyzeOnce(ctx, convID, sentence, attachments)
		if err == nil {
			return candidates, nil
		}

		var svcErr *ServiceError
		if attempt == 0 && errors.As(err, &svcErr) && svcErr.SessionInvalid() {
			c.logger.Warn("conversation session invalidated, restarting",
				zap.Int("status", svcErr.StatusCode))
			c.ResetConversation()
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func (c *Client) analyzeOnce(ctx context.Context, conversationID, sentence string, attachments []types.FileAttachment) ([]types.AnalysisCandidate, error) {
	req := analyzeRequest{
		ConversationID: conversationID,
		Sentence:       sentence,
	}
	// Only image attachments travel to the analysis service. Anything else
	// is the executed endpoint's business.
	for _, att := range attachments {
		if !att.IsImage() {
			continue
		}
		req.Images = append(req.Images, imagePayload{
			Name: att.Name,
			Type: att.MimeType,
			Data: att.Base64Data,
		})
	}
	req.HasImages = len(req.Images) > 0

	body, status, err := c.postJSON(ctx, c.baseURL+analyzePath, req)
	if err != nil {
		return nil, &ServiceError{Op: "analyze", Reason: "request failed", Cause: err}
	}
	if status < 200 || status >= 300 {
		return nil, &ServiceError{Op: "analyze", StatusCode: status, Reason: reasonFromBody(body, status)}
	}

	if err := schemas.ValidateAnalysisCandidates(body); err != nil {
		return nil, &ServiceError{Op: "analyze", Reason: "malformed analysis response", Cause: err}
	}

	var candidates []types.AnalysisCandidate
	if err := json.Unmarshal(body, &candidates); err != nil {
		return nil, &ServiceError{Op: "analyze", Reason: "malformed analysis response", Cause: err}
	}
	// Empty means "not understood"; that is the caller's call to make.
	return candidates, nil
}

// ExecuteEndpoint performs the backend call a candidate resolved to.
// Conversation-group endpoints short-circuit: their reply is embedded in the
// candidate payload and no network call is made.
func (c *Client) ExecuteEndpoint(ctx context.Context, cand types.AnalysisCandidate, params map[string]string, tokens TokenSource) (*types.ExecutionResult, error) {
	if cand.Endpoint.IsConversation() {
		return conversationResult(cand), nil
	}

	verb, err := types.ParseVerb(cand.Endpoint.Verb)
	if err != nil {
		return nil, &ServiceError{Op: "execute", Reason: "invalid endpoint", Cause: err}
	}

	var bodyReader io.Reader
	if verb.HasBody() {
		payload := make(map[string]any, len(params)+1)
		for k, v := range params {
			payload[k] = v
		}
		if id := c.ConversationID(); id != "" {
			payload["conversation_id"] = id
		}
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, &ServiceError{Op: "execute", Reason: "failed to encode request body", Cause: err}
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, string(verb), cand.Endpoint.URL(), bodyReader)
	if err != nil {
		return nil, &ServiceError{Op: "execute", Reason: "failed to create request", Cause: err}
	}
	if verb.HasBody() {
		req.Header.Set("Content-Type", "application/json")
	}
	if tokens != nil {
		// Fetched fresh per call; tokens are never cached across executions.
		tok, err := tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	c.logger.Debug("executing endpoint",
		zap.String("endpoint", cand.Endpoint.EndpointName),
		zap.String("verb", string(verb)),
		zap.String("url", cand.Endpoint.URL()))

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &ServiceError{Op: "execute", Reason: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ServiceError{Op: "execute", Reason: "failed to read response body", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Execution backends do not share the analysis service's JSON error
		// envelope; the raw body text is the most faithful detail available.
		return nil, &ServiceError{
			Op:         "execute",
			StatusCode: resp.StatusCode,
			Reason:     strings.TrimSpace(string(body)),
		}
	}

	return classifyResponse(resp, body), nil
}

// classifyResponse maps a 2xx execution response into exactly one ExecKind
// by content type.
func classifyResponse(resp *http.Response, body []byte) *types.ExecutionResult {
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch {
	case mediaType == "application/pdf" || mediaType == "application/octet-stream":
		return &types.ExecutionResult{
			Kind:     types.ExecPDF,
			Blob:     body,
			Filename: filenameFromDisposition(resp.Header.Get("Content-Disposition")),
		}
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		return decodeJSONResult(body)
	default:
		return &types.ExecutionResult{Kind: types.ExecText, Content: string(body)}
	}
}

// executionEnvelope is the loose set of fields backends may include in a JSON
// execution response. Everything is optional.
type executionEnvelope struct {
	Success      *bool           `json:"success"`
	Error        string          `json:"error"`
	ErrorCode    string          `json:"error_code"`
	Suggestions  []string        `json:"suggestions"`
	Message      string          `json:"message"`
	Content      string          `json:"content"`
	Response     string          `json:"response"`
	Action       string          `json:"action"`
	EndpointName string          `json:"endpoint_name"`
	FollowUps    []string        `json:"follow_ups"`
	Filename     string          `json:"filename"`
	Data         json.RawMessage `json:"data"`
}

func decodeJSONResult(body []byte) *types.ExecutionResult {
	res := &types.ExecutionResult{Kind: types.ExecJSON, Data: json.RawMessage(body)}

	var env executionEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		// Valid JSON that is not an object (e.g. a bare array) still counts
		// as data; the whole body stays in Data.
		return res
	}

	res.Message = env.Message
	res.Filename = env.Filename
	res.FollowUps = env.FollowUps
	res.ActionName = env.Action
	if res.ActionName == "" {
		res.ActionName = env.EndpointName
	}
	if env.Content != "" {
		res.Content = env.Content
	} else if env.Response != "" {
		res.Content = env.Response
	}
	if env.Data != nil {
		res.Data = env.Data
	}
	if env.Error != "" || (env.Success != nil && !*env.Success) {
		res.Failed = true
		res.ErrorMessage = env.Error
		res.ErrorCode = env.ErrorCode
		res.Suggestions = env.Suggestions
		if res.ErrorMessage == "" {
			res.ErrorMessage = env.Message
		}
	}
	return res
}

// conversationResult parses the candidate's embedded payload for pure-chat
// endpoints (fields "response" or "content").
func conversationResult(cand types.AnalysisCandidate) *types.ExecutionResult {
	var payload struct {
		Response string `json:"response"`
		Content  string `json:"content"`
	}
	content := ""
	if err := json.Unmarshal([]byte(cand.Payload), &payload); err == nil {
		content = payload.Response
		if content == "" {
			content = payload.Content
		}
	}
	if content == "" {
		content = cand.PromptForUser
	}
	return &types.ExecutionResult{Kind: types.ExecConversation, Content: content}
}

// postJSON issues a bearer-authenticated POST with a JSON body against the
// analysis service and returns the raw response body and status.
func (c *Client) postJSON(ctx context.Context, url string, payload any) ([]byte, int, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// reasonFromBody extracts a best-effort error message from a JSON error body
// on the analyze/start paths, falling back to the HTTP status text.
func reasonFromBody(body []byte, status int) string {
	var decoded struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &decoded); err == nil {
		if decoded.Error != "" {
			return decoded.Error
		}
		if decoded.Message != "" {
			return decoded.Message
		}
	}
	return http.StatusText(status)
}

func filenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}
