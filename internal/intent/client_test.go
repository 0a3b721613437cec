package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerkit/cvchat/internal/types"
)

type tokenFunc func(ctx context.Context) (string, error)

func (f tokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// intentService is a scripted stand-in for the analysis service.
type intentService struct {
	t *testing.T

	startCalls   int
	analyzeCalls int

	analyzeStatus func(call int) int // status per analyze call (1-based)
	analyzeBody   func(call int) string
	lastAnalyze   map[string]any
}

func (s *intentService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/analyze/start", func(w http.ResponseWriter, _ *http.Request) {
		s.startCalls++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"conversation_id":"conv-%d","success":true}`, s.startCalls)
	})
	mux.HandleFunc("POST /api/analyze", func(w http.ResponseWriter, r *http.Request) {
		s.analyzeCalls++
		body, _ := io.ReadAll(r.Body)
		s.lastAnalyze = map[string]any{}
		_ = json.Unmarshal(body, &s.lastAnalyze)

		status := http.StatusOK
		if s.analyzeStatus != nil {
			status = s.analyzeStatus(s.analyzeCalls)
		}
		response := "[]"
		if s.analyzeBody != nil {
			response = s.analyzeBody(s.analyzeCalls)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	})
	return mux
}

func newTestClient(t *testing.T, svc *intentService) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(svc.handler())
	t.Cleanup(server.Close)

	client, err := NewClient(Options{BaseURL: server.URL, APIKey: "svc-key", UserID: "user-1"})
	require.NoError(t, err)
	return client, server
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(Options{})
	assert.Error(t, err)
}

func TestAnalyzeSentence_LazySessionStart(t *testing.T) {
	svc := &intentService{t: t}
	client, _ := newTestClient(t, svc)

	candidates, err := client.AnalyzeSentence(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Empty(t, candidates)

	assert.Equal(t, 1, svc.startCalls, "session started lazily")
	assert.Equal(t, "conv-1", client.ConversationID())
	assert.Equal(t, "conv-1", svc.lastAnalyze["conversation_id"])
	assert.Equal(t, "hello", svc.lastAnalyze["sentence"])
	_, hasImages := svc.lastAnalyze["images"]
	assert.False(t, hasImages)
}

func TestAnalyzeSentence_ReusesSession(t *testing.T) {
	svc := &intentService{t: t}
	client, _ := newTestClient(t, svc)

	_, err := client.AnalyzeSentence(context.Background(), "first", nil)
	require.NoError(t, err)
	_, err = client.AnalyzeSentence(context.Background(), "second", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, svc.startCalls, "one session for the whole conversation")
	assert.Equal(t, 2, svc.analyzeCalls)
}

func TestAnalyzeSentence_OnlyImagesForwarded(t *testing.T) {
	svc := &intentService{t: t}
	client, _ := newTestClient(t, svc)

	attachments := []types.FileAttachment{
		{Name: "photo.png", MimeType: "image/png", Base64Data: "aW1n"},
		{Name: "cv.pdf", MimeType: "application/pdf", Base64Data: "cGRm"},
	}
	_, err := client.AnalyzeSentence(context.Background(), "use this picture", attachments)
	require.NoError(t, err)

	images, ok := svc.lastAnalyze["images"].([]any)
	require.True(t, ok)
	require.Len(t, images, 1)
	img := images[0].(map[string]any)
	assert.Equal(t, "photo.png", img["name"])
	assert.Equal(t, "image/png", img["type"])
	assert.Equal(t, true, svc.lastAnalyze["has_images"])
}

func TestAnalyzeSentence_RetriesOnceOn403(t *testing.T) {
	svc := &intentService{
		t: t,
		analyzeStatus: func(call int) int {
			if call == 1 {
				return http.StatusForbidden
			}
			return http.StatusOK
		},
		analyzeBody: func(call int) string {
			if call == 1 {
				return `{"error":"forbidden"}`
			}
			return `[{"intent":"help","prompt_for_user":"","payload":"{}"}]`
		},
	}
	client, _ := newTestClient(t, svc)

	candidates, err := client.AnalyzeSentence(context.Background(), "hello", nil)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	assert.Equal(t, 2, svc.analyzeCalls, "retried exactly once")
	assert.Equal(t, 2, svc.startCalls, "fresh session for the retry")
	assert.Equal(t, "conv-2", client.ConversationID())
}

func TestAnalyzeSentence_SecondFailurePropagates(t *testing.T) {
	svc := &intentService{
		t:             t,
		analyzeStatus: func(int) int { return http.StatusForbidden },
		analyzeBody:   func(int) string { return `{"error":"forbidden"}` },
	}
	client, _ := newTestClient(t, svc)

	_, err := client.AnalyzeSentence(context.Background(), "hello", nil)
	require.Error(t, err)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusForbidden, svcErr.StatusCode)
	assert.Equal(t, 2, svc.analyzeCalls, "no infinite retry")
}

func TestAnalyzeSentence_ConversationMessageInvalidatesSession(t *testing.T) {
	svc := &intentService{
		t: t,
		analyzeStatus: func(call int) int {
			if call == 1 {
				return http.StatusBadRequest
			}
			return http.StatusOK
		},
		analyzeBody: func(call int) string {
			if call == 1 {
				return `{"error":"conversation conv-1 not found"}`
			}
			return `[]`
		},
	}
	client, _ := newTestClient(t, svc)

	_, err := client.AnalyzeSentence(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, svc.startCalls)
}

func TestAnalyzeSentence_OtherErrorsNotRetried(t *testing.T) {
	svc := &intentService{
		t:             t,
		analyzeStatus: func(int) int { return http.StatusInternalServerError },
		analyzeBody:   func(int) string { return `{"error":"boom"}` },
	}
	client, _ := newTestClient(t, svc)

	_, err := client.AnalyzeSentence(context.Background(), "hello", nil)
	require.Error(t, err)
	assert.Equal(t, 1, svc.analyzeCalls)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "boom", svcErr.Reason)
}

func TestResetConversation(t *testing.T) {
	svc := &intentService{t: t}
	client, _ := newTestClient(t, svc)

	_, err := client.AnalyzeSentence(context.Background(), "hello", nil)
	require.NoError(t, err)
	require.NotEmpty(t, client.ConversationID())

	client.ResetConversation()
	assert.Empty(t, client.ConversationID())

	_, err = client.AnalyzeSentence(context.Background(), "again", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, svc.startCalls, "reset forces a new session")
}

func TestExecuteEndpoint_ConversationShortCircuit(t *testing.T) {
	client, err := NewClient(Options{BaseURL: "http://127.0.0.1:1"}) // nothing listens here
	require.NoError(t, err)

	cand := types.AnalysisCandidate{
		Endpoint: types.EndpointRef{EndpointID: "conversation-chat", Verb: "POST"},
		Payload:  `{"response":"Hi there!"}`,
	}
	result, err := client.ExecuteEndpoint(context.Background(), cand, nil, nil)
	require.NoError(t, err, "no network call for conversation endpoints")
	assert.Equal(t, types.ExecConversation, result.Kind)
	assert.Equal(t, "Hi there!", result.Content)
}

func TestExecuteEndpoint_InvalidVerb(t *testing.T) {
	client, err := NewClient(Options{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	cand := types.AnalysisCandidate{
		Endpoint: types.EndpointRef{EndpointID: "ep-x", Verb: "TRACE"},
	}
	_, err = client.ExecuteEndpoint(context.Background(), cand, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid endpoint")
}

func TestExecuteEndpoint_PostBodyAndAuth(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"success":true,"message":"profile created"}`)
	}))
	defer backend.Close()

	client, err := NewClient(Options{BaseURL: "http://unused.example.com"})
	require.NoError(t, err)
	client.SetConversationID("conv-9")

	cand := types.AnalysisCandidate{
		Endpoint: types.EndpointRef{
			Base:       backend.URL,
			Path:       "/profiles",
			Verb:       "POST",
			EndpointID: "ep-profile-create",
		},
	}
	tokens := tokenFunc(func(context.Context) (string, error) { return "user-token", nil })

	result, err := client.ExecuteEndpoint(context.Background(), cand, map[string]string{"person": "jane"}, tokens)
	require.NoError(t, err)

	assert.Equal(t, "Bearer user-token", gotAuth)
	assert.Equal(t, "jane", gotBody["person"])
	assert.Equal(t, "conv-9", gotBody["conversation_id"])
	assert.Equal(t, types.ExecJSON, result.Kind)
	assert.Equal(t, "profile created", result.Message)
	assert.False(t, result.Failed)
}

func TestExecuteEndpoint_GetHasNoBody(t *testing.T) {
	var gotLen int64
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLen = r.ContentLength
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "two templates available")
	}))
	defer backend.Close()

	client, err := NewClient(Options{BaseURL: "http://unused.example.com"})
	require.NoError(t, err)

	cand := types.AnalysisCandidate{
		Endpoint: types.EndpointRef{Base: backend.URL, Path: "/templates", Verb: "GET", EndpointID: "ep-templates"},
	}
	result, err := client.ExecuteEndpoint(context.Background(), cand, map[string]string{"ignored": "x"}, nil)
	require.NoError(t, err)

	assert.LessOrEqual(t, gotLen, int64(0))
	assert.Equal(t, types.ExecText, result.Kind)
	assert.Equal(t, "two templates available", result.Content)
}

func TestExecuteEndpoint_PDFClassification(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="cv-jane.pdf"`)
		_, _ = w.Write([]byte("%PDF-1.4 fake"))
	}))
	defer backend.Close()

	client, err := NewClient(Options{BaseURL: "http://unused.example.com"})
	require.NoError(t, err)

	cand := types.AnalysisCandidate{
		Endpoint: types.EndpointRef{Base: backend.URL, Path: "/cv/generate", Verb: "POST", EndpointID: "ep-cv"},
	}
	result, err := client.ExecuteEndpoint(context.Background(), cand, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, types.ExecPDF, result.Kind)
	assert.Equal(t, []byte("%PDF-1.4 fake"), result.Blob)
	assert.Equal(t, "cv-jane.pdf", result.Filename)
}

func TestExecuteEndpoint_JSONFailureEnvelope(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"success":false,"error":"profile exists","error_code":"conflict","suggestions":["rename it"]}`)
	}))
	defer backend.Close()

	client, err := NewClient(Options{BaseURL: "http://unused.example.com"})
	require.NoError(t, err)

	cand := types.AnalysisCandidate{
		Endpoint: types.EndpointRef{Base: backend.URL, Path: "/profiles", Verb: "POST", EndpointID: "ep-profile"},
	}
	result, err := client.ExecuteEndpoint(context.Background(), cand, nil, nil)
	require.NoError(t, err)

	assert.True(t, result.Failed)
	assert.Equal(t, "profile exists", result.ErrorMessage)
	assert.Equal(t, "conflict", result.ErrorCode)
	assert.Equal(t, []string{"rename it"}, result.Suggestions)
}

func TestExecuteEndpoint_ErrorBodyStaysRawText(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `upstream exploded`)
	}))
	defer backend.Close()

	client, err := NewClient(Options{BaseURL: "http://unused.example.com"})
	require.NoError(t, err)

	cand := types.AnalysisCandidate{
		Endpoint: types.EndpointRef{Base: backend.URL, Path: "/cv/generate", Verb: "POST", EndpointID: "ep-cv"},
	}
	_, err = client.ExecuteEndpoint(context.Background(), cand, nil, nil)
	require.Error(t, err)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusBadGateway, svcErr.StatusCode)
	assert.Equal(t, "upstream exploded", svcErr.Reason)
}

func TestExecuteEndpoint_TokenErrorShortCircuits(t *testing.T) {
	calls := 0
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	client, err := NewClient(Options{BaseURL: "http://unused.example.com"})
	require.NoError(t, err)

	cand := types.AnalysisCandidate{
		Endpoint: types.EndpointRef{Base: backend.URL, Path: "/cv/generate", Verb: "POST", EndpointID: "ep-cv"},
	}
	tokens := tokenFunc(func(context.Context) (string, error) { return "", fmt.Errorf("no user") })

	_, err = client.ExecuteEndpoint(context.Background(), cand, nil, tokens)
	require.Error(t, err)
	assert.Zero(t, calls, "no HTTP call without a token")
}
