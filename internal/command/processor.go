// Package command composes the intent client and the response adapter with
// product policy: parameter normalization, auth provisioning, filename
// derivation, and the decision of when execution is skipped.
package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/careerkit/cvchat/internal/adapt"
	"github.com/careerkit/cvchat/internal/auth"
	"github.com/careerkit/cvchat/internal/intent"
	"github.com/careerkit/cvchat/internal/types"
)

// NotUnderstoodMessage is the domain error for sentences the analysis service
// could not resolve at all.
const NotUnderstoodMessage = "I didn't understand that. Please be more specific about what you'd like me to do."

// SignInMessage is the domain error for actions that need a signed-in user.
const SignInMessage = "Please sign in to perform this action."

// IntentClient is the slice of the intent client the processor needs.
type IntentClient interface {
	AnalyzeSentence(ctx context.Context, sentence string, attachments []types.FileAttachment) ([]types.AnalysisCandidate, error)
	ExecuteEndpoint(ctx context.Context, cand types.AnalysisCandidate, params map[string]string, tokens intent.TokenSource) (*types.ExecutionResult, error)
	ConversationID() string
}

// JobFetcher retrieves the text of a job posting URL for CV optimization.
type JobFetcher interface {
	JobPostingText(ctx context.Context, url string) (string, error)
}

// Suggester produces rephrase hints for unresolved sentences.
type Suggester interface {
	RephraseHints(ctx context.Context, sentence string) []string
}

// TranscriptRecorder persists one command/response pair. Failures are logged,
// never surfaced.
type TranscriptRecorder interface {
	Record(ctx context.Context, conversationID, sentence, responseKind, errMessage string) error
}

// Result is the wrapper's only output shape. No error from the pipeline
// crosses this boundary as a Go error; everything is folded into Result.
type Result struct {
	Success  bool                      `json:"success"`
	Response *types.NormalizedResponse `json:"response,omitempty"`
	Error    string                    `json:"error,omitempty"`
}

// ProcessorOptions carries the optional collaborators.
type ProcessorOptions struct {
	Fetcher   JobFetcher
	Suggester Suggester
	Recorder  TranscriptRecorder
	Logger    *zap.Logger
}

// Processor runs one command through Understand -> (Clarify | Converse) ->
// Execute -> Normalize.
type Processor struct {
	client    IntentClient
	tokens    auth.TokenSource
	fetcher   JobFetcher
	suggester Suggester
	recorder  TranscriptRecorder
	logger    *zap.Logger
}

// NewProcessor creates a processor. tokens provides the end-user bearer token
// for executed endpoints and may be nil for anonymous-only deployments.
func NewProcessor(client IntentClient, tokens auth.TokenSource, opts ProcessorOptions) *Processor {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		client:    client,
		tokens:    tokens,
		fetcher:   opts.Fetcher,
		suggester: opts.Suggester,
		recorder:  opts.Recorder,
		logger:    logger,
	}
}

// ProcessAndExecute runs one sentence through the full pipeline. It never
// returns a Go error or lets a panic escape; failures come back as a Result
// with Success=false.
func (p *Processor) ProcessAndExecute(ctx context.Context, sentence string, attachments []types.FileAttachment) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("command pipeline panicked", zap.Any("panic", r))
			res = p.failure(fmt.Errorf("internal error: %v", r))
		}
	}()

	res = p.process(ctx, sentence, attachments)
	p.record(ctx, sentence, res)
	return res
}

func (p *Processor) process(ctx context.Context, sentence string, attachments []types.FileAttachment) Result {
	candidates, err := p.client.AnalyzeSentence(ctx, sentence, attachments)
	if err != nil {
		return p.failure(err)
	}

	convID := p.client.ConversationID()

	if len(candidates) == 0 {
		resp := types.ErrorResponse(NotUnderstoodMessage, "", p.suggestions(ctx, sentence)).
			WithConversation(convID)
		return Result{Success: false, Error: NotUnderstoodMessage, Response: resp}
	}

	best := candidates[0]

	// Converse: inline answers never touch a backend.
	if best.Intent == types.IntentGeneralQuestion || best.Intent == types.IntentHelp ||
		best.Endpoint.IsConversation() {
		return Result{
			Success:  true,
			Response: adapt.Analysis(candidates[:1]).WithConversation(convID),
		}
	}

	// Clarify: missing slots surface as a prompt, the session continues.
	if !best.Completion.Ready() {
		prompt := best.PromptForUser
		if prompt == "" {
			prompt = "I need a bit more information to do that."
		}
		return Result{
			Success:  true,
			Response: types.TextResponse(prompt).WithConversation(convID),
		}
	}

	// Execute.
	params := best.Params()
	if person, ok := params["person"]; ok {
		// Profile folders are case-normalized identifiers.
		params["person"] = strings.ToLower(person)
	}
	p.enrichJobPosting(ctx, best, params)

	execResult, err := p.client.ExecuteEndpoint(ctx, best, params, p.tokens)
	if err != nil {
		return p.failure(err)
	}

	if execResult.Kind == types.ExecPDF && IsCVGeneration(best.Endpoint.EndpointName) {
		execResult.Filename = CVFilename(params)
	}

	return Result{
		Success:  true,
		Response: adapt.Execution(execResult).WithConversation(p.client.ConversationID()),
	}
}

// enrichJobPosting resolves a job_url parameter into job_text so CV
// optimization endpoints receive the posting body, not just its address.
// Fetch failures are logged and ignored; the endpoint can still act on the
// URL alone.
func (p *Processor) enrichJobPosting(ctx context.Context, cand types.AnalysisCandidate, params map[string]string) {
	if p.fetcher == nil {
		return
	}
	url := params["job_url"]
	if url == "" || params["job_text"] != "" {
		return
	}
	text, err := p.fetcher.JobPostingText(ctx, url)
	if err != nil {
		p.logger.Warn("job posting fetch failed",
			zap.String("url", url),
			zap.String("endpoint", cand.Endpoint.EndpointName),
			zap.Error(err))
		return
	}
	params["job_text"] = text
}

func (p *Processor) suggestions(ctx context.Context, sentence string) []string {
	if p.suggester != nil {
		if hints := p.suggester.RephraseHints(ctx, sentence); len(hints) > 0 {
			return hints
		}
	}
	return adapt.RephraseHints
}

// failure folds any pipeline error into a user-facing Result. The session id
// is preserved so the next message continues the same context.
func (p *Processor) failure(err error) Result {
	msg := err.Error()
	if errors.Is(err, auth.ErrSignInRequired) {
		msg = SignInMessage
	}
	p.logger.Warn("command failed", zap.Error(err))
	resp := types.ErrorResponse(msg, "", nil).WithConversation(p.client.ConversationID())
	return Result{Success: false, Error: msg, Response: resp}
}

func (p *Processor) record(ctx context.Context, sentence string, res Result) {
	if p.recorder == nil {
		return
	}
	kind := ""
	if res.Response != nil {
		kind = string(res.Response.Kind)
	}
	if err := p.recorder.Record(ctx, p.client.ConversationID(), sentence, kind, res.Error); err != nil {
		p.logger.Warn("failed to record transcript", zap.Error(err))
	}
}
