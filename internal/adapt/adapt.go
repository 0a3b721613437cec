// Package adapt translates the analysis service's two raw result shapes into
// the NormalizedResponse union. Both functions are pure: no network, no
// mutation, and they never fail — every input degrades to some variant.
package adapt

import (
	"encoding/json"
	"fmt"

	"github.com/careerkit/cvchat/internal/types"
)

// DefaultPDFFilename is used when an execution result carries a document but
// no filename.
const DefaultPDFFilename = "document.pdf"

const capabilityMessage = "I can generate CVs, manage profiles, upload pictures, " +
	"and optimize a CV for a job posting. Tell me what you'd like to do."

// RephraseHints is the generic suggestion list attached when a sentence could
// not be resolved at all.
var RephraseHints = []string{
	"Try naming the action, e.g. \"generate a CV for jane\"",
	"Mention the profile or file you mean",
	"Ask \"what can you do?\" to see available commands",
}

// Analysis maps an analyze result to a normalized response.
// Only the first candidate is considered.
func Analysis(candidates []types.AnalysisCandidate) *types.NormalizedResponse {
	if len(candidates) == 0 {
		return types.ErrorResponse("no analysis results", "", RephraseHints)
	}

	best := candidates[0]
	switch best.Intent {
	case types.IntentGeneralQuestion, types.IntentHelp:
		return types.TextResponse(payloadMessage(best))
	default:
		// Actionable. A conversation-group endpoint is still just chat.
		if best.Endpoint.IsConversation() {
			return types.TextResponse(payloadMessage(best))
		}
		name := best.Endpoint.EndpointName
		return types.ActionResponse(
			fmt.Sprintf("Ready to execute: %s", name),
			name,
			[]string{
				fmt.Sprintf("Execute %s", name),
				"Provide parameters if needed",
			},
		)
	}
}

// payloadMessage extracts the inline reply from a candidate's opaque payload,
// falling back to a generic capability description when it cannot be parsed.
func payloadMessage(cand types.AnalysisCandidate) string {
	var payload struct {
		Response string `json:"response"`
		Content  string `json:"content"`
	}
	if err := json.Unmarshal([]byte(cand.Payload), &payload); err == nil {
		if payload.Response != "" {
			return payload.Response
		}
		if payload.Content != "" {
			return payload.Content
		}
	}
	return capabilityMessage
}

// Execution maps an execution result to a normalized response.
//
// The precedence is fixed and load-bearing: a single raw result can satisfy
// several predicates at once (e.g. carry both data and a message), so the
// order below decides which variant wins. Error beats everything, then bare
// conversation text, then blob/pdf, then data, then action, then text.
func Execution(result *types.ExecutionResult) *types.NormalizedResponse {
	if result == nil {
		return types.TextResponse("operation complete")
	}

	switch {
	case result.Failed:
		msg := result.ErrorMessage
		if msg == "" {
			msg = "operation failed"
		}
		return types.ErrorResponse(msg, result.ErrorCode, result.Suggestions)

	case result.Kind == types.ExecConversation,
		result.Content != "" && result.Blob == nil && result.Data == nil:
		return types.TextResponse(result.Content)

	case result.Blob != nil || result.Kind == types.ExecPDF:
		filename := result.Filename
		if filename == "" {
			filename = DefaultPDFFilename
		}
		msg := result.Message
		if msg == "" {
			msg = fmt.Sprintf("Generated %s", filename)
		}
		return types.FileResponse(msg, "pdf", filename, result.Blob)

	case result.Data != nil || result.Kind == types.ExecJSON:
		msg := result.Message
		if msg == "" {
			msg = "data retrieved"
		}
		return types.DataResponse(msg, result.Data)

	case result.ActionName != "":
		msg := result.Message
		if msg == "" {
			msg = fmt.Sprintf("Action: %s", result.ActionName)
		}
		return types.ActionResponse(msg, result.ActionName, result.FollowUps)

	default:
		msg := result.Message
		if msg == "" {
			msg = "operation complete"
		}
		return types.TextResponse(msg)
	}
}
