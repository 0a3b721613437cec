package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponseConstructorsSetExactlyOneKind(t *testing.T) {
	responses := []*NormalizedResponse{
		TextResponse("hi"),
		FileResponse("done", "pdf", "cv.pdf", nil),
		DataResponse("data", []byte(`{}`)),
		ActionResponse("ready", "Generate CV", nil),
		ErrorResponse("boom", "code", nil),
	}
	kinds := map[ResponseKind]bool{}
	for _, resp := range responses {
		assert.NotEmpty(t, resp.Kind)
		kinds[resp.Kind] = true
		if resp.IsError() {
			assert.Empty(t, resp.Message)
			assert.NotEmpty(t, resp.ErrorMessage)
		} else {
			assert.Empty(t, resp.ErrorMessage)
		}
	}
	assert.Len(t, kinds, 5)
}

func TestWithConversation(t *testing.T) {
	resp := TextResponse("hi").WithConversation("conv-42")
	assert.Equal(t, "conv-42", resp.ConversationID)
}
